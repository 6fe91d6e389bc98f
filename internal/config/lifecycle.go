package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LifecycleConfig controls which donation status transitions the webhook
// reconciler accepts, and how aggressively charge creation is throttled.
type LifecycleConfig struct {
	// Transitions maps a current status to the statuses it may move to.
	// Re-delivery of the current status is always accepted regardless of
	// this table.
	Transitions map[string][]string `mapstructure:"transitions"`

	CreateChargeRate  float64 `mapstructure:"createChargeRate"`
	CreateChargeBurst int     `mapstructure:"createChargeBurst"`
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		Transitions: map[string][]string{
			"pending":   {"created", "confirmed", "failed", "delayed"},
			"created":   {"pending", "confirmed", "failed", "delayed"},
			"delayed":   {"confirmed", "failed", "resolved"},
			"failed":    {"resolved"},
			"confirmed": {},
			"resolved":  {},
		},
		CreateChargeRate:  1,
		CreateChargeBurst: 5,
	}
}

// Allows reports whether moving from one status to another is a legal edge.
func (c LifecycleConfig) Allows(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range c.Transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LifecycleConfigHolder serves the current lifecycle config and hot-reloads
// it when the backing file changes.
type LifecycleConfigHolder struct {
	current atomic.Value // holds LifecycleConfig
}

func NewLifecycleConfigHolder() (*LifecycleConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("lifecycle")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/givecoin/config") // Volume-mounted config
	v.AddConfigPath("/etc/givecoin")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("GIVECOIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultLifecycleConfig()
		v.SetDefault("lifecycle.transitions", defaults.Transitions)
		v.SetDefault("lifecycle.createChargeRate", defaults.CreateChargeRate)
		v.SetDefault("lifecycle.createChargeBurst", defaults.CreateChargeBurst)
	}

	var cfg LifecycleConfig
	if err := v.UnmarshalKey("lifecycle", &cfg); err != nil {
		return nil, err
	}
	if err := validateLifecycleConfig(cfg); err != nil {
		return nil, err
	}

	holder := &LifecycleConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LifecycleConfig
		if err := v.UnmarshalKey("lifecycle", &updated); err != nil {
			log.Printf("[lifecycle-config] reload failed: %v", err)
			return
		}
		if err := validateLifecycleConfig(updated); err != nil {
			log.Printf("[lifecycle-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[lifecycle-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *LifecycleConfigHolder) Get() LifecycleConfig {
	return h.current.Load().(LifecycleConfig)
}

// NewStaticLifecycleHolder wraps a fixed config, for tests.
func NewStaticLifecycleHolder(cfg LifecycleConfig) *LifecycleConfigHolder {
	holder := &LifecycleConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

var knownStatuses = map[string]struct{}{
	"pending":   {},
	"created":   {},
	"confirmed": {},
	"failed":    {},
	"delayed":   {},
	"resolved":  {},
}

func validateLifecycleConfig(cfg LifecycleConfig) error {
	if len(cfg.Transitions) == 0 {
		return errors.New("lifecycle.transitions cannot be empty")
	}
	for from, tos := range cfg.Transitions {
		if _, ok := knownStatuses[from]; !ok {
			return errors.New("lifecycle.transitions: unknown status " + from)
		}
		for _, to := range tos {
			if _, ok := knownStatuses[to]; !ok {
				return errors.New("lifecycle.transitions: unknown status " + to)
			}
		}
	}
	if cfg.CreateChargeRate < 0 {
		return errors.New("lifecycle.createChargeRate cannot be negative")
	}
	if cfg.CreateChargeBurst < 0 {
		return errors.New("lifecycle.createChargeBurst cannot be negative")
	}
	return nil
}
