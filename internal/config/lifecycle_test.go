package config

import "testing"

func TestDefaultLifecycleAllowsForwardEdges(t *testing.T) {
	cfg := DefaultLifecycleConfig()

	allowed := [][2]string{
		{"pending", "created"},
		{"pending", "confirmed"},
		{"created", "confirmed"},
		{"created", "failed"},
		{"delayed", "resolved"},
		{"failed", "resolved"},
	}
	for _, edge := range allowed {
		if !cfg.Allows(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be allowed", edge[0], edge[1])
		}
	}

	denied := [][2]string{
		{"confirmed", "pending"},
		{"resolved", "pending"},
		{"confirmed", "failed"},
		{"failed", "pending"},
	}
	for _, edge := range denied {
		if cfg.Allows(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be rejected", edge[0], edge[1])
		}
	}
}

func TestLifecycleAllowsSelfTransition(t *testing.T) {
	cfg := DefaultLifecycleConfig()
	for status := range cfg.Transitions {
		if !cfg.Allows(status, status) {
			t.Fatalf("expected %s -> %s re-delivery to be allowed", status, status)
		}
	}
}

func TestValidateLifecycleConfigRejectsUnknownStatus(t *testing.T) {
	cfg := DefaultLifecycleConfig()
	cfg.Transitions["pending"] = append(cfg.Transitions["pending"], "refunded")
	if err := validateLifecycleConfig(cfg); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}
