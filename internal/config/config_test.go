package config

import "testing"

func TestValidateRequiresWebhookSecretInProduction(t *testing.T) {
	cfg := Config{Environment: "production", StoreBackend: StoreBackendDatabase}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing webhook secret to fail validation in production")
	}

	cfg.Coinbase.WebhookSecret = "whsec_test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateAllowsMissingSecretInDevelopment(t *testing.T) {
	cfg := Config{Environment: "development", StoreBackend: StoreBackendMemory}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected dev config without secret to validate, got %v", err)
	}
}

func TestValidateRejectsUnknownStoreBackend(t *testing.T) {
	cfg := Config{Environment: "development", StoreBackend: "dynamo"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown store backend to fail validation")
	}
}
