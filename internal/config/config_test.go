package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "TABLE_PREFIX", "GATEWAY_BACKEND", "RECOVERY_BACKEND", "AUTOSAVE_DELAY", "FETCH_TIMEOUT", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Environment != "dev" || cfg.Port != "8080" || cfg.TablePrefix != "dev_" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.GatewayBackend != GatewayPostgres || cfg.RecoveryBackend != RecoverySQLite {
		t.Errorf("backends = %s/%s", cfg.GatewayBackend, cfg.RecoveryBackend)
	}
	if cfg.AutosaveDelay != time.Second || cfg.FetchTimeout != 5*time.Second {
		t.Errorf("timing = %v/%v", cfg.AutosaveDelay, cfg.FetchTimeout)
	}
	if !cfg.Debug {
		t.Error("debug defaults on outside prod")
	}
}

func TestLoad_Environment(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantPrefix  string
		wantGateway string
		wantDebug   bool
		wantFetch   time.Duration
	}{
		{
			name:        "prod",
			env:         map[string]string{"ENVIRONMENT": "prod"},
			wantPrefix:  "prod_",
			wantGateway: GatewayPostgres,
			wantDebug:   false,
			wantFetch:   5 * time.Second,
		},
		{
			name:        "test uses memory gateway",
			env:         map[string]string{"ENVIRONMENT": "test", "FETCH_TIMEOUT": "250ms"},
			wantPrefix:  "test_",
			wantGateway: GatewayMemory,
			wantDebug:   true,
			wantFetch:   250 * time.Millisecond,
		},
		{
			name:        "explicit overrides",
			env:         map[string]string{"ENVIRONMENT": "prod", "TABLE_PREFIX": "x_", "GATEWAY_BACKEND": "memory", "DEBUG": "true"},
			wantPrefix:  "x_",
			wantGateway: GatewayMemory,
			wantDebug:   true,
			wantFetch:   5 * time.Second,
		},
		{
			name:        "bad duration falls back",
			env:         map[string]string{"ENVIRONMENT": "dev", "FETCH_TIMEOUT": "soon"},
			wantPrefix:  "dev_",
			wantGateway: GatewayPostgres,
			wantDebug:   true,
			wantFetch:   5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"ENVIRONMENT", "TABLE_PREFIX", "GATEWAY_BACKEND", "FETCH_TIMEOUT", "DEBUG"} {
				t.Setenv(key, "")
			}
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg := Load()
			if cfg.TablePrefix != tt.wantPrefix {
				t.Errorf("prefix = %q, want %q", cfg.TablePrefix, tt.wantPrefix)
			}
			if cfg.GatewayBackend != tt.wantGateway {
				t.Errorf("gateway = %q, want %q", cfg.GatewayBackend, tt.wantGateway)
			}
			if cfg.Debug != tt.wantDebug {
				t.Errorf("debug = %v, want %v", cfg.Debug, tt.wantDebug)
			}
			if cfg.FetchTimeout != tt.wantFetch {
				t.Errorf("fetch timeout = %v, want %v", cfg.FetchTimeout, tt.wantFetch)
			}
		})
	}
}
