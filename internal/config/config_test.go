package config

import (
	"strings"
	"testing"
	"time"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

const fullConfig = `
server:
  addr: ":9090"
provider:
  type: biometric
  base_url: https://idp.example.com
  api_key: secret
  request_timeout: 3s
registry:
  type: redis
  operation_ttl: 2m
  redis:
    addr: localhost:6379
    key_prefix: test
tokens:
  issuer: bbms-test
  audience: bbms-app
  access_ttl: 1h
  refresh_ttl: 48h
policy:
  face_match_threshold: 0.9
  rules:
    - name: low-confidence
      expr: "proof.ConfidenceScore < 0.95"
      reason: Confidence below 0.95
identities:
  type: static
  static:
    - ref: u-1
      email: a@example.com
      role: operator
      access_level: 2
      active: true
      enrolled: true
audit:
  enabled: true
  type: memory
`

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Provider.Type != "biometric" || cfg.Provider.Name != "biometric" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Provider.Config["base_url"] != "https://idp.example.com" {
		t.Errorf("provider inline config not captured: %+v", cfg.Provider.Config)
	}
	if cfg.Registry.OperationTTL != 2*time.Minute {
		t.Errorf("operation_ttl = %v", cfg.Registry.OperationTTL)
	}
	if cfg.Registry.SweepInterval != DefaultSweepInterval {
		t.Errorf("sweep_interval = %v", cfg.Registry.SweepInterval)
	}
	if cfg.Tokens.AccessTTL != time.Hour {
		t.Errorf("access_ttl = %v", cfg.Tokens.AccessTTL)
	}
	if cfg.Policy.FaceMatch() != 0.9 {
		t.Errorf("face_match_threshold = %v", cfg.Policy.FaceMatch())
	}
	if cfg.Policy.Confidence() != core.DefaultConfidenceThreshold {
		t.Errorf("confidence_threshold default not applied: %v", cfg.Policy.Confidence())
	}
	if len(cfg.Policy.Rules) != 1 || cfg.Policy.Rules[0].CompiledExpr == nil {
		t.Errorf("rules not compiled: %+v", cfg.Policy.Rules)
	}
	if len(cfg.Identities.Static) != 1 || !cfg.Identities.Static[0].Enrolled {
		t.Errorf("identities = %+v", cfg.Identities.Static)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("provider:\n  type: stub\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Registry.Type != "memory" {
		t.Errorf("registry type = %q", cfg.Registry.Type)
	}
	if cfg.Registry.OperationTTL != DefaultOperationTTL {
		t.Errorf("operation_ttl = %v", cfg.Registry.OperationTTL)
	}
	if cfg.Registry.ConsumedRetention != DefaultConsumedRetention {
		t.Errorf("consumed_retention = %v", cfg.Registry.ConsumedRetention)
	}
	if cfg.Identities.Type != "static" {
		t.Errorf("identities type = %q", cfg.Identities.Type)
	}
	if cfg.Policy.FaceMatch() != core.DefaultFaceMatchThreshold {
		t.Errorf("face_match_threshold = %v", cfg.Policy.FaceMatch())
	}
}

func TestParse_ZeroThresholdIsKept(t *testing.T) {
	cfg, err := Parse([]byte("provider:\n  type: stub\npolicy:\n  confidence_threshold: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Policy.Confidence() != 0 {
		t.Errorf("confidence_threshold = %v, want 0", cfg.Policy.Confidence())
	}
	if cfg.Policy.FaceMatch() != core.DefaultFaceMatchThreshold {
		t.Errorf("face_match_threshold = %v", cfg.Policy.FaceMatch())
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing provider",
			yaml:    "server:\n  addr: ':1'\n",
			wantErr: "provider.type is required",
		},
		{
			name:    "unknown provider",
			yaml:    "provider:\n  type: carrier-pigeon\n",
			wantErr: "unknown provider type",
		},
		{
			name:    "redis without addr",
			yaml:    "provider:\n  type: stub\nregistry:\n  type: redis\n",
			wantErr: "redis.addr is required",
		},
		{
			name:    "consumed retention shorter than operation ttl",
			yaml:    "provider:\n  type: stub\nregistry:\n  operation_ttl: 5m\n  consumed_retention: 1m\n",
			wantErr: "consumed_retention",
		},
		{
			name:    "negative consumed retention",
			yaml:    "provider:\n  type: stub\nregistry:\n  consumed_retention: -1s\n",
			wantErr: "consumed_retention",
		},
		{
			name:    "threshold out of range",
			yaml:    "provider:\n  type: stub\npolicy:\n  face_match_threshold: 1.5\n",
			wantErr: "face_match_threshold",
		},
		{
			name:    "refresh shorter than access",
			yaml:    "provider:\n  type: stub\ntokens:\n  access_ttl: 2h\n  refresh_ttl: 1h\n",
			wantErr: "refresh_ttl",
		},
		{
			name:    "duplicate identity",
			yaml:    "provider:\n  type: stub\nidentities:\n  static:\n    - ref: a\n    - ref: a\n",
			wantErr: "not unique",
		},
		{
			name:    "postgres without dsn",
			yaml:    "provider:\n  type: stub\nidentities:\n  type: postgres\n",
			wantErr: "dsn is required",
		},
		{
			name:    "file audit without path",
			yaml:    "provider:\n  type: stub\naudit:\n  enabled: true\n",
			wantErr: "audit.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
