package config

import (
	"strings"
	"testing"
)

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte("shop: ck\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Shop != "ck" {
		t.Errorf("Shop = %q", cfg.Shop)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("default db port = %d, want 3306", cfg.Database.Port)
	}
	if cfg.Database.Database != "shopflow_ck" {
		t.Errorf("default database = %q", cfg.Database.Database)
	}
	if cfg.Database.Path != "shopflow.db" {
		t.Errorf("default sqlite path = %q", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server port = %d", cfg.Server.Port)
	}
	if cfg.Calendar.SyncCron != "0 6 * * *" {
		t.Errorf("default sync cron = %q", cfg.Calendar.SyncCron)
	}
	if cfg.Database.Remote() {
		t.Error("no host configured, Remote() should be false")
	}
}

func TestParse_Full(t *testing.T) {
	raw := `
shop: ck
database:
  host: db.internal
  port: 3307
  database: ck_flow
server:
  port: 9000
roles:
  kamal: OWNER
  lena: ADVISOR
  marcus: FOREMAN
broadcast:
  slack_token: xoxb-test
  slack_channel: C123
ai:
  base_url: https://ai.internal
  api_key: secret
calendar:
  sync_cron: "30 5 * * *"
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.Database.Remote() {
		t.Error("host configured, Remote() should be true")
	}
	if cfg.Database.Port != 3307 || cfg.Database.Database != "ck_flow" {
		t.Errorf("database config = %+v", cfg.Database)
	}
	if got := cfg.ResolveRole("kamal"); got != "OWNER" {
		t.Errorf("ResolveRole(kamal) = %q", got)
	}
	if got := cfg.ResolveRole("stranger"); got != "" {
		t.Errorf("ResolveRole(stranger) = %q, want empty", got)
	}
	if cfg.Calendar.SyncCron != "30 5 * * *" {
		t.Errorf("sync cron = %q", cfg.Calendar.SyncCron)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"missing shop", "server:\n  port: 1\n", "shop is required"},
		{"unknown role", "shop: ck\nroles:\n  bob: MECHANIC\n", "unknown role"},
		{"slack half-configured", "shop: ck\nbroadcast:\n  slack_token: xoxb\n", "must be set together"},
		{"discord half-configured", "shop: ck\nbroadcast:\n  discord_channel: C1\n", "must be set together"},
		{"bad yaml", "shop: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
