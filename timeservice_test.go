package main

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/core/client"
)

func init() {
	log = zap.NewNop()
}

func TestDecodeConfig(t *testing.T) {
	raw := []byte(`
local_address = "0.0.0.0:8123"
ntp_address = "0.0.0.0:10123"
remote_address = "https://time.example.com/"
metrics_address = "127.0.0.1:9090"

[sync]
amortization_rate = 50
synchronization_request_samples = 5
`)
	cfg, err := decodeConfig(raw)
	if err != nil {
		t.Fatalf("decodeConfig() failed: %v", err)
	}
	if cfg.LocalAddr != "0.0.0.0:8123" || cfg.NTPAddr != "0.0.0.0:10123" {
		t.Errorf("addresses = %q, %q", cfg.LocalAddr, cfg.NTPAddr)
	}
	if cfg.Transport != client.TransportHTTP {
		t.Errorf("Transport = %q, want default %q", cfg.Transport, client.TransportHTTP)
	}
	sc, err := syncConfig(cfg)
	if err != nil {
		t.Fatalf("syncConfig() failed: %v", err)
	}
	if sc.AmortizationRate != 50*time.Millisecond || sc.SynchronizationRequestSamples != 5 {
		t.Errorf("sync config = %+v", sc)
	}
}

func TestDecodeConfigRejectsUnknownFields(t *testing.T) {
	var tests = []string{
		"remote_adress = \"https://time.example.com/\"\n",
		"[sync]\namortisation_rate = 10\n",
	}
	for _, raw := range tests {
		if _, err := decodeConfig([]byte(raw)); err == nil {
			t.Errorf("decodeConfig(%q) succeeded", raw)
		}
	}
}

func TestSyncConfigRejectsInvalidValues(t *testing.T) {
	cfg, err := decodeConfig([]byte("[sync]\nsynchronization_timeout = 0\n"))
	if err != nil {
		t.Fatalf("decodeConfig() failed: %v", err)
	}
	if _, err := syncConfig(cfg); err == nil {
		t.Errorf("syncConfig() accepted zero timeout")
	}
}
