package astarteconfig

import "testing"

func TestLoad_NoEmbeddedConfigReturnsDefaults(t *testing.T) {
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(deviceID string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	cfg, err := Load("unknown-device")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := defaultConfig()
	if cfg != want {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_OverridesFieldsFromEmbeddedJSON(t *testing.T) {
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(deviceID string) ([]byte, bool) {
		if deviceID != "pico" {
			return nil, false
		}
		return []byte(`{
			"realm": "acme",
			"hostname": "broker.example.com",
			"port": 8883,
			"tls_tag": 7,
			"insecure_no_tls": false,
			"handshake_backoff_init_ms": 250,
			"handshake_backoff_max_ms": 15000,
			"store_partition_name": "nvs"
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	cfg, err := Load("pico")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Realm != "acme" {
		t.Errorf("Realm = %q, want acme", cfg.Realm)
	}
	if cfg.Hostname != "broker.example.com" {
		t.Errorf("Hostname = %q", cfg.Hostname)
	}
	if cfg.Port != 8883 {
		t.Errorf("Port = %d, want 8883", cfg.Port)
	}
	if cfg.TLSTag != 7 {
		t.Errorf("TLSTag = %d, want 7", cfg.TLSTag)
	}
	if cfg.InsecureNoTLS {
		t.Error("InsecureNoTLS = true, want false")
	}
	if cfg.HandshakeBackoffInitMs != 250 || cfg.HandshakeBackoffMaxMs != 15000 {
		t.Errorf("handshake backoff = %d/%d, want 250/15000", cfg.HandshakeBackoffInitMs, cfg.HandshakeBackoffMaxMs)
	}
	if cfg.StorePartitionName != "nvs" {
		t.Errorf("StorePartitionName = %q, want nvs", cfg.StorePartitionName)
	}
	// Untouched fields keep their defaults.
	if cfg.MQTTMaxMessageSize != defaultConfig().MQTTMaxMessageSize {
		t.Errorf("MQTTMaxMessageSize = %d, want default", cfg.MQTTMaxMessageSize)
	}
}

func TestLoad_MalformedEmbeddedJSONFails(t *testing.T) {
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(deviceID string) ([]byte, bool) { return []byte(`[1,2,3]`), true }
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	if _, err := Load("whatever"); err == nil {
		t.Fatal("expected an error decoding a non-object embedded config")
	}
}
