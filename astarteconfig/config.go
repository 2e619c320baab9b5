// Package astarteconfig loads the static, build-time configuration
// spec.md §6 names (realm, broker override, TLS tag, MQTT message size
// cap, transport/handshake backoff bounds, persistent-storage partition
// name, a dev-mode non-TLS toggle) once, before a Device is constructed.
//
// Grounded on services/config/config.go's embedded-JSON-per-device
// lookup, generalized from "decode a free-form map and publish each key
// retained on the bus" to "decode into the fixed Config struct fields a
// device actually needs". Keeps the same andreyvit/tinyjson decoder and
// the same override-the-lookup-function test seam.
package astarteconfig

import (
	"github.com/andreyvit/tinyjson"

	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// Config is immutable once Load returns; spec.md §6 treats every field
// as static at build time.
type Config struct {
	Realm    string
	Hostname string
	Port     int

	TLSTag        int
	InsecureNoTLS bool

	MQTTMaxMessageSize int

	TransportBackoffInitMs int64
	TransportBackoffMaxMs  int64
	HandshakeBackoffInitMs int64
	HandshakeBackoffMaxMs  int64

	StorePartitionName string
}

func defaultConfig() Config {
	return Config{
		Hostname:               "localhost",
		Port:                   8883,
		TLSTag:                 1,
		MQTTMaxMessageSize:     256 * 1024,
		TransportBackoffInitMs: 1000,
		TransportBackoffMaxMs:  60000,
		HandshakeBackoffInitMs: 500,
		HandshakeBackoffMaxMs:  30000,
		StorePartitionName:     "astarte",
	}
}

// EmbeddedConfigLookup resolves the raw JSON config blob for a device
// ID, embedded at build time. Overridable, the same test seam
// services/config/config.go exposes.
var EmbeddedConfigLookup = func(deviceID string) ([]byte, bool) {
	b, ok := embeddedConfigs[deviceID]
	return b, ok
}

// Load returns deviceID's Config: defaults overridden field-by-field by
// whatever keys its embedded JSON blob sets. A device with no embedded
// config gets pure defaults, not an error — unlike the bus-publishing
// original, an absent per-device override is a normal case here, not a
// startup fault.
func Load(deviceID string) (Config, error) {
	cfg := defaultConfig()

	raw, ok := EmbeddedConfigLookup(deviceID)
	if !ok || len(raw) == 0 {
		return cfg, nil
	}

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return Config{}, errcode.New(errcode.InvalidParam, "astarteconfig.Load")
	}
	applyOverrides(&cfg, m)
	return cfg, nil
}

func applyOverrides(cfg *Config, m map[string]any) {
	if v, ok := m["realm"].(string); ok {
		cfg.Realm = v
	}
	if v, ok := m["hostname"].(string); ok {
		cfg.Hostname = v
	}
	if v, ok := m["port"].(float64); ok {
		cfg.Port = int(v)
	}
	if v, ok := m["tls_tag"].(float64); ok {
		cfg.TLSTag = int(v)
	}
	if v, ok := m["insecure_no_tls"].(bool); ok {
		cfg.InsecureNoTLS = v
	}
	if v, ok := m["mqtt_max_message_size"].(float64); ok {
		cfg.MQTTMaxMessageSize = int(v)
	}
	if v, ok := m["transport_backoff_init_ms"].(float64); ok {
		cfg.TransportBackoffInitMs = int64(v)
	}
	if v, ok := m["transport_backoff_max_ms"].(float64); ok {
		cfg.TransportBackoffMaxMs = int64(v)
	}
	if v, ok := m["handshake_backoff_init_ms"].(float64); ok {
		cfg.HandshakeBackoffInitMs = int64(v)
	}
	if v, ok := m["handshake_backoff_max_ms"].(float64); ok {
		cfg.HandshakeBackoffMaxMs = int64(v)
	}
	if v, ok := m["store_partition_name"].(string); ok {
		cfg.StorePartitionName = v
	}
}
