package astarteconfig

// Embedded per-device config overrides, populated at build time (e.g.
// via code generation) or by hand during development. Key: device ID.
// Val: raw JSON bytes of the override fields from Config.
var embeddedConfigs = map[string][]byte{
	"dev1": []byte(`{
		"realm": "test",
		"hostname": "localhost",
		"port": 1883,
		"insecure_no_tls": true
	}`),
}
