// Package devpairing is a deterministic, in-memory stand-in for Astarte's
// pairing HTTP API, for local development and the E2E harness in place of
// a real pairing server. It exists because a bare Pairing interface
// without a runnable implementation gives the connection state machine
// nothing to hand its credential secret to.
//
// Grounded on services/bridge/bridge.go's config-then-connect pattern
// (a Config is decoded once up front, then drives dialling) and on the
// pack's fido-device-onboard-go-fdo example, whose cert.go shows the
// idiomatic way this corpus mints and PEM-encodes certificates: stdlib
// crypto/x509 plus crypto/ecdsa, no third-party certificate library.
package devpairing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/lucaato/astarte-device-sdk-go/astartepairing"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// Pairing is a self-contained pairing backend: it registers devices,
// mints a self-signed client certificate whose CN encodes "<realm>/<device
// id>" (the string the real topic layout extracts its base topic from),
// and reports a fixed broker address.
type Pairing struct {
	Realm         string
	DeviceID      string
	BrokerHost    string
	BrokerPort    int
	InsecureNoTLS bool

	mu         sync.Mutex
	registered map[string]bool
}

// New constructs a Pairing backend for one device/realm pair against a
// fixed broker address.
func New(realm, deviceID, brokerHost string, brokerPort int, insecureNoTLS bool) *Pairing {
	return &Pairing{
		Realm:         realm,
		DeviceID:      deviceID,
		BrokerHost:    brokerHost,
		BrokerPort:    brokerPort,
		InsecureNoTLS: insecureNoTLS,
		registered:    make(map[string]bool),
	}
}

// RegisterDevice mints a fresh 44-char base64 credential secret, the same
// shape Astarte's real pairing API returns (32 random bytes, standard
// base64 encoding).
func (p *Pairing) RegisterDevice(ctx context.Context) (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", errcode.Wrap(errcode.Pairing, "devpairing.RegisterDevice", err)
	}
	secret := base64.StdEncoding.EncodeToString(raw[:])

	p.mu.Lock()
	p.registered[secret] = true
	p.mu.Unlock()
	return secret, nil
}

// GetBrokerURL reports the fixed broker address, gated on a previously
// issued credential secret.
func (p *Pairing) GetBrokerURL(ctx context.Context, credSecret string) (string, error) {
	if !p.known(credSecret) {
		return "", errcode.New(errcode.Pairing, "devpairing.GetBrokerURL")
	}
	protocol := "mqtts"
	if p.InsecureNoTLS {
		protocol = "mqtt"
	}
	return fmt.Sprintf("%s://%s:%d", protocol, p.BrokerHost, p.BrokerPort), nil
}

// GetClientCertificate mints a fresh ECDSA key and a self-signed
// certificate whose CN is "<realm>/<device id>", PEM-encoding both.
func (p *Pairing) GetClientCertificate(ctx context.Context, credSecret string) (string, string, error) {
	if !p.known(credSecret) {
		return "", "", errcode.New(errcode.Pairing, "devpairing.GetClientCertificate")
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", errcode.Wrap(errcode.Pairing, "devpairing.GetClientCertificate", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return "", "", errcode.Wrap(errcode.Pairing, "devpairing.GetClientCertificate", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: p.Realm + "/" + p.DeviceID},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).AddDate(10, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return "", "", errcode.Wrap(errcode.Pairing, "devpairing.GetClientCertificate", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", "", errcode.Wrap(errcode.Pairing, "devpairing.GetClientCertificate", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return string(keyPEM), string(certPEM), nil
}

// VerifyClientCertificate reports whether certPEM is a well-formed
// certificate whose CN matches this backend's realm/device pair. It is
// the server-side analogue of the check performed during the real
// pairing handshake, here performed entirely offline.
func (p *Pairing) VerifyClientCertificate(ctx context.Context, credSecret, certPEM string) (astartepairing.Result, error) {
	if !p.known(credSecret) {
		return astartepairing.Invalid, errcode.New(errcode.Pairing, "devpairing.VerifyClientCertificate")
	}

	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return astartepairing.Invalid, nil
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return astartepairing.Invalid, nil
	}
	if cert.Subject.CommonName != p.Realm+"/"+p.DeviceID {
		return astartepairing.Invalid, nil
	}
	if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
		return astartepairing.Invalid, nil
	}
	return astartepairing.Ok, nil
}

func (p *Pairing) known(credSecret string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registered[credSecret]
}
