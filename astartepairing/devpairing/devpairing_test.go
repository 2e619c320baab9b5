package devpairing

import (
	"context"
	"testing"

	"github.com/lucaato/astarte-device-sdk-go/astartepairing"
)

func TestRegisterAndBrokerURL(t *testing.T) {
	p := New("test-realm", "device1", "localhost", 8883, false)
	ctx := context.Background()

	secret, err := p.RegisterDevice(ctx)
	if err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}
	if len(secret) != 44 {
		t.Fatalf("expected 44-char credential secret, got %d chars: %q", len(secret), secret)
	}

	url, err := p.GetBrokerURL(ctx, secret)
	if err != nil {
		t.Fatalf("GetBrokerURL: %v", err)
	}
	if url != "mqtts://localhost:8883" {
		t.Fatalf("unexpected broker url: %q", url)
	}
}

func TestGetBrokerURLRejectsUnknownSecret(t *testing.T) {
	p := New("test-realm", "device1", "localhost", 8883, false)
	if _, err := p.GetBrokerURL(context.Background(), "bogus"); err == nil {
		t.Fatal("expected error for unregistered credential secret")
	}
}

func TestInsecureNoTLSUsesPlainScheme(t *testing.T) {
	p := New("test-realm", "device1", "localhost", 1883, true)
	secret, _ := p.RegisterDevice(context.Background())
	url, err := p.GetBrokerURL(context.Background(), secret)
	if err != nil {
		t.Fatalf("GetBrokerURL: %v", err)
	}
	if url != "mqtt://localhost:1883" {
		t.Fatalf("unexpected broker url: %q", url)
	}
}

func TestCertificateRoundTripsAndVerifies(t *testing.T) {
	p := New("test-realm", "device1", "localhost", 8883, false)
	ctx := context.Background()
	secret, _ := p.RegisterDevice(ctx)

	keyPEM, certPEM, err := p.GetClientCertificate(ctx, secret)
	if err != nil {
		t.Fatalf("GetClientCertificate: %v", err)
	}
	if keyPEM == "" || certPEM == "" {
		t.Fatal("expected non-empty key and certificate PEM")
	}

	result, err := p.VerifyClientCertificate(ctx, secret, certPEM)
	if err != nil {
		t.Fatalf("VerifyClientCertificate: %v", err)
	}
	if result != astartepairing.Ok {
		t.Fatalf("expected Ok, got %v", result)
	}
}

func TestVerifyClientCertificateRejectsGarbage(t *testing.T) {
	p := New("test-realm", "device1", "localhost", 8883, false)
	ctx := context.Background()
	secret, _ := p.RegisterDevice(ctx)

	result, err := p.VerifyClientCertificate(ctx, secret, "not a pem block")
	if err != nil {
		t.Fatalf("VerifyClientCertificate: %v", err)
	}
	if result != astartepairing.Invalid {
		t.Fatal("expected Invalid for malformed PEM")
	}
}

func TestVerifyClientCertificateRejectsForeignCert(t *testing.T) {
	a := New("realm-a", "device1", "localhost", 8883, false)
	b := New("realm-b", "device2", "localhost", 8883, false)
	ctx := context.Background()

	secretA, _ := a.RegisterDevice(ctx)
	_, certA, err := a.GetClientCertificate(ctx, secretA)
	if err != nil {
		t.Fatalf("GetClientCertificate: %v", err)
	}

	secretB, _ := b.RegisterDevice(ctx)
	result, err := b.VerifyClientCertificate(ctx, secretB, certA)
	if err != nil {
		t.Fatalf("VerifyClientCertificate: %v", err)
	}
	if result != astartepairing.Invalid {
		t.Fatal("expected Invalid for a cert minted under a different realm/device")
	}
}
