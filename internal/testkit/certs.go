// Package testkit provides fixtures shared by package tests: self-signed
// TLS and identity material, and proof artifact files.
package testkit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// KeyPair is a PEM encoded certificate and its PKCS#8 private key.
type KeyPair struct {
	CertPEM []byte
	KeyPEM  []byte
}

// NewKeyPair returns a self-signed ECDSA P-256 certificate valid for
// dnsNames. The certificate is its own CA, so it can be used both as a TLS
// root and as a leaf.
func NewKeyPair(t *testing.T, commonName string, dnsNames ...string) KeyPair {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"org1.example.com"}},
		DNSNames:              dnsNames,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	return KeyPair{
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
}

// WriteFile writes b to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name string, b []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// MSP lays out a Fabric user MSP (signcerts + keystore) under root and
// returns the two directories.
func MSP(t *testing.T, root string, kp KeyPair) (certDir, keyDir string) {
	t.Helper()
	certDir = filepath.Join(root, "msp", "signcerts")
	keyDir = filepath.Join(root, "msp", "keystore")
	WriteFile(t, certDir, "cert.pem", kp.CertPEM)
	WriteFile(t, keyDir, "priv_sk", kp.KeyPEM)
	return certDir, keyDir
}
