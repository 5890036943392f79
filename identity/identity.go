// Package identity loads the organization member's X.509 identity and
// private-key signer from an MSP directory layout.
package identity

import (
	"crypto/x509"
	"os"
	"path/filepath"

	fabid "github.com/hyperledger/fabric-gateway/pkg/identity"

	"xdao.co/zkverify/model"
)

// Identity is the credential a client presents to the gateway. It satisfies
// the fabric-gateway identity.Identity interface.
type Identity struct {
	mspID       string
	credentials []byte
	cert        *x509.Certificate
}

var _ fabid.Identity = (*Identity)(nil)

// MspID returns the organization (MSP) id.
func (id *Identity) MspID() string { return id.mspID }

// Credentials returns the PEM certificate bytes exactly as read from disk.
func (id *Identity) Credentials() []byte { return id.credentials }

// Certificate returns the parsed credential.
func (id *Identity) Certificate() *x509.Certificate { return id.cert }

// LoadIdentity reads the first file of certDir as the member certificate.
func LoadIdentity(certDir, mspID string) (*Identity, error) {
	if mspID == "" {
		return nil, model.CredentialError("load identity", "organization id is required", nil)
	}
	path, err := firstFile(certDir)
	if err != nil {
		return nil, model.CredentialError("load identity", "", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, model.CredentialError("load identity", "", err)
	}
	cert, err := fabid.CertificateFromPEM(b)
	if err != nil {
		return nil, model.CredentialError("load identity", "parse certificate "+path, err)
	}
	return &Identity{mspID: mspID, credentials: b, cert: cert}, nil
}

// firstFile returns the first regular file of dir in listing order.
// os.ReadDir sorts by name, so the choice is stable across platforms.
func firstFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		return filepath.Join(dir, entry.Name()), nil
	}
	return "", &emptyDirError{dir: dir}
}

type emptyDirError struct{ dir string }

func (e *emptyDirError) Error() string { return "no files in directory: " + e.dir }
