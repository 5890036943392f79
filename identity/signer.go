package identity

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"os"

	fabid "github.com/hyperledger/fabric-gateway/pkg/identity"

	"xdao.co/zkverify/model"
)

// Signer signs transaction digests with the member's private key.
type Signer struct {
	sign    fabid.Sign
	keyType string
	path    string
}

// LoadSigner reads the first file of keyDir as a PEM private key.
func LoadSigner(keyDir string) (*Signer, error) {
	path, err := firstFile(keyDir)
	if err != nil {
		return nil, model.CredentialError("load signer", "", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, model.CredentialError("load signer", "", err)
	}
	key, err := fabid.PrivateKeyFromPEM(b)
	if err != nil {
		return nil, model.CredentialError("load signer", "parse private key "+path, err)
	}
	return NewSigner(key, path)
}

// NewSigner wraps an ECDSA or Ed25519 private key.
func NewSigner(key crypto.PrivateKey, source string) (*Signer, error) {
	sign, err := fabid.NewPrivateKeySign(key)
	if err != nil {
		return nil, model.CredentialError("load signer", "unsupported private key "+source, err)
	}
	return &Signer{sign: sign, keyType: keyType(key), path: source}, nil
}

// Sign returns a signature over digest.
func (s *Signer) Sign(digest []byte) ([]byte, error) {
	return s.sign(digest)
}

// Func exposes the signer in the form the gateway client expects.
func (s *Signer) Func() fabid.Sign { return s.sign }

// KeyType reports "ecdsa" or "ed25519".
func (s *Signer) KeyType() string { return s.keyType }

// Source is the file the key was read from.
func (s *Signer) Source() string { return s.path }

func keyType(key crypto.PrivateKey) string {
	switch key.(type) {
	case *ecdsa.PrivateKey:
		return "ecdsa"
	case ed25519.PrivateKey, *ed25519.PrivateKey:
		return "ed25519"
	default:
		return "unknown"
	}
}
