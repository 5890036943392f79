package gateway

import (
	"fmt"

	"github.com/hyperledger/fabric-gateway/pkg/hash"
)

// hashFor returns the 256-bit digest function used to hash proposals and
// transactions before signing.
func hashFor(name string) (hash.Hash, error) {
	switch name {
	case "", "sha256":
		return hash.SHA256, nil
	case "sha3-256":
		return hash.SHA3_256, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", name)
	}
}
