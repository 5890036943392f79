// Package proofsys describes the proof systems and curves the verification
// chaincode accepts, and can check a proof locally with gnark before it is
// submitted.
package proofsys

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"

	"xdao.co/zkverify/model"
)

// Entry is one cell of the verification matrix.
type Entry struct {
	Protocol model.Protocol
	Curve    string
}

func (e Entry) String() string { return string(e.Protocol) + "/" + e.Curve }

var (
	groth16Curves = []string{"BN254", "BLS12-377", "BLS12-381", "BLS24-315", "BLS24-317", "BW6-633", "BW6-761"}
	plonkCurves   = []string{"BN254", "BLS12-377", "BLS12-381", "BLS24-315", "BLS24-317"}
)

var curveIDs = map[string]ecc.ID{
	"BN254":     ecc.BN254,
	"BLS12-377": ecc.BLS12_377,
	"BLS12-381": ecc.BLS12_381,
	"BLS24-315": ecc.BLS24_315,
	"BLS24-317": ecc.BLS24_317,
	"BW6-633":   ecc.BW6_633,
	"BW6-761":   ecc.BW6_761,
}

// Matrix returns the fixed catalog: every groth16 curve, then every plonk
// curve, in a stable order.
func Matrix() []Entry {
	out := make([]Entry, 0, len(groth16Curves)+len(plonkCurves))
	for _, c := range groth16Curves {
		out = append(out, Entry{Protocol: model.Groth16, Curve: c})
	}
	for _, c := range plonkCurves {
		out = append(out, Entry{Protocol: model.Plonk, Curve: c})
	}
	return out
}

// FunctionName maps a protocol to its chaincode transaction.
func FunctionName(p model.Protocol) (string, error) {
	switch p {
	case model.Groth16:
		return "VerifyGroth16Proof", nil
	case model.Plonk:
		return "VerifyPlonkProof", nil
	default:
		return "", fmt.Errorf("no chaincode function for protocol %q", p)
	}
}

// CurveID maps a catalog curve name to its gnark-crypto identifier.
func CurveID(name string) (ecc.ID, error) {
	id, ok := curveIDs[name]
	if !ok {
		return ecc.UNKNOWN, fmt.Errorf("unknown curve %q", name)
	}
	return id, nil
}
