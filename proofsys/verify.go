package proofsys

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"

	"xdao.co/zkverify/model"
)

// MaxFieldBytes bounds the decoded size of each artifact field.
const MaxFieldBytes = 64 << 20

// witnessHeaderLen is nbPublic, nbSecret and the vector length, each a
// big-endian uint32.
const witnessHeaderLen = 12

// Verify checks a base64-encoded proof against its verifying key and public
// witness, decoding each the way the chaincode does.
//
// Malformed input is an error, never a crash: sizes announced in the public
// witness header are checked against the decoded bytes before gnark reads
// them, and every read is bounded by its input.
func Verify(protocol model.Protocol, curve, proofB64, vkB64, witnessB64 string) error {
	id, err := CurveID(curve)
	if err != nil {
		return err
	}
	wb, err := decodeBase64("witnessPublic", witnessB64)
	if err != nil {
		return err
	}
	elemBytes := (id.ScalarField().BitLen() + 7) / 8
	if err := checkWitnessHeader(wb, elemBytes); err != nil {
		return err
	}
	pw, err := witness.New(id.ScalarField())
	if err != nil {
		return fmt.Errorf("new public witness: %w", err)
	}
	if err := readFrom("witnessPublic", wb, pw); err != nil {
		return err
	}

	var proof, vk io.ReaderFrom
	switch protocol {
	case model.Groth16:
		proof, vk = groth16.NewProof(id), groth16.NewVerifyingKey(id)
	case model.Plonk:
		proof, vk = plonk.NewProof(id), plonk.NewVerifyingKey(id)
	default:
		return fmt.Errorf("unknown protocol %q", protocol)
	}
	if err := readBase64("proof", proofB64, proof); err != nil {
		return err
	}
	if err := readBase64("vk", vkB64, vk); err != nil {
		return err
	}

	if protocol == model.Groth16 {
		return guard("verify", func() error {
			return groth16.Verify(proof.(groth16.Proof), vk.(groth16.VerifyingKey), pw)
		})
	}
	return guard("verify", func() error {
		return plonk.Verify(proof.(plonk.Proof), vk.(plonk.VerifyingKey), pw)
	})
}

// checkWitnessHeader rejects a public witness whose header announces more
// field elements than the bytes that follow it can hold.
func checkWitnessHeader(b []byte, elemBytes int) error {
	if len(b) < witnessHeaderLen {
		return fmt.Errorf("read witnessPublic: %d bytes, header needs %d", len(b), witnessHeaderLen)
	}
	nbPublic := uint64(binary.BigEndian.Uint32(b[0:4]))
	nbSecret := uint64(binary.BigEndian.Uint32(b[4:8]))
	vectorLen := uint64(binary.BigEndian.Uint32(b[8:12]))
	if nbPublic+nbSecret != vectorLen {
		return fmt.Errorf("read witnessPublic: header counts %d public and %d secret values but holds %d", nbPublic, nbSecret, vectorLen)
	}
	if remaining := uint64(len(b) - witnessHeaderLen); vectorLen*uint64(elemBytes) > remaining {
		return fmt.Errorf("read witnessPublic: %d values need %d bytes, have %d", vectorLen, vectorLen*uint64(elemBytes), remaining)
	}
	return nil
}

func decodeBase64(name, s string) ([]byte, error) {
	if base64.StdEncoding.DecodedLen(len(s)) > MaxFieldBytes {
		return nil, fmt.Errorf("decode %s: larger than %d bytes", name, MaxFieldBytes)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s from base64: %w", name, err)
	}
	return b, nil
}

func readBase64(name, s string, dst io.ReaderFrom) error {
	b, err := decodeBase64(name, s)
	if err != nil {
		return err
	}
	return readFrom(name, b, dst)
}

func readFrom(name string, b []byte, dst io.ReaderFrom) error {
	return guard("read "+name, func() error {
		_, err := dst.ReadFrom(io.LimitReader(bytes.NewReader(b), int64(len(b))))
		return err
	})
}

// guard turns a decoder panic into an error.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", op, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
