// Package artifact finds and parses the proof artifacts written by the
// generation tool.
//
// Artifacts are JSON files named {protocol}_{curve}_<timestamp>.json holding
// base64 strings:
//
//	{"proof": "...", "vk": "...", "witnessPublic": "..."}
//
// A lookup miss is reported with ErrNotFound and is never a failure.
package artifact

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/zkverify/model"
)

// ErrNotFound reports that no artifact matches a matrix entry.
var ErrNotFound = errors.New("artifact: not found")

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// ProofArtifact is one parsed artifact file.
type ProofArtifact struct {
	Protocol      model.Protocol
	Curve         string
	Proof         string
	VerifyingKey  string
	PublicWitness string
	SourcePath    string
	// ContentID is the CIDv1 (raw, sha2-256) of the file bytes.
	ContentID cid.Cid
}

// Selection picks one file when several match.
type Selection int

const (
	// SelectFirst takes the first match in listing order.
	SelectFirst Selection = iota
	// SelectLatest takes the lexicographically largest name, which is the
	// newest timestamp suffix.
	SelectLatest
)

// ParseSelection accepts "first" and "latest".
func ParseSelection(s string) (Selection, error) {
	switch s {
	case "", "first":
		return SelectFirst, nil
	case "latest":
		return SelectLatest, nil
	default:
		return 0, model.ConfigError("artifact selection", "unknown selection "+s, nil)
	}
}

// Locator scans one output directory.
type Locator struct {
	Dir       string
	Selection Selection
}

// Prefix is the file name prefix for a matrix entry.
func Prefix(protocol model.Protocol, curve string) string {
	return string(protocol) + "_" + curve + "_"
}

// Candidates lists the paths of every file matching the entry, in listing
// order. os.ReadDir sorts by name, so the order is the same on every
// platform.
func (l *Locator) Candidates(protocol model.Protocol, curve string) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, model.ArtifactParseError("list artifacts", l.Dir, err)
	}
	prefix := Prefix(protocol, curve)
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, filepath.Join(l.Dir, name))
	}
	return out, nil
}

// Find returns the selected artifact for the entry, or ErrNotFound.
func (l *Locator) Find(protocol model.Protocol, curve string) (*ProofArtifact, error) {
	paths, err := l.Candidates(protocol, curve)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNotFound
	}
	path := paths[0]
	if l.Selection == SelectLatest {
		path = paths[len(paths)-1]
	}
	return Parse(path, protocol, curve)
}

type document struct {
	Proof         *string `json:"proof"`
	VK            *string `json:"vk"`
	WitnessPublic *string `json:"witnessPublic"`
}

// Parse reads one artifact file. Every one of proof, vk and witnessPublic
// must be present as a JSON string.
func Parse(path string, protocol model.Protocol, curve string) (*ProofArtifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, model.ArtifactParseError("parse artifact", path, err)
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, model.ArtifactParseError("parse artifact", path, err)
	}
	var missing []string
	if doc.Proof == nil {
		missing = append(missing, "proof")
	}
	if doc.VK == nil {
		missing = append(missing, "vk")
	}
	if doc.WitnessPublic == nil {
		missing = append(missing, "witnessPublic")
	}
	if len(missing) > 0 {
		return nil, model.ArtifactParseError("parse artifact", path+": missing "+strings.Join(missing, ", "), nil)
	}
	id, err := ContentID(b)
	if err != nil {
		return nil, model.ArtifactParseError("parse artifact", path, err)
	}
	return &ProofArtifact{
		Protocol:      protocol,
		Curve:         curve,
		Proof:         *doc.Proof,
		VerifyingKey:  *doc.VK,
		PublicWitness: *doc.WitnessPublic,
		SourcePath:    path,
		ContentID:     id,
	}, nil
}
