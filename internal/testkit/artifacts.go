package testkit

import (
	"encoding/json"
	"testing"
)

// Artifact is the on-disk proof artifact schema.
type Artifact struct {
	Proof         string `json:"proof"`
	VK            string `json:"vk"`
	WitnessPublic string `json:"witnessPublic"`
}

// WriteArtifact writes a proof artifact JSON file named name into dir.
func WriteArtifact(t *testing.T, dir, name string, a Artifact) string {
	t.Helper()
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	return WriteFile(t, dir, name, b)
}
