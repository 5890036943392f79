package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"xdao.co/zkverify/artifact"
	"xdao.co/zkverify/proofsys"
)

// runList is a dry run over the artifact directory. It never dials the peer
// and never runs the generator.
func (c *cli) runList(*cobra.Command, []string) error {
	cfg, _, err := c.load()
	if err != nil {
		return err
	}
	sel, err := artifact.ParseSelection(cfg.ArtifactSelection)
	if err != nil {
		return err
	}
	loc := &artifact.Locator{Dir: cfg.ArtifactDir, Selection: sel}

	for _, e := range proofsys.Matrix() {
		paths, err := loc.Candidates(e.Protocol, e.Curve)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintf(c.out, "%-20s not found\n", e)
			continue
		}
		a, err := loc.Find(e.Protocol, e.Curve)
		if err != nil {
			fmt.Fprintf(c.out, "%-20s invalid    %v\n", e, err)
			continue
		}
		line := fmt.Sprintf("%-20s %-40s %s", e, filepath.Base(a.SourcePath), a.ContentID)
		if len(paths) > 1 {
			line += fmt.Sprintf(" (%d candidates)", len(paths))
		}
		if cfg.Precheck {
			if err := proofsys.Verify(e.Protocol, e.Curve, a.Proof, a.VerifyingKey, a.PublicWitness); err != nil {
				line += " precheck: " + err.Error()
			} else {
				line += " precheck: ok"
			}
		}
		fmt.Fprintln(c.out, line)
	}
	return nil
}
