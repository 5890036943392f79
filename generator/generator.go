// Package generator runs the external tool that produces proof artifacts
// before they are dispatched.
package generator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"xdao.co/zkverify/model"
)

// Generator produces proof artifacts.
type Generator interface {
	Generate(ctx context.Context) error
}

// Command is a Generator backed by an external executable.
//
// The tool runs in Dir; the calling process never changes its own working
// directory. A relative Path such as "./run.sh" is resolved against Dir.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory of the tool. Empty means the current one.
	Dir string
	// Env optionally overrides the command environment.
	// If nil, the process environment is used.
	Env []string
	Log zerolog.Logger
}

func (c *Command) Generate(ctx context.Context) error {
	if c.Path == "" {
		return model.GenerationError("generate", "no generator command configured", nil)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := c.Log.With().Str("component", "generator").Str("command", c.Path).Str("dir", c.Dir).Logger()
	log.Info().Strs("args", c.Args).Msg("running artifact generator")

	err := cmd.Run()
	logLines(log, zerolog.DebugLevel, stdout.Bytes())
	if err == nil {
		logLines(log, zerolog.WarnLevel, stderr.Bytes())
		log.Info().Msg("artifact generation finished")
		return nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		s := strings.TrimSpace(stderr.String())
		if s == "" {
			return model.GenerationError("generate", fmt.Sprintf("%s exited with code %d", c.Path, ee.ExitCode()), err)
		}
		return model.GenerationError("generate", s, err)
	}
	if ctx.Err() != nil {
		return model.GenerationError("generate", "generator interrupted", ctx.Err())
	}
	return model.GenerationError("generate", "cannot start "+c.Path, err)
}

func logLines(log zerolog.Logger, level zerolog.Level, out []byte) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			log.WithLevel(level).Msg(line)
		}
	}
}

// Skip is a Generator that does nothing, for runs against existing artifacts.
type Skip struct {
	Log zerolog.Logger
}

func (s Skip) Generate(context.Context) error {
	s.Log.Info().Str("component", "generator").Msg("artifact generation skipped")
	return nil
}
