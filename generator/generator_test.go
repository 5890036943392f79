package generator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"xdao.co/zkverify/model"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestCommand_RunsInDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	before, err := os.Getwd()
	require.NoError(t, err)

	var buf bytes.Buffer
	g := &Command{
		Path: "sh",
		Args: []string{"-c", "echo made > out.txt; echo step one"},
		Dir:  dir,
		Log:  zerolog.New(&buf).Level(zerolog.DebugLevel),
	}
	require.NoError(t, g.Generate(context.Background()))

	b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "made\n", string(b))
	require.Contains(t, buf.String(), "step one")

	after, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestCommand_RelativePathResolvedAgainstDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	script := "#!/bin/sh\necho \"$1\" > arg.txt\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755))

	g := &Command{Path: "./run.sh", Args: []string{"generate"}, Dir: dir, Log: zerolog.Nop()}
	require.NoError(t, g.Generate(context.Background()))

	b, err := os.ReadFile(filepath.Join(dir, "arg.txt"))
	require.NoError(t, err)
	require.Equal(t, "generate\n", string(b))
}

func TestCommand_FailureCarriesStderr(t *testing.T) {
	requireShell(t)
	g := &Command{Path: "sh", Args: []string{"-c", "echo 'circuit compile failed' >&2; exit 3"}, Dir: t.TempDir(), Log: zerolog.Nop()}
	err := g.Generate(context.Background())
	require.Error(t, err)
	require.True(t, model.IsKind(err, model.KindGeneration))
	require.Contains(t, err.Error(), "circuit compile failed")
}

func TestCommand_FailureWithoutStderrNamesExitCode(t *testing.T) {
	requireShell(t)
	g := &Command{Path: "sh", Args: []string{"-c", "exit 2"}, Log: zerolog.Nop()}
	err := g.Generate(context.Background())
	require.True(t, model.IsKind(err, model.KindGeneration))
	require.Contains(t, err.Error(), "exited with code 2")
}

func TestCommand_MissingExecutable(t *testing.T) {
	g := &Command{Path: "./does-not-exist.sh", Dir: t.TempDir(), Log: zerolog.Nop()}
	err := g.Generate(context.Background())
	require.True(t, model.IsKind(err, model.KindGeneration))

	err = (&Command{}).Generate(context.Background())
	require.True(t, model.IsKind(err, model.KindGeneration))
}

func TestSkip(t *testing.T) {
	var g Generator = Skip{Log: zerolog.Nop()}
	require.NoError(t, g.Generate(context.Background()))
}

func TestCommand_SuccessLogsStderrAsWarning(t *testing.T) {
	requireShell(t)
	var buf bytes.Buffer
	g := &Command{
		Path: "sh",
		Args: []string{"-c", "echo 'solc: deprecated flag' >&2"},
		Dir:  t.TempDir(),
		Log:  zerolog.New(&buf).Level(zerolog.InfoLevel),
	}
	require.NoError(t, g.Generate(context.Background()))
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), "solc: deprecated flag")
}
