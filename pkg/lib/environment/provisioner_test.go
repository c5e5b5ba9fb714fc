package environment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Protezhe/OrionSupport/pkg/lib"
)

// testEnvironment records every install run in a counter file next to the environment.
func testEnvironment(t *testing.T, install string) (lib.Environment, string) {
	t.Helper()
	root := t.TempDir()
	manifest := filepath.Join(root, "requirements.txt")
	require.NoError(t, os.WriteFile(manifest, []byte("flask\n"), 0o644))

	dir := filepath.Join(root, ".venv")
	counter := filepath.Join(root, "installs")
	return lib.Environment{
		Dir:      dir,
		Manifest: manifest,
		Create:   []string{"mkdir", dir},
		Install:  []string{"sh", "-c", install, "sh", counter, manifest},
	}, root
}

func countInstalls(t *testing.T, root string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "installs"))
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func TestEnsure_CreatesOnceAndIsIdempotent(t *testing.T) {
	env, root := testEnvironment(t, `echo "installing from $2"; echo run >> "$1"`)
	p := NewProvisioner(env, root)

	created, err := p.Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, created)
	require.DirExists(t, env.Dir)
	require.Equal(t, 1, countInstalls(t, root))

	created, err = p.Ensure(context.Background())
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 1, countInstalls(t, root))
}

func TestEnsure_StreamsOutput(t *testing.T) {
	env, root := testEnvironment(t, `echo "Successfully installed flask"; echo run >> "$1"`)
	p := NewProvisioner(env, root)

	var live bytes.Buffer
	p.SetOutput(&live)

	_, err := p.Ensure(context.Background())
	require.NoError(t, err)
	require.Contains(t, live.String(), "Successfully installed flask")
}

func TestEnsure_InstallFailureIsFatalAndRollsBack(t *testing.T) {
	env, root := testEnvironment(t, `echo "ERROR: No matching distribution found for flaskk" >&2; exit 1`)
	p := NewProvisioner(env, root)

	created, err := p.Ensure(context.Background())
	require.False(t, created)

	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "install", perr.Step)
	require.Contains(t, perr.Output, "No matching distribution found for flaskk")
	require.Contains(t, err.Error(), "No matching distribution found for flaskk")
	require.NoDirExists(t, env.Dir)
}

func TestEnsure_MissingManifest(t *testing.T) {
	env, root := testEnvironment(t, `echo run >> "$1"`)
	require.NoError(t, os.Remove(env.Manifest))

	_, err := NewProvisioner(env, root).Ensure(context.Background())

	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.NoDirExists(t, env.Dir)
}

func TestEnsure_CreateFailure(t *testing.T) {
	env, root := testEnvironment(t, `echo run >> "$1"`)
	env.Create = []string{"sh", "-c", "echo 'python3: command not found' >&2; exit 127"}

	_, err := NewProvisioner(env, root).Ensure(context.Background())

	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "create", perr.Step)
	require.Contains(t, perr.Output, "command not found")
	require.Equal(t, 0, countInstalls(t, root))
}

func TestEnsure_CreateCommandThatDoesNotCreate(t *testing.T) {
	env, root := testEnvironment(t, `echo run >> "$1"`)
	env.Create = []string{"true"}

	_, err := NewProvisioner(env, root).Ensure(context.Background())

	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "create", perr.Step)
}

func TestEnsure_PathIsAFile(t *testing.T) {
	env, root := testEnvironment(t, `echo run >> "$1"`)
	require.NoError(t, os.WriteFile(env.Dir, []byte("not a dir"), 0o644))

	_, err := NewProvisioner(env, root).Ensure(context.Background())

	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "check", perr.Step)
}

func TestEnsure_NoCreateCommandMakesDirectory(t *testing.T) {
	env, root := testEnvironment(t, `echo run >> "$1"`)
	env.Create = nil

	created, err := NewProvisioner(env, root).Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, created)
	require.DirExists(t, env.Dir)
}
