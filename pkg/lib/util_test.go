package lib

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewID_IsUUIDv4(t *testing.T) {
	id, err := uuid.Parse(NewID())
	require.NoError(t, err)
	require.Equal(t, uuid.Version(4), id.Version())
}

func TestExpand_VarsWinOverEnvironment(t *testing.T) {
	t.Setenv("ENV_DIR", "/from/env")
	t.Setenv("ORION_TEST_ONLY", "env-value")

	vars := map[string]string{"ENV_DIR": ".venv"}
	require.Equal(t, ".venv/bin/python", Expand("${ENV_DIR}/bin/python", vars))
	require.Equal(t, "env-value", Expand("$ORION_TEST_ONLY", vars))
	require.Equal(t, "x", Expand("x${ORION_UNSET_VARIABLE}", vars))
}

func TestExpandAll(t *testing.T) {
	got := ExpandAll([]string{"${ENV_DIR}/bin/pip", "install", "-r", "${MANIFEST}"}, map[string]string{
		"ENV_DIR":  "/srv/orion/.venv",
		"MANIFEST": "/srv/orion/requirements.txt",
	})
	require.Equal(t, []string{"/srv/orion/.venv/bin/pip", "install", "-r", "/srv/orion/requirements.txt"}, got)
}

func TestCommandLine(t *testing.T) {
	require.Equal(t, ".venv/bin/python bot.py", CommandLine([]string{".venv/bin/python", "bot.py"}))
	require.Equal(t, "", CommandLine(nil))
}

func TestProcessStateString(t *testing.T) {
	require.Equal(t, "running", ProcessStateRunning.String())
	require.Equal(t, "stopped", ProcessStateStopped.String())
	require.Equal(t, "unknown", ProcessStateUnspecified.String())
}
