package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuukiLike/cc-catch-news/internal/config"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"CATCHNEWS_ONCE", "CATCHNEWS_CONFIG", "CATCHNEWS_LOG_LEVEL",
		"AI_API_KEY", "AI_BASE_URL", "AI_MODEL", "LOG_LEVEL", "CRON_SCHEDULE", "TOP_N", "DATABASE_URL",
	} {
		t.Setenv(env, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catchnews.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "catchnews")
	assert.Contains(t, out, "--once")
	assert.Contains(t, out, "--log-level")
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "catchnews 1.2.3\n", out)
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "--once", "--config", filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestRootCommand_RejectsPositionalArgs(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "now")
	require.Error(t, err)
}

func TestCheckCommand_ReportsConfig(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
ai:
  apiKey: sk-test
  model: gpt-4o-mini
scheduler:
  cronExpression: "30 7 * * *"
`)

	out, err := execute(t, "check", "--config", path)

	require.NoError(t, err)
	assert.Contains(t, out, "schedule: 30 7 * * * (UTC)")
	assert.Contains(t, out, "model: gpt-4o-mini")
	assert.Contains(t, out, "persistence: false")
}

func TestCheckCommand_LogLevelOverrideIsValidated(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "ai:\n  apiKey: sk-test\n")

	_, err := execute(t, "check", "--config", path, "--log-level", "loud")

	require.ErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestCheckCommand_ConfigPathFromEnv(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "ai:\n  apiKey: sk-test\n  model: env-model\n")
	t.Setenv("CATCHNEWS_CONFIG", path)

	out, err := execute(t, "check")

	require.NoError(t, err)
	assert.Contains(t, out, "model: env-model")
}
