package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "test_", cfg.TablePrefix)
	assert.Equal(t, 2*time.Second, cfg.TypingWindow)
	assert.Equal(t, 5*time.Second, cfg.BranchUndoWindow)
	assert.True(t, cfg.UsesMemoryStore())
	assert.True(t, cfg.Debug)
}

func TestLoadYAMLOverlayThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pathway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
completion_provider: openai
typing_window: 3s
ws_send_buffer: 8
`), 0o600))

	t.Setenv("ENVIRONMENT", "dev")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port, "env wins over file")
	assert.Equal(t, "openai", cfg.CompletionProvider)
	assert.Equal(t, 3*time.Second, cfg.TypingWindow)
	assert.Equal(t, 8, cfg.WSSendBuffer)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("ENVIRONMENT", "dev")
	t.Setenv("TYPING_WINDOW", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProdRequiresJWKS(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("JWKS_URL", "")

	_, err := Load()
	assert.Error(t, err)
}
