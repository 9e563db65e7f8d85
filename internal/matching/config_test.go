package matching

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClampsTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, Config{}.Normalize().TopK)
	assert.Equal(t, MinTopK, Config{TopK: 5}.Normalize().TopK)
	assert.Equal(t, MaxTopK, Config{TopK: 500}.Normalize().TopK)
	assert.Equal(t, 42, Config{TopK: 42}.Normalize().TopK)

	c := Config{}.Normalize()
	assert.Equal(t, DefaultGate, c.Gate)
	assert.Equal(t, DefaultConcurrency, c.Concurrency)
	assert.Equal(t, "chunks", c.VectorNamespace)
	assert.Equal(t, MaxConcurrency, Config{Concurrency: 1000}.Normalize().Concurrency)
}

func TestValidateRejectsBadGate(t *testing.T) {
	var verr *ValidationError
	require.ErrorAs(t, Config{Gate: 1.5}.Normalize().Validate(), &verr)
	assert.Equal(t, "gate", verr.Field)
	require.ErrorAs(t, Config{EvidenceChunks: 4}.Normalize().Validate(), &verr)
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigYAMLAndTOML(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("top_k: 12\ngate: 0.7\nconcurrency: 8\n"), 0o644))
	cfg, err := LoadConfig(yml)
	require.NoError(t, err)
	assert.Equal(t, MinTopK, cfg.TopK)
	assert.Equal(t, 0.7, cfg.Gate)
	assert.Equal(t, 8, cfg.Concurrency)

	tml := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(tml, []byte("top_k = 40\nvector_namespace = \"docs\"\n"), 0o644))
	cfg, err = LoadConfig(tml)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.TopK)
	assert.Equal(t, "docs", cfg.VectorNamespace)
	assert.Equal(t, DefaultGate, cfg.Gate)

	_, err = LoadConfig(filepath.Join(dir, "engine.ini"))
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MATCH_TOP_K", "25")
	t.Setenv("MATCH_LOCK_WAIT_SECONDS", "3")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.TopK)
	assert.Equal(t, 3*time.Second, cfg.LockWait)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "engine.yaml")
	want := DefaultConfig()
	want.TopK = 35
	require.NoError(t, SaveConfig(path, want))
	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 35, got.TopK)
	assert.Equal(t, want.Gate, got.Gate)
}
