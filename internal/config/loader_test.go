package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultStorePath, cfg.StorePath)
	assert.Equal(t, DefaultSchemaPath, cfg.SchemaPath)
	assert.Equal(t, DefaultHistoryFile, cfg.HistoryFile)
	assert.Equal(t, 0, cfg.Concurrency)
	assert.False(t, cfg.Verbose)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "starstore.yaml")
	content := `
store_path: /data/objects.db
concurrency: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/objects.db", cfg.StorePath)
	assert.Equal(t, 4, cfg.Concurrency)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, DefaultSchemaPath, cfg.SchemaPath)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "starstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_path: from-file.db\n"), 0o644))

	t.Setenv("STARSTORE_STORE_PATH", "from-env.db")
	t.Setenv("STARSTORE_VERBOSE", "true")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.StorePath)
	assert.True(t, cfg.Verbose)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("STARSTORE_STORE_PATH", "from-env.db")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("store-path", DefaultStorePath, "")
	fs.String("schema-path", DefaultSchemaPath, "")
	fs.Int("concurrency", 0, "")
	require.NoError(t, fs.Parse([]string{"--store-path", "from-flag.db"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "from-flag.db", cfg.StorePath)
	// Unchanged flags do not clobber lower precedence layers.
	assert.Equal(t, DefaultSchemaPath, cfg.SchemaPath)
}
