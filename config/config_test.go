package config

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	t.Run("loads a toml file over the defaults", func(t *testing.T) {
		cfgPath := path.Join(t.TempDir(), "tembo.toml")
		body := `
db_file = "/tmp/custom.db"
pool_size = 32
leaf_max_size = 8
log_level = "debug"
`
		assert.NoError(t, os.WriteFile(cfgPath, []byte(body), 0644))

		cfg, err := Load(cfgPath)
		assert.NoError(t, err)
		assert.Equal(t, "/tmp/custom.db", cfg.DBFile)
		assert.Equal(t, 32, cfg.PoolSize)
		assert.Equal(t, 8, cfg.LeafMaxSize)
		assert.Equal(t, 0, cfg.InternalMaxSize)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("missing fields keep their defaults", func(t *testing.T) {
		cfgPath := path.Join(t.TempDir(), "tembo.toml")
		assert.NoError(t, os.WriteFile(cfgPath, []byte(`pool_size = 8`), 0644))

		cfg, err := Load(cfgPath)
		assert.NoError(t, err)
		assert.Equal(t, 8, cfg.PoolSize)
		assert.Equal(t, Default().DBFile, cfg.DBFile)
		assert.Equal(t, Default().LogLevel, cfg.LogLevel)
	})

	t.Run("a missing file is an error", func(t *testing.T) {
		_, err := Load(path.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}
