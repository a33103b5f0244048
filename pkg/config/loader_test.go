package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/config"
)

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		type defaultsConfig struct {
			Addr    string `env:"TEST_CFG_ADDR" envDefault:":8080"`
			Retries int    `env:"TEST_CFG_RETRIES" envDefault:"3"`
		}

		var cfg defaultsConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 3, cfg.Retries)
	})

	t.Run("reads environment", func(t *testing.T) {
		type envConfig struct {
			Name string `env:"TEST_CFG_NAME"`
		}

		t.Setenv("TEST_CFG_NAME", "storekit")

		var cfg envConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "storekit", cfg.Name)
	})

	t.Run("cached per type", func(t *testing.T) {
		type cachedConfig struct {
			Value string `env:"TEST_CFG_CACHED" envDefault:"first"`
		}

		var first cachedConfig
		require.NoError(t, config.Load(&first))
		require.Equal(t, "first", first.Value)

		// A changed environment must not affect an already-loaded type.
		t.Setenv("TEST_CFG_CACHED", "second")

		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Value)
	})

	t.Run("nil pointer", func(t *testing.T) {
		type nilConfig struct{}
		err := config.Load[nilConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})

	t.Run("required variable missing", func(t *testing.T) {
		type requiredConfig struct {
			Secret string `env:"TEST_CFG_REQUIRED_SECRET,required"`
		}

		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}
