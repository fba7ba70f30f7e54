package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("TASKBOT_DISCORD_TOKEN", "test-token")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "local", env.Env)
	assert.Equal(t, "test-token", env.DiscordEnv.Token)
	assert.Equal(t, "/task ", env.DiscordEnv.CommandPrefix)
	assert.Equal(t, "memory", env.StoreEnv.Type)
	assert.Equal(t, 45*time.Second, env.NotifyEnv.Interval)
	assert.Equal(t, 300*time.Second, env.WizardEnv.Timeout)
	assert.Equal(t, "Europe/Dublin", env.WizardEnv.ReferenceTZ)
}

func TestLoadEnv_TokenRequired(t *testing.T) {
	// set-but-empty must be rejected just like unset
	t.Setenv("TASKBOT_DISCORD_TOKEN", "")
	_, err := LoadEnv()
	assert.Error(t, err)

	os.Unsetenv("TASKBOT_DISCORD_TOKEN")
	_, err = LoadEnv()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, (&BaseEnv{LogLevel: "info"}).SlogLevel())
	assert.Equal(t, slog.LevelDebug, (&BaseEnv{LogLevel: "nonsense"}).SlogLevel())
}
