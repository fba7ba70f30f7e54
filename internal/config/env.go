package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type DiscordEnv struct {
	Token         string `envconfig:"DISCORD_TOKEN" required:"true"`
	CommandPrefix string `envconfig:"COMMAND_PREFIX" default:"/task "`
}

type StoreEnv struct {
	Type string `envconfig:"STORE_TYPE" default:"memory"`
	// Mongo settings (used when Type == "mongo")
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"taskmaster"`
}

type NotifyEnv struct {
	Interval time.Duration `envconfig:"NOTIFY_INTERVAL" default:"45s"`
}

type WizardEnv struct {
	Timeout time.Duration `envconfig:"WIZARD_TIMEOUT" default:"300s"`
	// Fallback zone for deadline expressions that carry no timezone
	// of their own.
	ReferenceTZ string `envconfig:"REFERENCE_TZ" default:"Europe/Dublin"`
}

type Env struct {
	BaseEnv
	DiscordEnv
	StoreEnv
	NotifyEnv
	WizardEnv
}

const namespace = "TASKBOT"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	// envconfig's required check passes for a set-but-empty variable
	if env.DiscordEnv.Token == "" {
		return nil, fmt.Errorf("%s_DISCORD_TOKEN must not be empty", namespace)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
