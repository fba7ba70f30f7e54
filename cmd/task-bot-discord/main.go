package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Xamyrz/task-bot-discord/internal/completion"
	"github.com/Xamyrz/task-bot-discord/internal/config"
	"github.com/Xamyrz/task-bot-discord/internal/eventbus"
	"github.com/Xamyrz/task-bot-discord/internal/gateway"
	"github.com/Xamyrz/task-bot-discord/internal/notify"
	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/internal/task/repositoryimpl"
	"github.com/Xamyrz/task-bot-discord/internal/wizard"
	"github.com/Xamyrz/task-bot-discord/pkg/clog"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Setup repository
	var repo task.Repository
	switch env.StoreEnv.Type {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(env.StoreEnv.MongoURI))
		cancel()
		if err != nil {
			slog.Error("failed to connect to mongo", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Warn("failed to disconnect from mongo", "error", err)
			}
		}()
		repo = repositoryimpl.NewMongoRepository(client.Database(env.StoreEnv.MongoDatabase))
	default:
		repo = repositoryimpl.NewMemoryRepository()
	}

	mgr := task.NewManager(repo)
	bus := eventbus.New()

	referenceTZ, err := time.LoadLocation(env.WizardEnv.ReferenceTZ)
	if err != nil {
		slog.Error("failed to load reference timezone", "tz", env.WizardEnv.ReferenceTZ, "error", err)
		os.Exit(1)
	}

	// Setup Discord session and gateway adapter
	session, err := discordgo.New("Bot " + env.DiscordEnv.Token)
	if err != nil {
		slog.Error("failed to create discord session", "error", err)
		os.Exit(1)
	}
	gw := gateway.New(session, bus, mgr, env.DiscordEnv.CommandPrefix)
	engine := wizard.NewEngine(gw, gw, repo, mgr, wizard.Config{
		Timeout:     env.WizardEnv.Timeout,
		ReferenceTZ: referenceTZ,
	})
	gw.SetEngine(engine)
	gw.Start()

	if err := session.Open(); err != nil {
		slog.Error("failed to open discord gateway", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close discord gateway", "error", err)
		}
	}()

	// Completion dispatcher and reminder scheduler
	dispatcher := completion.NewDispatcher(bus, mgr, gw)
	go dispatcher.Start(ctx)

	scheduler := notify.NewScheduler(repo, gw, gw, env.NotifyEnv.Interval)
	go scheduler.Start(ctx)

	slog.Info("task bot started", "store", env.StoreEnv.Type, "prefix", env.DiscordEnv.CommandPrefix)
	<-ctx.Done()
	slog.Info("shutting down")
}
