package main

import (
	"aifi/ai"
	"aifi/bot"
	"aifi/core"
	"aifi/lib/sl"
	"aifi/media"
	"aifi/server"
	"aifi/storage"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type storages struct {
	settings storage.SettingsStorage
	posts    storage.PostStorage
	assets   storage.AssetStorage
}

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("listen", conf.Listen),
	).Info("starting featured image service")

	store := openStorages(conf, log)

	defaults := storage.Settings{
		ApiKey:       conf.Defaults.ApiKey,
		DefaultSize:  conf.Defaults.Size,
		DefaultStyle: conf.Defaults.Style,
		AllowText:    conf.Defaults.AllowText,
		OutputFormat: conf.Defaults.OutputFormat,
		ImageQuality: conf.Defaults.ImageQuality,
		AiModel:      conf.Defaults.Model,
	}
	settings, err := storage.EnsureSettings(store.settings, defaults)
	if err != nil {
		log.Error("initializing settings", sl.Err(err))
		os.Exit(1)
	}
	log.With(
		slog.String("model", settings.AiModel),
		slog.String("style", settings.DefaultStyle),
		sl.Secret(settings.ApiKey),
	).Info("settings loaded")

	library := media.NewLibrary(conf.Media.Dir, conf.Media.BaseURL, store.assets, store.posts, log)
	client := ai.NewImageClient(conf.OpenAI.ApiURL, conf.OpenAI.Timeout, log)
	generator := ai.NewGenerator(store.settings, store.posts, client, library, log)

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		tgBot, err = bot.NewTgBot(conf, log)
		if err != nil {
			log.Error("creating telegram", sl.Err(err))
		} else {
			tgBot.SetImageService(generator)
			generator.Subscribe(tgBot.Notify)
			go func() {
				if err := tgBot.Start(); err != nil {
					log.Error("bot stopped with error", sl.Err(err))
				}
			}()
			log.Info("telegram notifications enabled")
		}
	}

	if conf.Env == envProd {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(conf, generator, store.settings, store.posts, library, log)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server stopped with error", sl.Err(err))
			sigChan <- syscall.SIGTERM
		}
	}()

	sig := <-sigChan
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))

	// in-flight generations may take up to the provider timeout
	ctx, cancel := context.WithTimeout(context.Background(), conf.OpenAI.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutting down server", sl.Err(err))
	}
	if tgBot != nil {
		tgBot.Stop()
	}

	for _, c := range []interface{ Close() error }{store.settings, store.assets, store.posts} {
		if err := c.Close(); err != nil {
			log.Error("closing storage", sl.Err(err))
		}
	}

	log.Info("shutdown complete")
}

// openStorages uses MongoDB when enabled and falls back to memory
func openStorages(conf *core.Config, log *slog.Logger) storages {
	if conf.Mongo.Enabled {
		client, err := storage.ConnectMongo(conf.MongoURI())
		if err == nil {
			log.Info("using MongoDB storage")
			return storages{
				settings: storage.NewMongoSettingsStorage(client, conf.Mongo.Database, log),
				posts:    storage.NewMongoPostStorage(client, conf.Mongo.Database, log),
				assets:   storage.NewMongoAssetStorage(client, conf.Mongo.Database, log),
			}
		}
		log.With(
			slog.String("db", conf.Mongo.Database),
			slog.String("user", conf.Mongo.User),
			slog.String("host", conf.Mongo.Host),
		).Error("falling back to memory", sl.Err(err))
	} else {
		log.Info("using in-memory storage")
	}
	return storages{
		settings: storage.NewMemorySettingsStorage(),
		posts:    storage.NewMemoryPostStorage(),
		assets:   storage.NewMemoryAssetStorage(),
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
