package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/inkwellai/inkwell/internal/chat"
	"github.com/inkwellai/inkwell/internal/compose"
	"github.com/inkwellai/inkwell/internal/config"
	"github.com/inkwellai/inkwell/internal/db"
	"github.com/inkwellai/inkwell/internal/dedup"
	"github.com/inkwellai/inkwell/internal/diary"
	"github.com/inkwellai/inkwell/internal/docs"
	"github.com/inkwellai/inkwell/internal/feishu"
	"github.com/inkwellai/inkwell/internal/inbound"
	"github.com/inkwellai/inkwell/internal/logger"
	"github.com/inkwellai/inkwell/internal/server"
	"github.com/inkwellai/inkwell/internal/session"
	"github.com/inkwellai/inkwell/internal/sweeper"
	"github.com/inkwellai/inkwell/internal/webhook"
)

func runServe() {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideLarkClient,
			provideEventCipher,
			provideDedupCache,
			feishu.NewNotifier,
			feishu.NewResourceFetcher,
			provideChatClient,
			provideComposer,
			session.NewStore,
			diary.NewStore,
			providePublisher,
			provideTextHandler,
			provideAudioHandler,
			provideMediaHandler,
			provideDispatcher,
			provideWebhookHandler,
			provideSweeper,
			provideServer,
		),
		fx.Invoke(runMigrations, startSweeper, startServer),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	)
	app.Run()
}

func provideConfig() (config.Config, error) {
	return config.Load(resolveConfigPath())
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func provideLarkClient(cfg config.Config) (*lark.Client, error) {
	return feishu.NewClient(cfg.Feishu)
}

func provideEventCipher(cfg config.Config) *feishu.EventCipher {
	return feishu.NewEventCipher(cfg.Feishu.EncryptKey)
}

func provideDedupCache() *dedup.Cache {
	return dedup.NewCache(dedup.DefaultWindow)
}

func provideChatClient(cfg config.Config) *chat.Client {
	return chat.NewClient(cfg.LLM)
}

func provideComposer(client *chat.Client, log *slog.Logger) *compose.Composer {
	return compose.NewComposer(client, log)
}

func providePublisher(client *lark.Client, fetcher *feishu.ResourceFetcher, cfg config.Config, log *slog.Logger) *docs.Publisher {
	return docs.NewPublisher(client, fetcher, cfg.Diary, log)
}

func provideTextHandler(sessions *session.Store, composer *compose.Composer, diaries *diary.Store, publisher *docs.Publisher, notifier *feishu.Notifier, cfg config.Config, log *slog.Logger) *inbound.TextHandler {
	return inbound.NewTextHandler(sessions, composer, diaries, publisher, notifier, cfg.Diary.DocBaseURL, log)
}

func provideAudioHandler(notifier *feishu.Notifier, log *slog.Logger) *inbound.AudioHandler {
	return inbound.NewAudioHandler(notifier, log)
}

func provideMediaHandler(sessions *session.Store, notifier *feishu.Notifier, log *slog.Logger) *inbound.MediaHandler {
	return inbound.NewMediaHandler(sessions, notifier, log)
}

func provideDispatcher(text *inbound.TextHandler, audio *inbound.AudioHandler, media *inbound.MediaHandler, notifier *feishu.Notifier, log *slog.Logger) *inbound.Dispatcher {
	return inbound.NewDispatcher(text, audio, media, notifier, log)
}

func provideWebhookHandler(cipher *feishu.EventCipher, cache *dedup.Cache, dispatcher *inbound.Dispatcher, diaries *diary.Store, log *slog.Logger) *webhook.Handler {
	return webhook.NewHandler(cipher, cache, dispatcher, diaries, log)
}

func provideSweeper(sessions *session.Store, log *slog.Logger) *sweeper.Sweeper {
	return sweeper.NewSweeper(sessions, log)
}

func provideServer(cfg config.Config, log *slog.Logger, hook *webhook.Handler) *server.Server {
	return server.NewServer(cfg.Server.Addr, log, hook)
}

func runMigrations(cfg config.Config, log *slog.Logger) error {
	if err := db.Migrate(cfg.Postgres); err != nil {
		log.Error("migrate", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func startSweeper(lc fx.Lifecycle, sw *sweeper.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sw.Start()
		},
		OnStop: func(ctx context.Context) error {
			sw.Stop()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, srv *server.Server, log *slog.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("server stopped", slog.String("error", err.Error()))
					if shutdownErr := shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
						os.Exit(1)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
