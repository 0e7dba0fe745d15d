package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/gemini-image-studio/pkg/adapters"
	"github.com/shouni/gemini-image-studio/pkg/config"
	"github.com/shouni/gemini-image-studio/pkg/editor"
	"github.com/shouni/gemini-image-studio/pkg/generator"
	"github.com/shouni/gemini-image-studio/pkg/imagen"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
	"github.com/shouni/gemini-image-studio/pkg/session"
	"github.com/shouni/gemini-image-studio/pkg/source"
	"github.com/shouni/gemini-image-studio/pkg/studio"
)

const usage = `usage: imagestudio <command> [flags]

commands:
  generate   プロンプトから画像を生成します
  edit       画像を編集します (manual / auto)
  tokens     トークン残高を表示します
  history    生成履歴を表示します (-clear で削除)
  theme      テーマを切り替えます
`

func main() {
	// .env は任意
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	cmd, ok := commands[command]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logger)
	slog.SetDefault(logger)

	app, cleanup, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return cmd(ctx, app, args, out)
}

func newLogger(cfg config.LoggerConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Encoding == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// app はサブコマンドが使う組み立て済みの部品です。
type app struct {
	studio *studio.Studio
	loader *source.Loader
	logger *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, func(), error) {
	store, closeStore, err := newStore(cfg.Session)
	if err != nil {
		return nil, nil, err
	}

	predictor, err := imagen.New(imagen.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.ImagenModel,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	model, err := adapters.NewGenAIModel(ctx, adapters.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	s, err := studio.Open(ctx, store, studio.Dependencies{
		Predictor:   predictor,
		Model:       model,
		Cache:       cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval),
		TotalTokens: cfg.Tokens.Total,
		GeneratorOptions: generator.Options{
			InterCallDelay: cfg.Generation.InterCallDelay,
			BatchTimeout:   cfg.Generation.BatchTimeout,
		},
		EditorOptions: editor.Options{
			EditModel:      cfg.Gemini.EditModel,
			VisionModel:    cfg.Gemini.VisionModel,
			FallbackEffect: imgutil.Effect(cfg.Edit.FallbackEffect),
			InlineLimit:    cfg.Edit.InlineLimit,
			CacheTTL:       cfg.Cache.TTL,
		},
		Logger: logger,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	reader, closeReader := newInputReader(ctx, logger)
	loader := source.NewLoader(httpkit.New(cfg.HTTP.Timeout), reader)

	cleanup := func() {
		closeReader()
		closeStore()
	}
	return &app{studio: s, loader: loader, logger: logger}, cleanup, nil
}

// newInputReader は GCS に接続できれば gs:// も読める reader を返します。
// 認証情報がない環境ではローカルファイルだけを読む reader にフォールバックします。
func newInputReader(ctx context.Context, logger *slog.Logger) (remoteio.InputReader, func()) {
	noop := func() {}
	factory, err := gcsfactory.New(ctx)
	if err != nil {
		logger.DebugContext(ctx, "GCS クライアントを使わずに起動します", "error", err)
		return remoteio.NewUniversalInputReader(nil, nil), noop
	}
	closeFactory := func() {
		if err := factory.Close(); err != nil {
			logger.Warn("GCS クライアントのクローズに失敗しました", "error", err)
		}
	}
	reader, err := factory.InputReader()
	if err != nil {
		closeFactory()
		logger.WarnContext(ctx, "GCS の InputReader を作成できませんでした", "error", err)
		return remoteio.NewUniversalInputReader(nil, nil), noop
	}
	return reader, closeFactory
}

func newStore(cfg config.SessionConfig) (session.Store, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case config.BackendMemory:
		return session.NewMemoryStore(), noop, nil
	case config.BackendFile:
		s, err := session.NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.BackendRedis:
		s, err := session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("Redis のクローズに失敗しました", "error", err)
			}
		}, nil
	default:
		return nil, nil, errors.New("unsupported session backend: " + cfg.Backend)
	}
}
