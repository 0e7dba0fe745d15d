package studio

import (
	"context"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/generator"
	"github.com/shouni/gemini-image-studio/pkg/imagen"
	"github.com/shouni/gemini-image-studio/pkg/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStudio(t *testing.T, store session.Store, p *mockPredictor, ai *mockAIClient, total int) *Studio {
	t.Helper()
	s, err := Open(context.Background(), store, Dependencies{
		Predictor:        p,
		Model:            ai,
		TotalTokens:      total,
		GeneratorOptions: generator.Options{InterCallDelay: -1},
		Logger:           quietLogger(),
	})
	require.NoError(t, err)
	return s
}

func okPredictor(t *testing.T) *mockPredictor {
	img := createTestPNG(t, color.RGBA{R: 200, A: 255})
	return &mockPredictor{respond: func(context.Context, imagen.PredictRequest) ([]byte, error) {
		return predictBody(img), nil
	}}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("保存済みの使用量を引き継ぐ", func(t *testing.T) {
		store := session.NewMemoryStore()
		saved := domain.NewSessionState()
		saved.UsedTokens = 300
		require.NoError(t, store.Save(ctx, saved))

		s := openStudio(t, store, okPredictor(t), &mockAIClient{}, 0)
		snap := s.Tokens()
		assert.Equal(t, 1000, snap.Total)
		assert.Equal(t, 300, snap.Used)
		assert.Equal(t, 700, snap.Available)
	})

	t.Run("設定の総量を優先する", func(t *testing.T) {
		s := openStudio(t, session.NewMemoryStore(), okPredictor(t), &mockAIClient{}, 2000)
		assert.Equal(t, 2000, s.Tokens().Total)
		assert.True(t, s.CanAfford(2000))
		assert.False(t, s.CanAfford(2001))
	})

	t.Run("総量の指定がなければ保存済みの総量を使う", func(t *testing.T) {
		store := session.NewMemoryStore()
		saved := domain.NewSessionState()
		saved.TotalTokens = 2500
		saved.UsedTokens = 100
		require.NoError(t, store.Save(ctx, saved))

		s := openStudio(t, store, okPredictor(t), &mockAIClient{}, 0)
		assert.Equal(t, 2500, s.Tokens().Total)
		assert.Equal(t, 2400, s.Tokens().Available)

		reloaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2500, reloaded.TotalTokens, "起動のたびに総量を戻さないのだ")
	})

	t.Run("依存関係が欠けていればエラー", func(t *testing.T) {
		_, err := Open(ctx, nil, Dependencies{})
		assert.Error(t, err)

		_, err = Open(ctx, session.NewMemoryStore(), Dependencies{Model: &mockAIClient{}})
		assert.Error(t, err, "predictor がないのだ")
	})
}

func TestStudio_Generate(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	s := openStudio(t, store, okPredictor(t), &mockAIClient{}, 0)

	res, err := s.Generate(ctx, domain.GenerationRequest{Prompt: "red square", Count: 2, AspectRatio: domain.AspectSquare})
	require.NoError(t, err)
	require.Len(t, res.Images, 2)

	state := s.State()
	assert.Equal(t, 2, state.GeneratedCount)
	assert.Equal(t, 100, state.UsedTokens)
	require.Len(t, state.RecentImages, 2)
	for _, r := range state.RecentImages {
		assert.True(t, strings.HasPrefix(r.URL, "data:image/jpeg;base64,"), "履歴は JPEG で保存する")
		assert.Equal(t, "red square", r.Prompt)
		assert.NotEmpty(t, r.ID)
	}
	assert.Same(t, res, s.LastBatch())

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, saved.UsedTokens, "トークンの変化も保存されるのだ")
	assert.Equal(t, 2, saved.GeneratedCount)
	assert.Len(t, saved.RecentImages, 2)
}

func TestStudio_Generate_AllFail(t *testing.T) {
	p := &mockPredictor{respond: func(context.Context, imagen.PredictRequest) ([]byte, error) {
		return nil, domain.ErrTransport
	}}
	s := openStudio(t, session.NewMemoryStore(), p, &mockAIClient{}, 0)

	_, err := s.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Count: 3, AspectRatio: domain.AspectSquare})
	assert.ErrorIs(t, err, domain.ErrNoImages)
	assert.Equal(t, 0, s.Tokens().Used)
	assert.Zero(t, s.State().GeneratedCount)
	assert.Empty(t, s.Recent())
}

func TestStudio_Generate_StaleResultIsNotPublished(t *testing.T) {
	slowImg := createTestPNG(t, color.RGBA{B: 200, A: 255})
	fastImg := createTestPNG(t, color.RGBA{G: 200, A: 255})

	entered := make(chan struct{})
	release := make(chan struct{})
	p := &mockPredictor{respond: func(_ context.Context, req imagen.PredictRequest) ([]byte, error) {
		if req.Prompt == "slow" {
			close(entered)
			<-release
			return predictBody(slowImg), nil
		}
		return predictBody(fastImg), nil
	}}
	s := openStudio(t, session.NewMemoryStore(), p, &mockAIClient{}, 0)

	type outcome struct {
		res *generator.BatchResult
		err error
	}
	slowDone := make(chan outcome, 1)
	go func() {
		res, err := s.Generate(context.Background(), domain.GenerationRequest{Prompt: "slow", Count: 1, AspectRatio: domain.AspectSquare})
		slowDone <- outcome{res, err}
	}()
	<-entered

	fast, err := s.Generate(context.Background(), domain.GenerationRequest{Prompt: "fast", Count: 1, AspectRatio: domain.AspectSquare})
	require.NoError(t, err)

	close(release)
	slow := <-slowDone
	require.NoError(t, slow.err)
	require.Len(t, slow.res.Images, 1, "古い結果も呼び出し元には返すのだ")

	assert.Same(t, fast, s.LastBatch())
	recent := s.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "fast", recent[0].Prompt)
	assert.Equal(t, 1, s.State().GeneratedCount)
	assert.Equal(t, 100, s.Tokens().Used, "トークンは両方の成功分を消費する")
}

func TestStudio_Edit(t *testing.T) {
	ctx := context.Background()
	original := createTestPNG(t, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	t.Run("手動編集の成功で生成枚数が増える", func(t *testing.T) {
		ai := &mockAIClient{generate: func(string) (*gemini.Response, error) {
			return editedResponse([]byte("edited")), nil
		}}
		s := openStudio(t, session.NewMemoryStore(), okPredictor(t), ai, 0)

		res, err := s.Edit(ctx, EditRequest{Image: original, AspectRatio: domain.AspectLandscape, Mode: domain.EditModeManual, Prompt: "add clouds"})
		require.NoError(t, err)
		assert.Equal(t, []byte("edited"), res.Image.Data)
		assert.Equal(t, 1, s.State().GeneratedCount)
		assert.Equal(t, 50, s.Tokens().Used)
		require.NotNil(t, s.EditSession().EditedImage)
		assert.Empty(t, s.Recent(), "編集結果は履歴に入れない")
	})

	t.Run("返した編集セッションを書き換えても内部状態は変わらない", func(t *testing.T) {
		ai := &mockAIClient{generate: func(string) (*gemini.Response, error) {
			return editedResponse([]byte("edited")), nil
		}}
		s := openStudio(t, session.NewMemoryStore(), okPredictor(t), ai, 0)
		_, err := s.Edit(ctx, EditRequest{Image: original, Mode: domain.EditModeManual, Prompt: "add clouds"})
		require.NoError(t, err)

		got := s.EditSession()
		require.NotNil(t, got.EditedImage)
		got.EditedImage.Data[0] = 'X'
		got.OriginalImage[0] = 0
		got.Prompt = "changed"
		got.EditedImage = nil

		again := s.EditSession()
		require.NotNil(t, again.EditedImage)
		assert.Equal(t, []byte("edited"), again.EditedImage.Data)
		assert.Equal(t, original, again.OriginalImage)
		assert.Equal(t, "add clouds", again.Prompt)
	})

	t.Run("自動補正の代替結果も 1 枚として数える", func(t *testing.T) {
		ai := &mockAIClient{generate: func(string) (*gemini.Response, error) {
			return nil, errors.New("unavailable")
		}}
		s := openStudio(t, session.NewMemoryStore(), okPredictor(t), ai, 0)

		res, err := s.Edit(ctx, EditRequest{Image: original, Mode: domain.EditModeAuto})
		require.NoError(t, err)
		assert.True(t, res.Simulated)
		assert.Equal(t, 1, s.State().GeneratedCount)
		assert.Equal(t, 0, s.Tokens().Used)
	})

	t.Run("失敗時は生成枚数もトークンも変わらない", func(t *testing.T) {
		ai := &mockAIClient{generate: func(string) (*gemini.Response, error) {
			return nil, errors.New("unavailable")
		}}
		s := openStudio(t, session.NewMemoryStore(), okPredictor(t), ai, 0)

		_, err := s.Edit(ctx, EditRequest{Image: original, Mode: domain.EditModeManual, Prompt: "x"})
		assert.ErrorIs(t, err, domain.ErrEditFailed)
		assert.Zero(t, s.State().GeneratedCount)
		assert.Equal(t, 0, s.Tokens().Used)
	})
}

func TestStudio_Preferences(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	s := openStudio(t, store, okPredictor(t), &mockAIClient{}, 0)

	_, err := s.Generate(ctx, domain.GenerationRequest{Prompt: "x", Count: 1, AspectRatio: domain.AspectSquare})
	require.NoError(t, err)

	assert.Equal(t, domain.ThemeLight, s.ToggleTheme())
	s.ClearRecent()
	s.SetCredential("blob")

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeLight, saved.Theme)
	assert.Empty(t, saved.RecentImages)
	assert.Equal(t, "blob", saved.CredentialBlob)
	assert.Equal(t, 1, saved.GeneratedCount)
}
