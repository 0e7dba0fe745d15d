package generator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/extract"
	"github.com/shouni/gemini-image-studio/pkg/imagen"
	"github.com/shouni/gemini-image-studio/pkg/ledger"
)

// Generator は 1 回の生成要求を、1 枚ずつの連続したリモート呼び出しに分解します。
// 途中の失敗は記録して続行し、得られた枚数分だけトークンを消費します。
type Generator struct {
	predictor Predictor
	ledger    TokenLedger
	opts      Options
}

// New は Generator を初期化します。
func New(predictor Predictor, tokens TokenLedger, opts Options) (*Generator, error) {
	if predictor == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	return &Generator{
		predictor: predictor,
		ledger:    tokens,
		opts:      opts.withDefaults(),
	}, nil
}

// batch はループ側と待ち受け側で共有する収集状態です。
// 打ち切り後に届いた画像は捨てられます。
type batch struct {
	mu      sync.Mutex
	images  []domain.GeneratedImage
	stopped bool
}

func (b *batch) add(img domain.GeneratedImage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return false
	}
	b.images = append(b.images, img)
	return true
}

// stop は以降の追加を拒否し、それまでに集まった画像を返します。
func (b *batch) stop() []domain.GeneratedImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	return append([]domain.GeneratedImage(nil), b.images...)
}

// Generate は req.Count 枚の画像を順番に生成します。
//
// 戻り値のエラーは次のとおりです。
//   - 入力不正: domain.ErrValidation (トークンは変化しない)
//   - 残高不足: domain.ErrInsufficientTokens (リモート呼び出しなし)
//   - 1 枚も得られなかった: domain.ErrNoImages (トークンは全額払い戻し)
//   - 制限時間超過 / キャンセル: domain.ErrTimeout または ctx のエラー。
//     それまでに得た画像を BatchResult に入れて返します。
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (*BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reservation, err := g.ledger.Reserve(req.Count * ledger.CostPerImage)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := g.opts.Logger.With("generation_id", id)
	logger.InfoContext(ctx, "画像生成バッチを開始します", "count", req.Count, "aspect_ratio", req.AspectRatio)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := &batch{}
	done := make(chan error, 1)
	go func() {
		done <- g.runLoop(loopCtx, id, req, b)
	}()

	timer := time.NewTimer(g.opts.BatchTimeout)
	defer timer.Stop()

	var loopErr error
	select {
	case loopErr = <-done:
	case <-timer.C:
		loopErr = fmt.Errorf("%w: %s 以内に完了しませんでした", domain.ErrTimeout, g.opts.BatchTimeout)
		logger.WarnContext(ctx, "バッチの制限時間を超えたため打ち切ります", "timeout", g.opts.BatchTimeout)
	case <-ctx.Done():
		loopErr = ctx.Err()
	}
	// 待ち受け側が勝った場合、ループで進行中の呼び出しはここで取り消されます。
	images := b.stop()
	cancel()

	reservation.Settle(len(images) * ledger.CostPerImage)

	if len(images) == 0 {
		logger.ErrorContext(ctx, "画像を 1 枚も生成できませんでした", "error", loopErr)
		if loopErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrNoImages, loopErr)
		}
		return nil, fmt.Errorf("%w: %d 件すべて失敗しました", domain.ErrNoImages, req.Count)
	}

	result := &BatchResult{
		GenerationID: id,
		Images:       images,
		Requested:    req.Count,
		Partial:      len(images) < req.Count,
	}
	logger.InfoContext(ctx, "画像生成バッチが終了しました", "succeeded", len(images), "requested", req.Count)
	return result, loopErr
}

// runLoop は 1 枚ずつ呼び出し、成功した画像を b に追加します。
// 停止された場合は ctx のエラーを返します。
func (g *Generator) runLoop(ctx context.Context, id string, req domain.GenerationRequest, b *batch) error {
	for i := 0; i < req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		img, err := g.generateOne(ctx, req)
		if err != nil {
			g.opts.Logger.WarnContext(ctx, "画像の生成に失敗しました。次に進みます",
				"generation_id", id, "index", i, "error", err)
		} else if !b.add(*img) {
			g.opts.Logger.InfoContext(ctx, "打ち切り後に届いた画像を破棄しました", "generation_id", id, "index", i)
			return ctx.Err()
		}

		if i == req.Count-1 || g.opts.InterCallDelay <= 0 {
			continue
		}
		if err := sleep(ctx, g.opts.InterCallDelay); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateOne(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedImage, error) {
	body, err := g.predictor.Predict(ctx, imagen.PredictRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio.String(),
		SampleCount: 1,
	})
	if err != nil {
		return nil, err
	}
	out := extract.Generated(body)
	if out == nil {
		return nil, domain.ErrNoImageInResponse
	}
	return &domain.GeneratedImage{
		Data:         out.Data,
		MimeType:     out.MimeType,
		SourcePrompt: req.Prompt,
		AspectRatio:  req.AspectRatio,
		CreatedAt:    g.opts.Now(),
	}, nil
}

// sleep は d だけ待ちます。ctx が先に終われば ctx のエラーを返します。
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
