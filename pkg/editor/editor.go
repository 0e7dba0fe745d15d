package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/extract"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
	"github.com/shouni/gemini-image-studio/pkg/ledger"
)

// Editor はアップロードされた写真の背景編集を担当します。
// 手動モードは 1 段、自動補正モードは画像解析と編集の 2 段で動きます。
type Editor struct {
	client gemini.GenerativeModel
	ledger TokenLedger
	cache  ImageCacher
	opts   Options
}

// New は依存関係を注入して Editor を初期化します。
func New(client gemini.GenerativeModel, tokens TokenLedger, cache ImageCacher, opts Options) (*Editor, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	// cache は nil を許容（キャッシュなし動作）

	return &Editor{
		client: client,
		ledger: tokens,
		cache:  cache,
		opts:   opts.withDefaults(),
	}, nil
}

// Edit はセッションのモードに応じて編集を実行します。
// 成功時は session.EditedImage に結果がセットされます。
func (e *Editor) Edit(ctx context.Context, session *domain.EditSession) (*EditResult, error) {
	if !session.HasOriginal() {
		return nil, fmt.Errorf("%w: original image is required", domain.ErrValidation)
	}
	session.BeginAttempt()

	if session.Mode == domain.EditModeAuto {
		return e.autoEnhance(ctx, session)
	}
	return e.manualEdit(ctx, session)
}

func (e *Editor) manualEdit(ctx context.Context, session *domain.EditSession) (*EditResult, error) {
	userPrompt := strings.TrimSpace(session.Prompt)
	if userPrompt == "" {
		return nil, fmt.Errorf("%w: prompt is required for manual edit", domain.ErrValidation)
	}

	reservation, err := e.ledger.Reserve(ledger.CostManualEdit)
	if err != nil {
		return nil, err
	}

	ratio := session.AspectRatio.String()
	img, attempts, err := e.editRemote(ctx, session, func(attempt int) string {
		return manualEditPrompt(userPrompt, ratio, attempt > 0)
	})
	if err != nil {
		reservation.Refund()
		e.opts.Logger.ErrorContext(ctx, "手動編集に失敗しました", "attempts", attempts, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEditFailed, err)
	}
	if err := session.SetEdited(*img); err != nil {
		reservation.Refund()
		return nil, err
	}
	reservation.Commit()
	return &EditResult{Image: *img, Prompt: userPrompt, Attempts: attempts}, nil
}

func (e *Editor) autoEnhance(ctx context.Context, session *domain.EditSession) (*EditResult, error) {
	reservation, err := e.ledger.Reserve(ledger.CostAutoEnhance)
	if err != nil {
		return nil, err
	}

	ratio := session.AspectRatio.String()
	var background string
	img, attempts, remoteErr := e.editRemote(ctx, session, func(int) string {
		return autoEditPrompt(background, ratio)
	}, withVision(&background))

	if remoteErr == nil {
		if err := session.SetEdited(*img); err != nil {
			reservation.Refund()
			return nil, err
		}
		reservation.Commit()
		return &EditResult{Image: *img, Prompt: background, Attempts: attempts}, nil
	}

	reservation.Refund()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEditFailed, remoteErr)
	}
	e.opts.Logger.WarnContext(ctx, "自動補正に失敗したため簡易エフェクトで代替します",
		"effect", e.opts.FallbackEffect, "error", remoteErr)

	data, err := imgutil.ApplyEffect(session.OriginalImage, ratio, e.opts.FallbackEffect)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEditFailed, errors.Join(remoteErr, err))
	}
	simulated := domain.ExtractedImage{MimeType: "image/png", Data: data}
	if err := session.SetEdited(simulated); err != nil {
		return nil, err
	}
	return &EditResult{
		Image:     simulated,
		Prompt:    background,
		Simulated: true,
		RemoteErr: remoteErr,
		Attempts:  attempts,
	}, nil
}

// remoteStep は編集前に同じ画像パーツで行う追加の処理です。
type remoteStep func(ctx context.Context, e *Editor, imgPart *genai.Part) error

// withVision は画像解析で背景の説明を作り、dst に書き込みます。
// 解析結果が空の場合は DefaultBackgroundPrompt を使います。
func withVision(dst *string) remoteStep {
	return func(ctx context.Context, e *Editor, imgPart *genai.Part) error {
		parts := []*genai.Part{genai.NewPartFromText(visionInstruction), imgPart}
		resp, err := e.client.GenerateWithParts(ctx, e.opts.VisionModel, parts, gemini.GenerateOptions{})
		if err != nil {
			return fmt.Errorf("%w: 画像解析に失敗しました: %w", domain.ErrTransport, err)
		}
		*dst = extract.Text(rawResponse(resp))
		if *dst == "" {
			*dst = DefaultBackgroundPrompt
		}
		e.opts.Logger.InfoContext(ctx, "背景プロンプトを生成しました", "model", e.opts.VisionModel, "prompt", *dst)
		return nil
	}
}

// editRemote は合成、パーツ準備、前段処理、再試行チェーン、抽出までを行います。
// 前段処理と編集には同じ合成画像が使われます。
func (e *Editor) editRemote(ctx context.Context, session *domain.EditSession, buildPrompt func(attempt int) string, before ...remoteStep) (*domain.ExtractedImage, int, error) {
	canvas := e.composite(ctx, session)

	imgPart, cleanup, err := e.imagePart(ctx, canvas)
	defer cleanup()
	if err != nil {
		return nil, 0, err
	}

	for _, step := range before {
		if err := step(ctx, e, imgPart); err != nil {
			return nil, 0, err
		}
	}

	out, err := e.runChain(ctx, session.AspectRatio.String(), imgPart, buildPrompt)
	if err != nil {
		return nil, out.attempts, err
	}

	raw := rawResponse(out.resp)
	img := extract.Edited(raw)
	if img == nil {
		if reason := extract.BlockReason(raw); reason != "" {
			return nil, out.attempts, fmt.Errorf("%w (finish reason: %s)", domain.ErrNoImageInResponse, reason)
		}
		return nil, out.attempts, domain.ErrNoImageInResponse
	}
	return img, out.attempts, nil
}
