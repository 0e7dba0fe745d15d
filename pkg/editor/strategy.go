package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

// payloadStrategy は編集リクエストの組み立て方です。
// structured が true の場合はアスペクト比を生成設定で渡し、false の場合は文面だけで伝えます。
type payloadStrategy struct {
	name       string
	structured bool
}

// editStrategies は優先順の再試行チェーンです。
// 次の戦略に進むのは通信エラーの場合だけです。
var editStrategies = []payloadStrategy{
	{name: "structuredAspectRatio", structured: true},
	{name: "promptAspectRatio", structured: false},
}

func (s payloadStrategy) options(ratio string) gemini.GenerateOptions {
	if !s.structured {
		return gemini.GenerateOptions{}
	}
	return gemini.GenerateOptions{AspectRatio: ratio}
}

// chainResult は再試行チェーンの結果です。
type chainResult struct {
	resp     *gemini.Response
	attempts int
}

// runChain は戦略を順に試し、最初に通信が成功した応答を返します。
// buildPrompt には何番目の戦略か (0 始まり) が渡されます。
func (e *Editor) runChain(ctx context.Context, ratio string, imgPart *genai.Part, buildPrompt func(attempt int) string) (chainResult, error) {
	var lastErr error
	var out chainResult
	for i, s := range editStrategies {
		parts := []*genai.Part{genai.NewPartFromText(buildPrompt(i)), imgPart}
		out.attempts++

		resp, err := e.client.GenerateWithParts(ctx, e.opts.EditModel, parts, s.options(ratio))
		if err == nil {
			out.resp = resp
			return out, nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("%w: %w", domain.ErrTransport, ctxErr)
		}
		e.opts.Logger.WarnContext(ctx, "編集リクエストに失敗しました",
			"strategy", s.name, "model", e.opts.EditModel, "error", err)
	}
	if errors.Is(lastErr, domain.ErrTransport) {
		return out, lastErr
	}
	return out, fmt.Errorf("%w: %w", domain.ErrTransport, lastErr)
}
