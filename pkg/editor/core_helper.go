package editor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
)

// composite は元画像をアスペクト比のキャンバスに配置した PNG を返します。
// 元画像をデコードできない場合は元画像をそのまま返します。
func (e *Editor) composite(ctx context.Context, session *domain.EditSession) []byte {
	ratio := session.AspectRatio.String()
	key := compositeKey(session.OriginalImage, ratio)
	if e.cache != nil {
		if val, ok := e.cache.Get(key); ok {
			if data, ok := val.([]byte); ok {
				return data
			}
		}
	}

	data, err := imgutil.Compose(session.OriginalImage, ratio)
	if err != nil {
		if errors.Is(err, domain.ErrImageLoad) {
			e.opts.Logger.WarnContext(ctx, "キャンバス合成をスキップし、元画像をそのまま送ります", "error", err)
		}
		return session.OriginalImage
	}

	if e.cache != nil {
		e.cache.Set(key, data, e.opts.CacheTTL)
	}
	return data
}

func compositeKey(src []byte, ratio string) string {
	sum := sha256.Sum256(src)
	return cacheKeyComposite + hex.EncodeToString(sum[:]) + ":" + ratio
}

// imagePart は画像データをリクエスト用のパーツに変換します。
// InlineLimit を超える場合は File API にアップロードし、参照パーツを返します。
// 戻り値の cleanup は試行の終了時に必ず呼んでください。
func (e *Editor) imagePart(ctx context.Context, data []byte) (*genai.Part, func(), error) {
	mimeType := imgutil.DetectMimeType(data)
	if len(data) <= e.opts.InlineLimit {
		return genai.NewPartFromBytes(data, mimeType), func() {}, nil
	}

	uri, name, err := e.client.UploadFile(ctx, data, mimeType, "edit-canvas")
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: File API へのアップロードに失敗しました: %w", domain.ErrTransport, err)
	}
	e.opts.Logger.InfoContext(ctx, "合成画像を File API にアップロードしました", "size", len(data), "file", name)

	cleanup := func() {
		// 呼び出し元がキャンセルされていても削除は行います。
		if err := e.client.DeleteFile(context.WithoutCancel(ctx), name); err != nil {
			e.opts.Logger.WarnContext(ctx, "アップロードしたファイルの削除に失敗しました", "file", name, "error", err)
		}
	}
	return genai.NewPartFromURI(uri, mimeType), cleanup, nil
}

// rawResponse は nil を考慮して SDK の応答を取り出します。
func rawResponse(resp *gemini.Response) *genai.GenerateContentResponse {
	if resp == nil {
		return nil
	}
	return resp.RawResponse
}
