package editor

import (
	"log/slog"
	"time"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
)

const (
	DefaultEditModel   = "gemini-2.5-flash-image"
	DefaultVisionModel = "gemini-2.5-flash"
	// DefaultInlineLimit を超える合成画像は File API 経由で送ります。
	DefaultInlineLimit = 15 << 20
	DefaultCacheTTL    = 30 * time.Minute

	cacheKeyComposite = "composite:"
)

// Options は Editor の任意設定です。ゼロ値の項目には既定値が入ります。
type Options struct {
	EditModel      string
	VisionModel    string
	FallbackEffect imgutil.Effect
	InlineLimit    int
	CacheTTL       time.Duration
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.EditModel == "" {
		o.EditModel = DefaultEditModel
	}
	if o.VisionModel == "" {
		o.VisionModel = DefaultVisionModel
	}
	if o.FallbackEffect == "" {
		o.FallbackEffect = imgutil.EffectSunset
	}
	if o.InlineLimit <= 0 {
		o.InlineLimit = DefaultInlineLimit
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// EditResult は編集 1 回分の結果です。
type EditResult struct {
	Image domain.ExtractedImage
	// Prompt は実際に使った指示です。自動補正では解析で得た背景の説明になります。
	Prompt string
	// Simulated は端末内の簡易エフェクトで代替したことを示します。
	Simulated bool
	// RemoteErr は代替に切り替える原因となったリモート側のエラーです。
	RemoteErr error
	// Attempts は編集モデルへの呼び出し回数です。
	Attempts int
}
