package generator

import (
	"log/slog"
	"time"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

const (
	// DefaultInterCallDelay は連続呼び出しの間に挟む待ち時間です。
	DefaultInterCallDelay = 1500 * time.Millisecond
	// DefaultBatchTimeout はバッチ全体の制限時間です。
	DefaultBatchTimeout = 2 * time.Minute
)

// Options は Generator の任意設定です。ゼロ値の項目には既定値が入ります。
type Options struct {
	// InterCallDelay が負の場合は待たずに次の呼び出しを行います。
	InterCallDelay time.Duration
	BatchTimeout   time.Duration
	Logger         *slog.Logger
	// Now はテスト用に時刻を差し替えるためのものです。
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.InterCallDelay == 0 {
		o.InterCallDelay = DefaultInterCallDelay
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = DefaultBatchTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// BatchResult はバッチ 1 回分の結果です。Images は要求順に並びます。
type BatchResult struct {
	GenerationID string
	Images       []domain.GeneratedImage
	Requested    int
	Partial      bool
}
