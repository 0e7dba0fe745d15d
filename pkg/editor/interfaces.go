package editor

import (
	"time"

	"github.com/shouni/gemini-image-studio/pkg/ledger"
)

// ImageCacher は、合成済みキャンバスをキャッシュするためのインターフェースです。
// github.com/patrickmn/go-cache の *cache.Cache がそのまま満たします。
type ImageCacher interface {
	// Get は、指定されたキーに紐づくアイテムを取得します。
	Get(key string) (any, bool)
	// Set は、指定されたキーと値、有効期限でアイテムを保存します。
	Set(key string, value any, d time.Duration)
}

// TokenLedger は編集 1 回分の引き落としを担当します。
type TokenLedger interface {
	Reserve(cost int) (*ledger.Reservation, error)
}
