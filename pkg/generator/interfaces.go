package generator

import (
	"context"

	"github.com/shouni/gemini-image-studio/pkg/imagen"
	"github.com/shouni/gemini-image-studio/pkg/ledger"
)

// Predictor は 1 枚分の生成リクエストを送り、生の応答本文を返すトランスポートです。
// imagen.Client が実装します。
type Predictor interface {
	Predict(ctx context.Context, req imagen.PredictRequest) ([]byte, error)
}

// TokenLedger はバッチ開始前の引き落としを担当します。
type TokenLedger interface {
	Reserve(cost int) (*ledger.Reservation, error)
}
