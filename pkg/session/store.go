package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

// Store はセッション状態の保存先です。
// 保存されたものがない場合、Load は初期状態を返します。
type Store interface {
	Load(ctx context.Context) (*domain.SessionState, error)
	Save(ctx context.Context, state *domain.SessionState) error
}

func encode(state *domain.SessionState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("state is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("セッション状態のエンコードに失敗しました: %w", err)
	}
	return data, nil
}

// decode は保存済みの JSON を読み込み、欠損値や範囲外の値を補正します。
func decode(data []byte) (*domain.SessionState, error) {
	state := domain.NewSessionState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("セッション状態のデコードに失敗しました: %w", err)
	}
	state.Normalize()
	return state, nil
}
