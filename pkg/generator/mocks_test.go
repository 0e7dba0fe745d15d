package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/imagen"
)

// --- Mocks ---

// mockPredictor は呼び出し順に応じた応答を返します。
type mockPredictor struct {
	mu       sync.Mutex
	calls    int
	requests []imagen.PredictRequest
	respond  func(ctx context.Context, call int) ([]byte, error)
}

func (m *mockPredictor) Predict(ctx context.Context, req imagen.PredictRequest) ([]byte, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.respond(ctx, call)
}

func (m *mockPredictor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// imageBody は call 番号を埋め込んだ旧形式の成功応答です。
func imageBody(call int) []byte {
	data := append(append([]byte(nil), pngMagic...), byte(call))
	return []byte(fmt.Sprintf(`{"predictions":[{"bytesBase64Encoded":%q}]}`, base64.StdEncoding.EncodeToString(data)))
}

// scripted は call ごとの結果を並べた respond 関数を作ります。
// "ok" は画像あり、"empty" は画像なし、"error" は通信エラーです。
func scripted(outcomes ...string) func(context.Context, int) ([]byte, error) {
	return func(_ context.Context, call int) ([]byte, error) {
		switch outcomes[call] {
		case "ok":
			return imageBody(call), nil
		case "empty":
			return []byte(`{"predictions":[]}`), nil
		default:
			return nil, fmt.Errorf("%w: boom", domain.ErrTransport)
		}
	}
}
