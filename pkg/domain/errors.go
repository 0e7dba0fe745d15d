package domain

import "errors"

// オーケストレーターが返すエラーの分類です。呼び出し側は errors.Is で判定します。
var (
	// ErrValidation は入力不正です。トークンには一切触れません。
	ErrValidation = errors.New("validation error")
	// ErrInsufficientTokens は事前チェックでの残高不足です。リモート呼び出しは行われません。
	ErrInsufficientTokens = errors.New("insufficient tokens")
	// ErrTransport はネットワークエラー、または 2xx 以外の応答です。
	ErrTransport = errors.New("transport error")
	// ErrNoImageInResponse は応答自体は正常だが利用可能な画像がなかったことを示します。
	ErrNoImageInResponse = errors.New("no image in response")
	// ErrImageLoad は元画像をデコードできなかったことを示します。
	ErrImageLoad = errors.New("image load error")
	// ErrTimeout はバッチ全体の制限時間超過です。
	ErrTimeout = errors.New("generation timed out")
	// ErrEditFailed は編集の試行が最終的に失敗したことを示します。
	ErrEditFailed = errors.New("edit failed")
	// ErrNoImages はバッチで 1 枚も生成できなかったことを示します。
	ErrNoImages = errors.New("no images were generated")
)
