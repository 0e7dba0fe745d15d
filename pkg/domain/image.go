package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// AspectRatio は "W:H" 形式のアスペクト比です。
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectStandard  AspectRatio = "4:3"
	AspectVertical  AspectRatio = "3:4"
)

// SupportedAspectRatios は UI に提示する順序でのアスペクト比一覧です。
var SupportedAspectRatios = []AspectRatio{
	AspectSquare,
	AspectLandscape,
	AspectPortrait,
	AspectStandard,
	AspectVertical,
}

// Valid はサポート対象のアスペクト比かどうかを返します。
func (a AspectRatio) Valid() bool {
	for _, r := range SupportedAspectRatios {
		if a == r {
			return true
		}
	}
	return false
}

func (a AspectRatio) String() string { return string(a) }

const (
	// MinImageCount と MaxImageCount は 1 バッチで要求できる枚数の範囲です。
	MinImageCount = 1
	MaxImageCount = 4
)

// GenerationRequest はユーザー 1 回分の画像生成要求です。
// ディスパッチ後は変更しないでください。
type GenerationRequest struct {
	Prompt      string
	Count       int
	AspectRatio AspectRatio
}

// Validate は入力値のみを検証します。副作用はありません。
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	if r.Count < MinImageCount || r.Count > MaxImageCount {
		return fmt.Errorf("%w: count must be between %d and %d, got %d", ErrValidation, MinImageCount, MaxImageCount, r.Count)
	}
	if !r.AspectRatio.Valid() {
		return fmt.Errorf("%w: unsupported aspect ratio %q", ErrValidation, r.AspectRatio)
	}
	return nil
}

// GeneratedImage は生成オーケストレーターが返す 1 枚分の結果です。
// 返却後の所有権は呼び出し元に移ります。
type GeneratedImage struct {
	Data         []byte
	MimeType     string
	SourcePrompt string
	AspectRatio  AspectRatio
	CreatedAt    time.Time
}

// DataURL は画像を data URL 形式で返します。
func (g GeneratedImage) DataURL() string {
	return ExtractedImage{MimeType: g.MimeType, Data: g.Data}.DataURL()
}

// ExtractedImage はレスポンスから取り出した正規化済みの画像です。
type ExtractedImage struct {
	MimeType string
	Data     []byte
}

// DataURL は "data:<mime>;base64,<data>" 形式の文字列を返します。
func (e ExtractedImage) DataURL() string {
	mimeType := e.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}
