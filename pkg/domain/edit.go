package domain

import (
	"bytes"
	"errors"
	"strings"
)

// EditMode は編集ワークフローの種類です。
type EditMode string

const (
	// EditModeManual はユーザー指定のプロンプトで 1 回だけ編集します。
	EditModeManual EditMode = "manual"
	// EditModeAuto は画像解析で背景プロンプトを作ってから編集する 2 段階モードです。
	EditModeAuto EditMode = "auto"
)

// ParseEditMode は自由入力をモードに正規化します。不明な値は manual 扱いです。
func ParseEditMode(s string) EditMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(EditModeAuto), "auto-enhance", "enhance":
		return EditModeAuto
	default:
		return EditModeManual
	}
}

// ErrEditedAlreadySet は 1 回の試行で編集結果を 2 度セットしようとした場合のエラーです。
var ErrEditedAlreadySet = errors.New("edited image already set for this attempt")

// EditSession は元画像を受け取った時点で作られる編集セッションです。
// 同時に有効なセッションは 1 つだけです。
type EditSession struct {
	OriginalImage []byte
	AspectRatio   AspectRatio
	Mode          EditMode
	Prompt        string
	EditedImage   *ExtractedImage
}

// NewEditSession は元画像から新しいセッションを作成します。
func NewEditSession(original []byte, ratio AspectRatio, mode EditMode, prompt string) *EditSession {
	return &EditSession{
		OriginalImage: original,
		AspectRatio:   ratio,
		Mode:          mode,
		Prompt:        prompt,
	}
}

// BeginAttempt は新しい試行の開始前に前回の編集結果を破棄します。
func (s *EditSession) BeginAttempt() {
	s.EditedImage = nil
}

// SetEdited は試行ごとに 1 度だけ編集結果を保持します。
func (s *EditSession) SetEdited(img ExtractedImage) error {
	if s.EditedImage != nil {
		return ErrEditedAlreadySet
	}
	s.EditedImage = &img
	return nil
}

// Clone はバイト列まで複製したコピーを返します。
func (s *EditSession) Clone() *EditSession {
	if s == nil {
		return nil
	}
	c := *s
	c.OriginalImage = bytes.Clone(s.OriginalImage)
	if s.EditedImage != nil {
		edited := *s.EditedImage
		edited.Data = bytes.Clone(s.EditedImage.Data)
		c.EditedImage = &edited
	}
	return &c
}

// HasOriginal は元画像が設定されているかを返します。
func (s *EditSession) HasOriginal() bool {
	return s != nil && len(s.OriginalImage) > 0
}
