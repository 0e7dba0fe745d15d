package imgutil

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var dataURLPattern = regexp.MustCompile(`^data:([^;,]+);base64,(.*)$`)

// IsDataURL は文字列が base64 の data URL かどうかを返します。
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// EncodeDataURL はバイト列を data URL に変換します。mimeType が空なら内容から推定します。
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DetectMimeType(data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL は data URL から MIME タイプとバイト列を取り出します。
func DecodeDataURL(s string) (string, []byte, error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(s))
	if len(m) != 3 {
		return "", nil, fmt.Errorf("data URL の形式が不正です")
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("data URL の base64 デコードに失敗しました: %w", err)
	}
	return m[1], data, nil
}

// DetectMimeType は画像の MIME タイプを推定します。画像でなければ image/png を返します。
func DetectMimeType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "image/png"
	}
	return mimeType
}
