package extract

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
)

// predictResponse は Imagen :predict の応答のうち、画像抽出に必要な部分です。
// 新形式 (images 配列) と旧形式 (prediction 直下) の両方を受け取れるようにしています。
type predictResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	BytesBase64Encoded string            `json:"bytesBase64Encoded"`
	MimeType           string            `json:"mimeType"`
	Images             []predictionImage `json:"images"`
}

type predictionImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

// shapeMatcher は応答形状ごとの取り出し処理です。
type shapeMatcher struct {
	name  string
	match func(p prediction) (data, mimeType string)
}

// generatedShapes は優先順に並べた生成応答の形状です。
var generatedShapes = []shapeMatcher{
	{
		name: "images",
		match: func(p prediction) (string, string) {
			if len(p.Images) == 0 {
				return "", ""
			}
			return p.Images[0].BytesBase64Encoded, p.Images[0].MimeType
		},
	},
	{
		name: "legacy",
		match: func(p prediction) (string, string) {
			return p.BytesBase64Encoded, p.MimeType
		},
	},
}

// GeneratedBase64 は生成応答から base64 文字列を取り出します。
// どの形状にも該当しない場合は ok=false です。エラーではなく「画像なし」を意味します。
func GeneratedBase64(body []byte) (data string, ok bool) {
	data, _, _, ok = matchGenerated(body)
	return data, ok
}

// Generated は生成応答を正規化された画像に変換します。取り出せない場合は nil です。
func Generated(body []byte) *domain.ExtractedImage {
	encoded, mimeType, _, ok := matchGenerated(body)
	if !ok {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) == 0 {
		return nil
	}
	if mimeType == "" {
		mimeType = imgutil.DetectMimeType(data)
	}
	return &domain.ExtractedImage{MimeType: mimeType, Data: data}
}

// GeneratedShape は一致した応答形状の名前を返します。ログ用です。
func GeneratedShape(body []byte) string {
	_, _, name, ok := matchGenerated(body)
	if !ok {
		return ""
	}
	return name
}

func matchGenerated(body []byte) (data, mimeType, shape string, ok bool) {
	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", "", false
	}
	if len(resp.Predictions) == 0 {
		return "", "", "", false
	}
	first := resp.Predictions[0]
	for _, m := range generatedShapes {
		d, mt := m.match(first)
		if strings.TrimSpace(d) != "" {
			return d, mt, m.name, true
		}
	}
	return "", "", "", false
}
