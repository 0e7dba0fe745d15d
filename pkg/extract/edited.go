package extract

import (
	"strings"

	"google.golang.org/genai"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
)

func firstCandidate(resp *genai.GenerateContentResponse) *genai.Candidate {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0]
}

// Edited は編集応答の最初の候補から、データを持つ最初の inlineData パートを取り出します。
func Edited(resp *genai.GenerateContentResponse) *domain.ExtractedImage {
	cand := firstCandidate(resp)
	if cand == nil || cand.Content == nil {
		return nil
	}
	for _, part := range cand.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = imgutil.DetectMimeType(part.InlineData.Data)
		}
		return &domain.ExtractedImage{MimeType: mimeType, Data: part.InlineData.Data}
	}
	return nil
}

// Text は最初の候補のテキストパートを前後の空白を除いて返します。
func Text(resp *genai.GenerateContentResponse) string {
	cand := firstCandidate(resp)
	if cand == nil || cand.Content == nil {
		return ""
	}
	for _, part := range cand.Content.Parts {
		if part == nil {
			continue
		}
		if t := strings.TrimSpace(part.Text); t != "" {
			return t
		}
	}
	return ""
}

// BlockReason は最初の候補が正常終了以外で止まった場合、その理由を返します。
func BlockReason(resp *genai.GenerateContentResponse) string {
	cand := firstCandidate(resp)
	if cand == nil {
		return ""
	}
	switch cand.FinishReason {
	case genai.FinishReasonUnspecified, genai.FinishReasonStop:
		return ""
	}
	return string(cand.FinishReason)
}
