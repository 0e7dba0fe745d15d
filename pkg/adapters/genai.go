package adapters

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GenAIModel は google.golang.org/genai の SDK を使って gemini.GenerativeModel を満たすアダプターです。
// 編集・解析・File API の呼び出しはすべてここを通ります。
type GenAIModel struct {
	client *genai.Client
}

// Config は GenAIModel の接続設定です。
type Config struct {
	APIKey string
	// BaseURL はテストや中継サーバー向けの上書きです。空なら SDK の既定値を使います。
	BaseURL string
}

// NewGenAIModel は Gemini API バックエンドの SDK クライアントを作成します。
func NewGenAIModel(ctx context.Context, cfg Config) (*GenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return &GenAIModel{client: client}, nil
}

// GenerateContent はテキストのみのプロンプトで生成します。
func (m *GenAIModel) GenerateContent(ctx context.Context, modelName string, prompt string) (*gemini.Response, error) {
	return m.GenerateWithParts(ctx, modelName, []*genai.Part{genai.NewPartFromText(prompt)}, gemini.GenerateOptions{})
}

// GenerateWithParts はテキストと画像のパーツを 1 つのユーザー発話として送ります。
// opts.AspectRatio が指定された場合のみ生成設定に画像のアスペクト比を入れます。
func (m *GenAIModel) GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var config *genai.GenerateContentConfig
	if opts.AspectRatio != "" {
		config = &genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: opts.AspectRatio},
		}
	}

	resp, err := m.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}

// UploadFile は画像を File API にアップロードし、参照用 URI と削除用の名前を返します。
func (m *GenAIModel) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	file, err := m.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return "", "", fmt.Errorf("File API へのアップロードに失敗しました: %w", err)
	}
	slog.DebugContext(ctx, "File API にアップロードしました", "name", file.Name, "size", len(data))
	return file.URI, file.Name, nil
}

// DeleteFile は File API 上のファイルを名前 (files/xxxx) で削除します。
func (m *GenAIModel) DeleteFile(ctx context.Context, fileName string) error {
	if _, err := m.client.Files.Delete(ctx, fileName, nil); err != nil {
		return fmt.Errorf("File API のファイル削除に失敗しました: %w", err)
	}
	return nil
}

// GetFile は File API 上のファイル情報を取得します。
func (m *GenAIModel) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return m.client.Files.Get(ctx, name, nil)
}

var _ gemini.GenerativeModel = (*GenAIModel)(nil)
