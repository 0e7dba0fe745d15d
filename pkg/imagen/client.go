package imagen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "imagen-4.0-generate-001"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4 << 10

	// 5xx と通信エラーは 1 回だけ再送します。4xx は再送しません。
	defaultMaxRetries    = 1
	defaultRetryInterval = time.Second
)

// Config は Imagen クライアントの設定です。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient が nil の場合は NewHTTPClient(defaultTimeout) を使います。
	HTTPClient httpkit.ClientInterface
}

// Client は Imagen の :predict エンドポイントを呼び出します。
// 応答の解釈は extract パッケージに任せ、ここでは生の JSON を返すだけです。
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient httpkit.ClientInterface
}

// PredictRequest は 1 回の :predict 呼び出しの入力です。
type PredictRequest struct {
	Prompt      string
	AspectRatio string
	SampleCount int
}

type predictPayload struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError は 4xx の応答を表します。domain.ErrTransport として扱われます。
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("imagen status %d", e.Code)
	}
	return fmt.Sprintf("imagen status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrTransport
}

// NewHTTPClient は生成 1 枚分を 1 回の論理的な試行に収めるよう、再送回数を絞った httpkit.Client を返します。
// opts は既定値の後に適用されます。
func NewHTTPClient(timeout time.Duration, opts ...httpkit.ClientOption) *httpkit.Client {
	base := []httpkit.ClientOption{
		httpkit.WithMaxRetries(defaultMaxRetries),
		httpkit.WithInitialInterval(defaultRetryInterval),
	}
	return httpkit.New(timeout, append(base, opts...)...)
}

// New は Client を作成します。
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(defaultTimeout)
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
	}, nil
}

// Model は呼び出し先のモデル名を返します。
func (c *Client) Model() string {
	return c.model
}

// Predict は 1 回分の生成リクエストを送り、成功時は応答本文をそのまま返します。
// 通信失敗と 2xx 以外は domain.ErrTransport をラップしたエラーになります。
// 4xx の場合は *StatusError です。
func (c *Client) Predict(ctx context.Context, req PredictRequest) ([]byte, error) {
	sampleCount := req.SampleCount
	if sampleCount <= 0 {
		sampleCount = 1
	}
	payload := predictPayload{
		Instances:  []predictInstance{{Prompt: req.Prompt}},
		Parameters: predictParameters{SampleCount: sampleCount, AspectRatio: req.AspectRatio},
	}

	endpoint := fmt.Sprintf("%s/models/%s:predict?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	data, err := c.httpClient.PostJSONAndFetchBytes(ctx, endpoint, payload)
	if err != nil {
		var httpErr *httpkit.NonRetryableHTTPError
		if errors.As(err, &httpErr) {
			return nil, &StatusError{Code: httpErr.StatusCode, Message: errorMessage(httpErr.Body)}
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	return data, nil
}

func errorMessage(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
