package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
)

// Loader は画像の参照 (data URL / http(s) URL / gs:// や s3:// の URI / ローカルパス) をバイト列に解決します。
type Loader struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
}

// NewLoader は Loader を初期化します。
// httpClient が nil の場合 http(s) はエラーになります。
// reader が nil の場合はクラウドクライアントなしの UniversalInputReader を使い、ローカルファイルだけを読めます。
func NewLoader(httpClient httpkit.ClientInterface, reader remoteio.InputReader) *Loader {
	if reader == nil {
		reader = remoteio.NewUniversalInputReader(nil, nil)
	}
	return &Loader{
		httpClient: httpClient,
		reader:     reader,
	}
}

// Load は ref の指す画像を読み込みます。失敗時は domain.ErrImageLoad をラップします。
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: 画像の参照が空です", domain.ErrValidation)
	}

	data, err := l.load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImageLoad, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 画像データが空です: %s", domain.ErrImageLoad, describe(ref))
	}
	return data, nil
}

func (l *Loader) load(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case imgutil.IsDataURL(ref):
		_, data, err := imgutil.DecodeDataURL(ref)
		return data, err

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if l.httpClient == nil {
			return nil, fmt.Errorf("HTTP クライアントが設定されていません")
		}
		safe, err := l.httpClient.IsSafeURL(ref)
		if err != nil {
			return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
		}
		if !safe {
			return nil, fmt.Errorf("安全ではないURLが指定されました: %s", ref)
		}
		return l.httpClient.FetchBytes(ctx, ref)

	default:
		// gs:// と s3:// はクラウド、それ以外はローカルファイルとして reader に任せる
		rc, err := l.reader.Open(ctx, strings.TrimPrefix(ref, "file://"))
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
}

// describe はログやエラーに出すための短い表記です。data URL は本文を省略します。
func describe(ref string) string {
	if imgutil.IsDataURL(ref) {
		if i := strings.IndexByte(ref, ','); i > 0 {
			return ref[:i] + ",..."
		}
	}
	return ref
}
