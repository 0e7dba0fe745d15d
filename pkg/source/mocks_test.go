package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
)

// --- Mocks ---

var errNotMocked = errors.New("not mocked")

type mockHTTPClient struct {
	data    []byte
	err     error
	lastURL string

	// unsafe を true にすると IsSafeURL が拒否を返す
	unsafe    bool
	safeErr   error
	safeCalls []string
}

func (m *mockHTTPClient) Do(*http.Request) (*http.Response, error) { return nil, errNotMocked }

func (m *mockHTTPClient) DoRequest(*http.Request) ([]byte, error) { return nil, errNotMocked }

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.lastURL = url
	return m.data, m.err
}

func (m *mockHTTPClient) FetchAndDecodeJSON(context.Context, string, any) error { return errNotMocked }

func (m *mockHTTPClient) PostJSONAndFetchBytes(context.Context, string, any) ([]byte, error) {
	return nil, errNotMocked
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(context.Context, string, []byte, string) ([]byte, error) {
	return nil, errNotMocked
}

func (m *mockHTTPClient) IsSafeURL(urlStr string) (bool, error) {
	m.safeCalls = append(m.safeCalls, urlStr)
	if m.safeErr != nil {
		return false, m.safeErr
	}
	return !m.unsafe, nil
}

func (m *mockHTTPClient) IsSecureServiceURL(string) bool { return true }

type mockReader struct {
	objects map[string][]byte
	opened  []string
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	m.opened = append(m.opened, uri)
	data, ok := m.objects[uri]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	for key := range m.objects {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}
