// Package httpstore is a client for the document store server in internal/server.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gihan9a/docrepair/internal/patch"
	"gihan9a/docrepair/pkg/docproto"
)

// Store is a patch.Store talking to a document store server
type Store struct {
	baseURL *url.URL
	client  *http.Client
	token   string
}

// Option configures a Store
type Option func(*Store)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// WithToken sends the token as a bearer credential
func WithToken(token string) Option {
	return func(s *Store) {
		s.token = token
	}
}

// New creates a Store for the server at baseURL
func New(baseURL string, opts ...Option) (*Store, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store URL: %w", err)
	}
	s := &Store{
		baseURL: u,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) documentURL(path string) string {
	u := *s.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + docproto.DocumentsPrefix + strings.TrimPrefix(path, "/")
	return u.String()
}

func (s *Store) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.documentURL(path), reader)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return req, nil
}

func (s *Store) Get(ctx context.Context, path string) (*patch.Document, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, patch.NewStoreError(patch.OpGet, path, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, patch.NewStoreError(patch.OpGet, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, patch.NewStoreError(patch.OpGet, path, responseError(resp))
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, patch.NewStoreError(patch.OpGet, path, fmt.Errorf("error reading body: %w", err))
	}

	return &patch.Document{
		Path:    path,
		Content: content,
		Version: resp.Header.Get(docproto.HeaderVersion),
	}, nil
}

func (s *Store) Put(ctx context.Context, path string, content []byte, version, message string) (string, error) {
	if content == nil {
		content = []byte{}
	}
	req, err := s.newRequest(ctx, http.MethodPut, path, content)
	if err != nil {
		return "", patch.NewStoreError(patch.OpPut, path, err)
	}
	req.Header.Set(docproto.HeaderParents, version)
	req.Header.Set(docproto.HeaderMessage, message)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", patch.NewStoreError(patch.OpPut, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", patch.NewStoreError(patch.OpPut, path, responseError(resp))
	}
	return resp.Header.Get(docproto.HeaderVersion), nil
}

func (s *Store) Delete(ctx context.Context, path, version, message string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return patch.NewStoreError(patch.OpDelete, path, err)
	}
	req.Header.Set(docproto.HeaderParents, version)
	req.Header.Set(docproto.HeaderMessage, message)

	resp, err := s.client.Do(req)
	if err != nil {
		return patch.NewStoreError(patch.OpDelete, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return patch.NewStoreError(patch.OpDelete, path, responseError(resp))
	}
	return nil
}

// responseError turns a non-success response into an error, mapping the
// status codes the server uses for missing documents and stale versions
func responseError(resp *http.Response) error {
	var body docproto.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return patch.ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		if body.Version != "" {
			return fmt.Errorf("%w: current version is %s", patch.ErrConflict, body.Version)
		}
		return patch.ErrConflict
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body.Error)
}
