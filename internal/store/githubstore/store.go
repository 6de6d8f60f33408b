// Package githubstore reads and writes repository files through the GitHub
// contents API. Blob SHAs serve as version tokens.
//
// GitHub answers 404 for a private repository when the token cannot see it,
// which would turn every operation into a not-found skip. Call CheckAccess
// before applying operations.
package githubstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gihan9a/docrepair/internal/patch"

	"github.com/google/go-github/v66/github"
)

// Store is a patch.Store backed by one branch of a GitHub repository
type Store struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewClient creates an authenticated client. A non-empty apiURL points it at a
// GitHub Enterprise server.
func NewClient(token, apiURL string) (*github.Client, error) {
	client := github.NewClient(nil).WithAuthToken(token)
	if apiURL == "" {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
	}
	return client, nil
}

// New creates a Store for owner/repo at branch
func New(client *github.Client, owner, repo, branch string) *Store {
	return &Store{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: branch,
	}
}

// CheckAccess verifies that the repository and branch are visible with the
// configured token
func (s *Store) CheckAccess(ctx context.Context) error {
	if _, _, err := s.client.Repositories.Get(ctx, s.owner, s.repo); err != nil {
		if errors.Is(classify(err), patch.ErrNotFound) {
			return fmt.Errorf("repository %s/%s not found or not accessible with the configured token", s.owner, s.repo)
		}
		return fmt.Errorf("failed to check repository %s/%s: %w", s.owner, s.repo, err)
	}
	// GetBranch reports a bare status error, so look at the response itself
	_, resp, err := s.client.Repositories.GetBranch(ctx, s.owner, s.repo, s.branch, 1)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("branch %s not found in %s/%s", s.branch, s.owner, s.repo)
		}
		return fmt.Errorf("failed to check branch %s: %w", s.branch, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (*patch.Document, error) {
	opts := &github.RepositoryContentGetOptions{Ref: s.branch}
	file, dir, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path, opts)
	if err != nil {
		return nil, patch.NewStoreError(patch.OpGet, path, classify(err))
	}
	if file == nil {
		return nil, patch.NewStoreError(patch.OpGet, path,
			fmt.Errorf("%w: path is a directory with %d entries", patch.ErrMalformedContent, len(dir)))
	}

	var content []byte
	if file.GetEncoding() == "none" {
		// Files over 1MB come back without inline content
		content, err = s.download(ctx, path, opts)
	} else {
		var text string
		text, err = file.GetContent()
		content = []byte(text)
	}
	if err != nil {
		return nil, patch.NewStoreError(patch.OpGet, path, err)
	}

	return &patch.Document{
		Path:    path,
		Content: content,
		Version: file.GetSHA(),
	}, nil
}

func (s *Store) download(ctx context.Context, path string, opts *github.RepositoryContentGetOptions) ([]byte, error) {
	rc, _, err := s.client.Repositories.DownloadContents(ctx, s.owner, s.repo, path, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Store) Put(ctx context.Context, path string, content []byte, version, message string) (string, error) {
	resp, _, err := s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, path, &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		SHA:     github.String(version),
		Branch:  github.String(s.branch),
	})
	if err != nil {
		return "", patch.NewStoreError(patch.OpPut, path, classify(err))
	}
	if resp == nil || resp.Content == nil {
		return "", nil
	}
	return resp.Content.GetSHA(), nil
}

func (s *Store) Delete(ctx context.Context, path, version, message string) error {
	_, _, err := s.client.Repositories.DeleteFile(ctx, s.owner, s.repo, path, &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(version),
		Branch:  github.String(s.branch),
	})
	return patch.NewStoreError(patch.OpDelete, path, classify(err))
}

// classify maps GitHub API errors onto the patch error taxonomy
func classify(err error) error {
	if err == nil {
		return nil
	}

	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return err
	}

	switch ghErr.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", patch.ErrNotFound, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", patch.ErrConflict, err)
	case http.StatusUnprocessableEntity:
		// A malformed or mismatched sha is reported as 422 by some servers
		if strings.Contains(strings.ToLower(ghErr.Message), "sha") {
			return fmt.Errorf("%w: %w", patch.ErrConflict, err)
		}
	}
	return err
}
