package httpstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gihan9a/docrepair/internal/config"
	"gihan9a/docrepair/internal/patch"
	"gihan9a/docrepair/internal/server"
	"gihan9a/docrepair/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const page = `<main>
<article class="poem" id="poem-48"><p>forty eight</p></article>
</main>
`

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "poems.json"), []byte(`[{"id":"047"},{"id":"048"}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html"), []byte(page), 0644))

	cfg := config.DefaultConfig()
	cfg.RootDir = root
	docServer, err := server.NewDocumentServer(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(docServer.Close)

	ts := httptest.NewServer(docServer.SetupRoutes())
	t.Cleanup(ts.Close)

	store, err := New(ts.URL, WithToken("secret"))
	require.NoError(t, err)
	return store, root
}

func TestGetPutDelete(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	doc, err := store.Get(ctx, "poems.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"047"},{"id":"048"}]`, string(doc.Content))
	assert.Equal(t, utils.CalculateHash(doc.Content), doc.Version)

	version, err := store.Put(ctx, "poems.json", []byte(`[{"id":"047"}]`), doc.Version, "Remove poem 048")
	require.NoError(t, err)
	assert.Equal(t, utils.CalculateHash([]byte(`[{"id":"047"}]`)), version)

	_, err = store.Put(ctx, "poems.json", []byte(`[]`), doc.Version, "stale write")
	assert.True(t, errors.Is(err, patch.ErrConflict))

	err = store.Delete(ctx, "poems.json", doc.Version, "stale delete")
	assert.True(t, errors.Is(err, patch.ErrConflict))

	require.NoError(t, store.Delete(ctx, "poems.json", version, "Remove poems"))
	assert.NoFileExists(t, filepath.Join(root, "poems.json"))

	_, err = store.Get(ctx, "poems.json")
	assert.True(t, errors.Is(err, patch.ErrNotFound))

	err = store.Delete(ctx, "poems.json", version, "again")
	assert.True(t, errors.Is(err, patch.ErrNotFound))
}

func TestUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	store, err := New(ts.URL+"/base/", WithToken("secret"), WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "poems.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429: rate limited")
	assert.False(t, errors.Is(err, patch.ErrNotFound))

	var storeErr *patch.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, patch.OpGet, storeErr.Op)
}

func TestDocumentURL(t *testing.T) {
	store, err := New("http://localhost:3000/base/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/base/documents/site/page.html", store.documentURL("/site/page.html"))
}

func TestApplierAgainstDocumentServer(t *testing.T) {
	store, root := newTestStore(t)
	text, err := patch.NewTextRemoval(
		`(?s)<section[^>]*\bid="poem-48"[^>]*>.*?</section>\n?`,
		`(?s)<article[^>]*\bid="poem-48"[^>]*>.*?</article>\n?`,
	)
	require.NoError(t, err)

	ops := []patch.Operation{
		{Path: "poems.json", Transform: &patch.RecordRemoval{Field: "id", Value: "048"}, Message: "Remove poem 048"},
		{Path: "page.html", Transform: text, Message: "Remove poem 48 block"},
		{Path: "drafts/048.md", Transform: patch.Deletion{}, Message: "Remove draft"},
	}

	results := patch.NewApplier(store).Apply(context.Background(), ops)
	assert.Equal(t, patch.StatusApplied, results[0].Status)
	assert.Equal(t, patch.StatusApplied, results[1].Status)
	assert.Contains(t, results[1].Detail, "fallback")
	assert.Equal(t, patch.StatusSkippedNotFound, results[2].Status)

	data, err := os.ReadFile(filepath.Join(root, "page.html"))
	require.NoError(t, err)
	assert.Equal(t, "<main>\n</main>\n", string(data))

	results = patch.NewApplier(store).Apply(context.Background(), ops)
	for _, r := range results[:2] {
		assert.Equal(t, patch.StatusSkippedNoChange, r.Status)
	}
	assert.Equal(t, patch.StatusSkippedNotFound, results[2].Status)
}
