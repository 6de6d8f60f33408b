package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gihan9a/docrepair/internal/config"
	"gihan9a/docrepair/internal/server"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const repairPlan = `
operations:
  - path: poems.json
    message: Remove poem 048
    remove_record:
      field: id
      value: "048"
  - path: page.html
    message: Remove poem 48 block
    remove_text:
      patterns:
        - '(?s)<article[^>]*\bid="poem-48"[^>]*>.*?</article>\n?'
        - '(?s)<div[^>]*\bdata-id="48"[^>]*>.*?</div>\n?'
  - path: drafts/048.md
    delete: true
`

func setup(t *testing.T) (root string, env map[string]string) {
	t.Helper()
	color.NoColor = true

	root = t.TempDir()
	var poems []string
	for i := 1; i <= 50; i++ {
		poems = append(poems, fmt.Sprintf(`{"id":"%03d","title":"Poem %d"}`, i, i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "poems.json"), []byte("["+strings.Join(poems, ",")+"]"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html"), []byte("<div class=\"poem\" data-id=\"48\">48</div>\n<div data-id=\"49\">49</div>\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.RootDir = root
	docServer, err := server.NewDocumentServer(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(docServer.Close)

	ts := httptest.NewServer(docServer.SetupRoutes())
	t.Cleanup(ts.Close)

	planFile := filepath.Join(t.TempDir(), "patches.yml")
	require.NoError(t, os.WriteFile(planFile, []byte(repairPlan), 0644))

	env = map[string]string{
		config.EnvBackend:  config.BackendHTTP,
		config.EnvStoreURL: ts.URL,
		config.EnvPlan:     planFile,
		config.EnvLogLevel: "error",
	}
	return root, env
}

func getenv(env map[string]string) func(string) string {
	return func(k string) string { return env[k] }
}

func TestRunAppliesPlanOnce(t *testing.T) {
	root, env := setup(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), getenv(env), &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "2 applied, 1 skipped, 0 failed")

	data, err := os.ReadFile(filepath.Join(root, "poems.json"))
	require.NoError(t, err)
	assert.Len(t, gjson.ParseBytes(data).Array(), 49)

	page, err := os.ReadFile(filepath.Join(root, "page.html"))
	require.NoError(t, err)
	assert.Equal(t, "<div data-id=\"49\">49</div>\n", string(page))

	stdout.Reset()
	code = run(context.Background(), getenv(env), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "0 applied, 3 skipped, 0 failed")
}

func TestRunDryRun(t *testing.T) {
	root, env := setup(t)
	env[config.EnvDryRun] = "true"

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), getenv(env), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "dry run")
	assert.Contains(t, stdout.String(), `- <div class="poem" data-id="48">48</div>`)

	page, err := os.ReadFile(filepath.Join(root, "page.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `data-id="48"`)
}

func TestRunReportsFailures(t *testing.T) {
	_, env := setup(t)
	env[config.EnvStoreURL] = "http://127.0.0.1:1"

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), getenv(env), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "0 applied, 0 skipped, 3 failed")
}

func TestRunInvalidConfiguration(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), getenv(map[string]string{}), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "invalid configuration")

	_, env := setup(t)
	env[config.EnvPlan] = filepath.Join(t.TempDir(), "missing.yml")
	code = run(context.Background(), getenv(env), &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestRunRejectsInaccessibleRepository(t *testing.T) {
	var requested []string
	github := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer github.Close()

	_, env := setup(t)
	env[config.EnvBackend] = config.BackendGitHub
	env[config.EnvStoreURL] = github.URL
	env[config.EnvOwner] = "poetry"
	env[config.EnvRepo] = "private"
	env[config.EnvToken] = "expired"

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), getenv(env), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Empty(t, stdout.String(), "no operation runs")
	assert.Equal(t, []string{"/api/v3/repos/poetry/private"}, requested)
}
