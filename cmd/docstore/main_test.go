package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init-config", path})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, path)
	assert.Contains(t, out.String(), path)

	cfg, err := loadServeConfig(&serveOptions{configFile: path, rootDir: "docs", port: 8080})
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.RootDir)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadServeConfigErrors(t *testing.T) {
	_, err := loadServeConfig(&serveOptions{configFile: filepath.Join(t.TempDir(), "missing.yml")})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  port: 70000\n"), 0644))
	_, err = loadServeConfig(&serveOptions{configFile: bad})
	assert.Error(t, err)
}
