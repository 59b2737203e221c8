package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsinling0525/flowc/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestDecodeWorkflow(t *testing.T) {
	wrapped, err := decodeWorkflow([]byte(`{"workflow":{"name":"A","nodes":[],"edges":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, "A", wrapped.Name)

	bare, err := decodeWorkflow([]byte(`{"name":"B","nodes":[],"edges":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "B", bare.Name)

	_, err = decodeWorkflow([]byte(`{"nodes":[]}`))
	assert.True(t, errors.Is(err, model.ErrInvalidFormat))

	_, err = decodeWorkflow([]byte(`not json`))
	assert.Error(t, err)
}

func TestCompileCommandPrintsWorkflow(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	path := writeFile(t, `{"nodes":[{"id":"1","name":"Start"},{"id":"2","name":"Send"}],"edges":[{"source":"1","target":"2"}]}`)

	out, err := runCmd(t, "compile", "--file", path, "--log-level", "error")
	require.NoError(t, err)

	var wf map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &wf))
	assert.Equal(t, "Compiled Workflow", wf["name"])
	assert.Equal(t, false, wf["active"])
	assert.Contains(t, wf["connections"], "Start")
}

func TestCompileCommandSubmit(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cli-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"wf-cli","name":"CLI"}`))
	}))
	defer remote.Close()

	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("N8N_API_URL", remote.URL)
	t.Setenv("N8N_API_KEY", "cli-key")
	path := writeFile(t, `{"workflow":{"name":"CLI","nodes":[],"edges":[]}}`)

	out, err := runCmd(t, "compile", "-f", path, "--submit", "--log-level", "error")
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "wf-cli", resp["workflowId"])
	assert.Equal(t, "CLI", resp["workflowName"])
}

func TestCompileCommandRejectsInvalid(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	path := writeFile(t, `{"workflow":{"nodes":[]}}`)

	_, err := runCmd(t, "compile", "--file", path, "--log-level", "error")
	assert.True(t, errors.Is(err, model.ErrInvalidFormat))
}

func TestExecuteReportsErrors(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	missing := filepath.Join(t.TempDir(), "absent.json")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"compile", "--file", missing, "--env-file", "", "--log-level", "error"})
	var stderr bytes.Buffer

	code := execute(cmd, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
	assert.Contains(t, stderr.String(), missing)
}

func TestExecuteSucceedsQuietly(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	path := writeFile(t, `{"nodes":[],"edges":[]}`)

	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"compile", "--file", path, "--env-file", "", "--log-level", "error"})

	assert.Equal(t, 0, execute(cmd, &stderr))
	assert.Empty(t, stderr.String())
	assert.Contains(t, out.String(), "Compiled Workflow")
}
