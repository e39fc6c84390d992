package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitemirror/internal/mirror"
)

func writeConfig(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "mirror:\n  backend: local\n  root: " + root + "\nlogging:\n  development: false\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExecPageTaskFromFile(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root)
	taskPath := filepath.Join(t.TempDir(), "task.json")
	task := `{"task_type":"parse","url":"https://uh.com/ma/page.html",` +
		`"body":"<img src=\"https://cdn.ekla.fr/a.png\">","head":"<title>x</title>"}`
	require.NoError(t, os.WriteFile(taskPath, []byte(task), 0o600))

	out, err := runRoot(t, "", "exec", "--config", cfgPath, taskPath)
	require.NoError(t, err)

	var result mirror.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, "https://uh.com/ma/page.html", result.PageURL)
	require.Equal(t, []string{"https://cdn.ekla.fr/a.png"}, result.Assets)

	data, err := os.ReadFile(filepath.Join(root, "uh.com", "ma", "page.html"))
	require.NoError(t, err)
	require.Contains(t, string(data), "<title>x</title>")
}

func TestExecAttachTaskFromStdin(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root)
	src := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(src, []byte("img"), 0o600))
	task, err := json.Marshal(map[string]string{
		"task_type": "attach",
		"url":       "https://cdn.ekla.fr/img/a.png",
		"file_path": src,
		"page_url":  "https://uh.com/ma/page.html",
	})
	require.NoError(t, err)

	out, err := runRoot(t, string(task), "exec", "--config", cfgPath, "-")
	require.NoError(t, err)
	require.JSONEq(t, `{"assets":[],"page_url":"https://uh.com/ma/page.html"}`, out)

	data, err := os.ReadFile(filepath.Join(root, "uh.com", "ma", "assets", "cdn.ekla.fr", "img", "a.png"))
	require.NoError(t, err)
	require.Equal(t, "img", string(data))
}

func TestExecFailures(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())

	_, err := runRoot(t, "", "exec", "--config", cfgPath, filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "read task file")

	_, err = runRoot(t, `{"task_type":"sweep","url":"https://a.com/b/c"}`, "exec", "--config", cfgPath, "-")
	require.ErrorIs(t, err, mirror.ErrUnknownTaskType)

	_, err = runRoot(t, `{"task_type":"parse","url":"nope","body":"","head":""}`, "exec", "--config", cfgPath, "-")
	require.ErrorIs(t, err, mirror.ErrPathExtraction)

	_, err = runRoot(t, "", "exec", "--config", cfgPath)
	require.Error(t, err)
}

func TestRootFailsOnBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mirror:\n  backend: tape\n"), 0o600))

	_, err := runRoot(t, "", "exec", "--config", path, "-")
	require.ErrorContains(t, err, "failed to initialize application")
}

type fakeApp struct {
	runs   int
	closed int
	runErr error
}

func (f *fakeApp) Executor() *mirror.Executor { return nil }

func (f *fakeApp) Run(context.Context) error {
	f.runs++
	return f.runErr
}

func (f *fakeApp) Close() { f.closed++ }

func TestServeRunsAndClosesApp(t *testing.T) {
	fake := &fakeApp{}
	orig := newApp
	newApp = func(context.Context, string) (App, error) { return fake, nil }
	t.Cleanup(func() { newApp = orig })

	_, err := runRoot(t, "", "serve")
	require.NoError(t, err)
	require.Equal(t, 1, fake.runs)
	require.Equal(t, 1, fake.closed)

	fake.runErr = errors.New("port in use")
	_, err = runRoot(t, "", "serve")
	require.ErrorContains(t, err, "port in use")
}

func TestResolveAppWithoutApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
