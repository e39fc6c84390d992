package mirror_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemirror/internal/mirror"
	"github.com/JakeFAU/sitemirror/internal/storage/local"
)

const testPageURL = "https://uh.com/ma/super/page/page_a_sauver.html"

// MockBlobStore is a mock implementation of the BlobStore interface.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) MkdirAll(ctx context.Context, dir string) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

func (m *MockBlobStore) PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error) {
	args := m.Called(ctx, path, contentType, data)
	return args.String(0), args.Error(1)
}

type unknownTask struct{}

func (unknownTask) Type() mirror.TaskType { return "unknown" }
func (unknownTask) TargetURL() string     { return "" }

func newExecutor(t *testing.T, store mirror.BlobStore) *mirror.Executor {
	t.Helper()
	filter, err := mirror.NewFilter(mirror.FilterConfig{AssetHostSubstrings: []string{"assets-test"}})
	require.NoError(t, err)
	return mirror.NewExecutor(store, mirror.NewExtractor(filter), zap.NewNop())
}

func newLocalExecutor(t *testing.T) (*mirror.Executor, string) {
	t.Helper()
	root := t.TempDir()
	store, err := local.New(local.Config{BaseDir: root})
	require.NoError(t, err)
	return newExecutor(t, store), root
}

func TestExecutePageWritesDocument(t *testing.T) {
	t.Parallel()

	exec, root := newLocalExecutor(t)
	head := "<head>voily le head</head>"
	body := `<body>voilà le body<img src="https://assets-test.com/mon/super/asset"></body>`

	res, err := exec.Execute(context.Background(), mirror.PageTask{URL: testPageURL, Body: body, Head: head})
	require.NoError(t, err)
	require.Equal(t, testPageURL, res.PageURL)
	require.Equal(t, []string{"https://assets-test.com/mon/super/asset"}, res.Assets)

	info, err := os.Stat(filepath.Join(root, "uh.com", "ma", "super", "page"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	// #nosec G304 -- test reads from the controlled temp directory.
	written, err := os.ReadFile(filepath.Join(root, "uh.com", "ma", "super", "page", "page_a_sauver.html"))
	require.NoError(t, err)
	require.Equal(t, mirror.ComposeDocument(head, body), string(written))
	require.Equal(t,
		"<html>\n\n<head>\n"+head+"\n</head>\n\n<body>\n"+body+"\n</body>\n\n</html>",
		string(written),
	)
}

func TestExecutePageWithoutAssetsReturnsEmptyList(t *testing.T) {
	t.Parallel()

	exec, _ := newLocalExecutor(t)
	res, err := exec.Execute(context.Background(), mirror.PageTask{URL: testPageURL, Body: "<p>plain</p>"})
	require.NoError(t, err)
	require.NotNil(t, res.Assets)
	require.Empty(t, res.Assets)
}

func TestExecutePageRejectsUnmappableURL(t *testing.T) {
	t.Parallel()

	store := &MockBlobStore{}
	exec := newExecutor(t, store)
	_, err := exec.Execute(context.Background(), mirror.PageTask{URL: "https://uh.com"})
	require.ErrorIs(t, err, mirror.ErrPathExtraction)
	store.AssertNotCalled(t, "MkdirAll", mock.Anything, mock.Anything)
}

func TestExecutePageDirectoryFailure(t *testing.T) {
	t.Parallel()

	store := &MockBlobStore{}
	store.On("MkdirAll", mock.Anything, "uh.com/ma/super/page").Return(errors.New("read-only"))
	exec := newExecutor(t, store)

	_, err := exec.Execute(context.Background(), mirror.PageTask{URL: testPageURL})
	require.ErrorIs(t, err, mirror.ErrDirectoryCreation)
	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutePageWriteFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	store := &MockBlobStore{}
	store.On("MkdirAll", mock.Anything, "uh.com/ma/super/page").Return(nil)
	store.On("PutObject", mock.Anything, "uh.com/ma/super/page/page_a_sauver.html", "text/html; charset=utf-8", mock.Anything).
		Return("", errors.New("disk full"))
	exec := newExecutor(t, store)

	_, err := exec.Execute(context.Background(), mirror.PageTask{URL: testPageURL})
	require.ErrorIs(t, err, mirror.ErrFileWrite)
	require.ErrorContains(t, err, "disk full")
	store.AssertExpectations(t)
}

func TestExecuteAttachCopiesAsset(t *testing.T) {
	t.Parallel()

	exec, root := newLocalExecutor(t)
	source := filepath.Join(t.TempDir(), "asset.txt")
	require.NoError(t, os.WriteFile(source, []byte("asset bytes"), 0o600))

	res, err := exec.Execute(context.Background(), mirror.AttachTask{
		URL:      "https://assets-test.com/mon/super/asset",
		FilePath: source,
		PageURL:  testPageURL,
	})
	require.NoError(t, err)
	require.Equal(t, testPageURL, res.PageURL)
	require.NotNil(t, res.Assets)
	require.Empty(t, res.Assets)

	target := filepath.Join(root, "uh.com", "ma", "super", "page", "assets", "assets-test.com", "mon", "super", "asset")
	// #nosec G304 -- test reads from the controlled temp directory.
	copied, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "asset bytes", string(copied))

	data, err := os.ReadFile(source) // #nosec G304 -- controlled temp file.
	require.NoError(t, err)
	require.Equal(t, "asset bytes", string(data), "source must be left untouched")
}

func TestExecuteAttachMissingSourceLeavesDirectory(t *testing.T) {
	t.Parallel()

	exec, root := newLocalExecutor(t)
	_, err := exec.Execute(context.Background(), mirror.AttachTask{
		URL:      "https://assets-test.com/mon/super/asset",
		FilePath: filepath.Join(t.TempDir(), "missing"),
		PageURL:  testPageURL,
	})
	require.ErrorIs(t, err, mirror.ErrFileCopy)

	info, statErr := os.Stat(filepath.Join(root, "uh.com", "ma", "super", "page", "assets", "assets-test.com", "mon", "super"))
	require.NoError(t, statErr)
	require.True(t, info.IsDir())
}

func TestExecuteAttachRejectsUnmappableURLs(t *testing.T) {
	t.Parallel()

	store := &MockBlobStore{}
	exec := newExecutor(t, store)

	_, err := exec.Execute(context.Background(), mirror.AttachTask{URL: "https://assets-test.com/a/b", FilePath: "/tmp/x", PageURL: "uh.com"})
	require.ErrorIs(t, err, mirror.ErrPathExtraction)

	_, err = exec.Execute(context.Background(), mirror.AttachTask{URL: "assets-test.com", FilePath: "/tmp/x", PageURL: testPageURL})
	require.ErrorIs(t, err, mirror.ErrPathExtraction)
	store.AssertNotCalled(t, "MkdirAll", mock.Anything, mock.Anything)
}

func TestExecuteAttachStoreFailure(t *testing.T) {
	t.Parallel()

	source := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(source, []byte("png"), 0o600))

	store := &MockBlobStore{}
	dir := "uh.com/ma/super/page/assets/assets-test.com/img"
	store.On("MkdirAll", mock.Anything, dir).Return(nil)
	store.On("PutObject", mock.Anything, dir+"/logo.png", "image/png", mock.Anything).Return("", errors.New("quota"))
	exec := newExecutor(t, store)

	_, err := exec.Execute(context.Background(), mirror.AttachTask{
		URL:      "https://assets-test.com/img/logo.png",
		FilePath: source,
		PageURL:  testPageURL,
	})
	require.ErrorIs(t, err, mirror.ErrFileCopy)
	store.AssertExpectations(t)
}

func TestExecuteRejectsUnknownTask(t *testing.T) {
	t.Parallel()

	exec := newExecutor(t, &MockBlobStore{})
	_, err := exec.Execute(context.Background(), unknownTask{})
	require.ErrorIs(t, err, mirror.ErrUnknownTaskType)
}

func TestExecuteHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store := &MockBlobStore{}
	exec := newExecutor(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, mirror.PageTask{URL: testPageURL})
	require.ErrorIs(t, err, context.Canceled)
	store.AssertNotCalled(t, "MkdirAll", mock.Anything, mock.Anything)
}

func TestExecuteDisjointTasksInParallel(t *testing.T) {
	t.Parallel()

	exec, root := newLocalExecutor(t)
	urls := []string{
		"https://uh.com/a/one.html",
		"https://uh.com/b/two.html",
		"https://other.org/c/three.html",
	}
	errs := make(chan error, len(urls))
	for _, u := range urls {
		go func(u string) {
			_, err := exec.Execute(context.Background(), mirror.PageTask{URL: u, Body: u})
			errs <- err
		}(u)
	}
	for range urls {
		require.NoError(t, <-errs)
	}
	for _, rel := range []string{"uh.com/a/one.html", "uh.com/b/two.html", "other.org/c/three.html"} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
	}
}
