package mirror

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
)

const (
	pageContentType  = "text/html; charset=utf-8"
	assetContentType = "application/octet-stream"
	assetsDir        = "assets"
)

// Executor runs tasks against a BlobStore. It keeps no state between calls
// and takes no locks: two tasks writing the same mirror path race and the
// last write wins.
type Executor struct {
	store     BlobStore
	extractor *Extractor
	logger    *zap.Logger
}

// NewExecutor wires an Executor.
func NewExecutor(store BlobStore, extractor *Extractor, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:     store,
		extractor: extractor,
		logger:    logger,
	}
}

// Execute runs one task to completion. Page tasks return the assets still to
// be fetched; attach tasks always return an empty list. Directories created
// before a failure are left in place.
func (e *Executor) Execute(ctx context.Context, task Task) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context canceled: %w", err)
	}
	switch t := task.(type) {
	case PageTask:
		return e.executePage(ctx, t)
	case AttachTask:
		return e.executeAttach(ctx, t)
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownTaskType, task)
	}
}

func (e *Executor) executePage(ctx context.Context, task PageTask) (Result, error) {
	dir, err := MapToDirectory(task.URL)
	if err != nil {
		e.logger.Error("cannot extract path from URL", zap.String("url", task.URL))
		return Result{}, err
	}
	if err := e.store.MkdirAll(ctx, dir); err != nil {
		e.logger.Error("cannot create page directory",
			zap.String("url", task.URL), zap.String("dir", dir), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %s: %w", ErrDirectoryCreation, dir, err)
	}

	document := ComposeDocument(task.Head, task.Body)
	target := joinMirrorPath(dir, LeafName(task.URL))
	if _, err := e.store.PutObject(ctx, target, pageContentType, strings.NewReader(document)); err != nil {
		e.logger.Error("cannot write page", zap.String("url", task.URL), zap.String("path", target), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFileWrite, target, err)
	}

	assets, err := e.extractor.Extract(document, task.URL)
	if err != nil {
		return Result{}, err
	}
	e.logger.Debug("page mirrored",
		zap.String("url", task.URL), zap.String("path", target), zap.Int("assets", len(assets)))
	return Result{Assets: assets, PageURL: task.URL}, nil
}

func (e *Executor) executeAttach(ctx context.Context, task AttachTask) (Result, error) {
	pageDir, err := MapToDirectory(task.PageURL)
	if err != nil {
		e.logger.Error("cannot extract path from page URL", zap.String("page_url", task.PageURL))
		return Result{}, err
	}
	assetSub, err := MapToDirectory(task.URL)
	if err != nil {
		e.logger.Error("cannot extract path from asset URL", zap.String("url", task.URL))
		return Result{}, err
	}

	dir := joinMirrorPath(pageDir, assetsDir, assetSub)
	if err := e.store.MkdirAll(ctx, dir); err != nil {
		e.logger.Error("cannot create asset directory",
			zap.String("url", task.URL), zap.String("dir", dir), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %s: %w", ErrDirectoryCreation, dir, err)
	}

	leaf := LeafName(task.URL)
	target := joinMirrorPath(dir, leaf)
	e.logger.Debug("copying asset", zap.String("from", task.FilePath), zap.String("to", target))
	if err := e.copyAsset(ctx, task.FilePath, target, leaf); err != nil {
		e.logger.Error("cannot copy asset", zap.String("url", task.URL), zap.Error(err))
		return Result{}, err
	}
	return Result{Assets: []string{}, PageURL: task.PageURL}, nil
}

func (e *Executor) copyAsset(ctx context.Context, source, target, leaf string) (err error) {
	// #nosec G304 -- the source path is supplied by the trusted fetch agent.
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrFileCopy, source, err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", ErrFileCopy, source, closeErr)
		}
	}()
	if _, err := e.store.PutObject(ctx, target, contentTypeFor(leaf), src); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileCopy, target, err)
	}
	return nil
}

// ComposeDocument wraps head and body fragments in an html envelope.
func ComposeDocument(head, body string) string {
	var b strings.Builder
	b.Grow(len(head) + len(body) + 64)
	b.WriteString("<html>\n")
	b.WriteString("\n<head>\n")
	b.WriteString(head)
	b.WriteString("\n</head>\n")
	b.WriteString("\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n")
	b.WriteString("\n</html>")
	return b.String()
}

func contentTypeFor(leaf string) string {
	if ct := mime.TypeByExtension(path.Ext(leaf)); ct != "" {
		return ct
	}
	return assetContentType
}
