package memory

import (
	"context"
	"strings"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "path/page.html", "text/html", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://path/page.html" {
		t.Fatalf("unexpected uri %s", uri)
	}
	got, ok := store.Object("path/page.html")
	if !ok || string(got) != "content" {
		t.Fatalf("unexpected object %q ok=%v", got, ok)
	}
	got[0] = 'C'
	again, _ := store.Object("path/page.html")
	if string(again) != "content" {
		t.Fatalf("expected Object() to return a copy, got %q", again)
	}
}

func TestBlobStoreRejectsEmptyPaths(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	if _, err := store.PutObject(context.Background(), " ", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected empty path error")
	}
	if err := store.MkdirAll(context.Background(), ""); err == nil {
		t.Fatal("expected empty dir error")
	}
}

func TestBlobStoreDirs(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, d := range []string{"b.com/x", "a.com/y", "b.com/x"} {
		if err := store.MkdirAll(context.Background(), d); err != nil {
			t.Fatalf("MkdirAll(%q) error = %v", d, err)
		}
	}
	dirs := store.Dirs()
	if len(dirs) != 2 || dirs[0] != "a.com/y" || dirs[1] != "b.com/x" {
		t.Fatalf("unexpected dirs %v", dirs)
	}
}
