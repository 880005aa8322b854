package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"postwall/internal/domain"
	"postwall/internal/storage"
	"postwall/internal/store"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore, *storage.MemoryObjectStore) {
	t.Helper()
	st := store.NewMemoryStore()
	objects := storage.NewMemoryObjectStore()
	return New(st, objects, Options{}), st, objects
}

func seedPostWithUser(t *testing.T, a *App) domain.Post {
	t.Helper()
	ctx := context.Background()
	u, err := a.CreateUser(ctx, domain.User{Name: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	p, err := a.CreatePost(ctx, domain.Post{Content: "hello", IsPublic: true, UserID: u.ID})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func upload(name, content string) FileUpload {
	return FileUpload{
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Reader:      strings.NewReader(content),
	}
}

func TestUploadPostFilesStoresObjectsAndMetadata(t *testing.T) {
	a, st, objects := newTestApp(t)
	ctx := context.Background()
	p := seedPostWithUser(t, a)

	views, err := a.UploadPostFiles(ctx, p.ID, []FileUpload{
		upload("one.txt", "first"),
		upload("two.txt", "second"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 file views, got %d", len(views))
	}
	for _, v := range views {
		if v.SignedURL == "" {
			t.Fatalf("missing signed url: %+v", v)
		}
		if !strings.HasPrefix(v.FilePath, "posts/") {
			t.Fatalf("unexpected object path: %q", v.FilePath)
		}
		if !objects.Has(v.Bucket, v.FilePath) {
			t.Fatalf("object missing in storage: %q", v.FilePath)
		}
	}
	rows, err := st.ListPostFiles(p.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("expected 2 metadata rows, got %v (%v)", rows, err)
	}
}

func TestUploadFailureWritesNoMetadata(t *testing.T) {
	a, st, objects := newTestApp(t)
	ctx := context.Background()
	p := seedPostWithUser(t, a)

	objects.FailUploads = true
	if _, err := a.UploadPostFiles(ctx, p.ID, []FileUpload{upload("one.txt", "x")}); err == nil {
		t.Fatalf("expected upload failure")
	}
	rows, err := st.ListPostFiles(p.ID)
	if err != nil || len(rows) != 0 {
		t.Fatalf("metadata written despite storage failure: %v (%v)", rows, err)
	}
}

func TestUploadToMissingPostFails(t *testing.T) {
	a, _, _ := newTestApp(t)
	if _, err := a.UploadPostFiles(context.Background(), 42, []FileUpload{upload("a", "x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteFileRemovesStorageAndMetadata(t *testing.T) {
	a, st, objects := newTestApp(t)
	ctx := context.Background()
	p := seedPostWithUser(t, a)
	views, err := a.UploadPostFiles(ctx, p.ID, []FileUpload{upload("one.txt", "x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := a.DeleteFile(ctx, views[0].ID); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if objects.Has(views[0].Bucket, views[0].FilePath) {
		t.Fatalf("object survived delete")
	}
	if _, ok, _ := st.GetPostFile(views[0].ID); ok {
		t.Fatalf("metadata survived delete")
	}
}

func TestDeleteAbsentFileIsSuccess(t *testing.T) {
	a, _, _ := newTestApp(t)
	if err := a.DeleteFile(context.Background(), 404); err != nil {
		t.Fatalf("delete of absent file must succeed, got %v", err)
	}
	if err := a.DeleteFiles(context.Background(), []uint{1, 2, 3}); err != nil {
		t.Fatalf("bulk delete of absent files must succeed, got %v", err)
	}
}

func TestDeleteKeepsMetadataWhenStorageFails(t *testing.T) {
	a, st, objects := newTestApp(t)
	ctx := context.Background()
	p := seedPostWithUser(t, a)
	views, err := a.UploadPostFiles(ctx, p.ID, []FileUpload{upload("one.txt", "x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	objects.FailDeletes = true
	if err := a.DeleteFile(ctx, views[0].ID); err == nil {
		t.Fatalf("expected storage failure to propagate")
	}
	// Metadata must survive so the pointer is never orphaned.
	if _, ok, _ := st.GetPostFile(views[0].ID); !ok {
		t.Fatalf("metadata deleted before storage succeeded")
	}
}

func TestFilesForPostSignsEveryRow(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	p := seedPostWithUser(t, a)
	if _, err := a.UploadPostFiles(ctx, p.ID, []FileUpload{upload("a.txt", "1"), upload("b.txt", "2")}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	views, err := a.FilesForPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("files for post: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	for _, v := range views {
		if v.SignedURL == "" {
			t.Fatalf("missing signed url: %+v", v)
		}
	}
}

func TestDeletePostRemovesObjectsFirst(t *testing.T) {
	a, st, objects := newTestApp(t)
	ctx := context.Background()
	p := seedPostWithUser(t, a)
	views, err := a.UploadPostFiles(ctx, p.ID, []FileUpload{upload("one.txt", "x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := a.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if objects.Has(views[0].Bucket, views[0].FilePath) {
		t.Fatalf("object survived post delete")
	}
	if _, ok, _ := st.GetPost(p.ID); ok {
		t.Fatalf("post survived delete")
	}
}

func TestObjectPathSanitizesNames(t *testing.T) {
	got := objectPath(7, 1700000000000, "../weird name!.png")
	if got != "posts/7/1700000000000-weird_name_.png" {
		t.Fatalf("unexpected path: %q", got)
	}
	if p := objectPath(7, 1, ""); p != "posts/7/1-file" {
		t.Fatalf("empty name fallback wrong: %q", p)
	}
}
