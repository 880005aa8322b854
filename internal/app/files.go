package app

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"postwall/internal/domain"
)

// FileUpload is one incoming binary.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadPostFiles stores the binaries first, concurrently, then records all
// metadata rows in one bulk insert. Any storage failure aborts the batch
// before metadata is written, so the table never points at objects that were
// not stored.
func (a *App) UploadPostFiles(ctx context.Context, postID uint, uploads []FileUpload) ([]FileView, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrValidation)
	}
	if _, ok, err := a.store.GetPost(postID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}

	now := time.Now().UTC()
	rows := make([]domain.PostFile, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, up := range uploads {
		filePath := objectPath(postID, now.UnixMilli(), up.Name)
		rows[i] = domain.PostFile{
			PostID:     postID,
			FilePath:   filePath,
			Bucket:     a.bucket,
			MimeType:   up.ContentType,
			Size:       up.Size,
			UploadedAt: now,
		}
		g.Go(func() error {
			if err := a.objects.Upload(gctx, a.bucket, up.Reader, up.Size, filePath, up.ContentType); err != nil {
				return fmt.Errorf("upload %s: %w", up.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stored, err := a.store.AddPostFiles(rows)
	if err != nil {
		return nil, conflictErr(err)
	}
	return a.signFiles(ctx, stored)
}

// FilesForPost returns the post's file rows with signed URLs.
func (a *App) FilesForPost(ctx context.Context, postID uint) ([]FileView, error) {
	if _, ok, err := a.store.GetPost(postID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	files, err := a.store.ListPostFiles(postID)
	if err != nil {
		return nil, err
	}
	return a.signFiles(ctx, files)
}

// DeleteFile removes one file, storage first. Deleting an absent file is a
// success.
func (a *App) DeleteFile(ctx context.Context, fileID uint) error {
	file, ok, err := a.store.GetPostFile(fileID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := a.objects.Delete(ctx, file.Bucket, []string{file.FilePath}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return a.store.DeletePostFile(fileID)
}

// DeleteFiles removes a batch of files by ID. IDs without a row are skipped.
func (a *App) DeleteFiles(ctx context.Context, fileIDs []uint) error {
	files, err := a.store.ListPostFilesByIDs(fileIDs)
	if err != nil {
		return err
	}
	return a.deleteRows(ctx, files)
}

// DeleteFilesForPost removes every file attached to the post.
func (a *App) DeleteFilesForPost(ctx context.Context, postID uint) error {
	files, err := a.store.ListPostFiles(postID)
	if err != nil {
		return err
	}
	return a.deleteRows(ctx, files)
}

func (a *App) deleteRows(ctx context.Context, files []domain.PostFile) error {
	if len(files) == 0 {
		return nil
	}
	byBucket := make(map[string][]string)
	ids := make([]uint, 0, len(files))
	for _, f := range files {
		byBucket[f.Bucket] = append(byBucket[f.Bucket], f.FilePath)
		ids = append(ids, f.ID)
	}
	for bucket, paths := range byBucket {
		if err := a.objects.Delete(ctx, bucket, paths); err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
	}
	return a.store.DeletePostFilesByIDs(ids)
}

func (a *App) signFiles(ctx context.Context, files []domain.PostFile) ([]FileView, error) {
	views := make([]FileView, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, file := range files {
		views[i] = FileView{PostFile: file}
		g.Go(func() error {
			url, err := a.objects.SignedURL(gctx, file.Bucket, file.FilePath, a.signTTL)
			if err != nil {
				return fmt.Errorf("sign %s: %w", file.FilePath, err)
			}
			views[i].SignedURL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// objectPath builds the storage key. The timestamp prefix keeps re-uploads
// of the same name from overwriting each other.
func objectPath(postID uint, unixMilli int64, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		name = "file"
	}
	return fmt.Sprintf("posts/%d/%d-%s", postID, unixMilli, name)
}
