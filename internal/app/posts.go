package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"postwall/internal/domain"
	"postwall/internal/store"
	"postwall/internal/util"
)

// FileView is stored file metadata plus a time-limited download URL.
type FileView struct {
	domain.PostFile
	SignedURL string `json:"signedUrl,omitempty"`
}

// PostView is a hydrated post with downloadable files.
type PostView struct {
	domain.PostDetail
	Files []FileView `json:"files"`
}

// WallQuery bounds one wall page.
type WallQuery struct {
	Day           *time.Time
	Limit         int
	Offset        int
	IncludeHidden bool
}

// CreatePost validates and stores a new post.
func (a *App) CreatePost(ctx context.Context, p domain.Post) (domain.Post, error) {
	if strings.TrimSpace(p.Content) == "" {
		return domain.Post{}, fmt.Errorf("%w: content required", ErrValidation)
	}
	if _, ok, err := a.store.GetUser(p.UserID); err != nil {
		return domain.Post{}, err
	} else if !ok {
		return domain.Post{}, fmt.Errorf("%w: user %d", ErrNotFound, p.UserID)
	}
	created, err := a.store.CreatePost(p)
	if err != nil {
		return domain.Post{}, conflictErr(err)
	}
	a.invalidateCalendar(ctx)
	return created, nil
}

// PostByID returns one hydrated post with signed file URLs.
func (a *App) PostByID(ctx context.Context, id uint) (PostView, error) {
	detail, ok, err := a.store.GetPost(id)
	if err != nil {
		return PostView{}, err
	}
	if !ok {
		return PostView{}, fmt.Errorf("%w: post %d", ErrNotFound, id)
	}
	views, err := a.signPosts(ctx, []domain.PostDetail{detail})
	if err != nil {
		return PostView{}, err
	}
	return views[0], nil
}

// UpdatePost applies a partial update.
func (a *App) UpdatePost(ctx context.Context, id uint, upd store.PostUpdate) (PostView, error) {
	if _, ok, err := a.store.GetPost(id); err != nil {
		return PostView{}, err
	} else if !ok {
		return PostView{}, fmt.Errorf("%w: post %d", ErrNotFound, id)
	}
	detail, err := a.store.UpdatePost(id, upd)
	if err != nil {
		return PostView{}, conflictErr(err)
	}
	a.invalidateCalendar(ctx)
	views, err := a.signPosts(ctx, []domain.PostDetail{detail})
	if err != nil {
		return PostView{}, err
	}
	return views[0], nil
}

// DeletePost removes the post, its stored objects and its metadata. Objects
// go first so that a failure never leaves metadata pointing at nothing.
func (a *App) DeletePost(ctx context.Context, id uint) error {
	if _, ok, err := a.store.GetPost(id); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: post %d", ErrNotFound, id)
	}
	if err := a.DeleteFilesForPost(ctx, id); err != nil {
		return err
	}
	if err := a.store.DeletePost(id); err != nil {
		return err
	}
	a.invalidateCalendar(ctx)
	return nil
}

// WallPage returns one page of the wall: visibility filtering and pagination
// happen together in the store, hydration afterwards.
func (a *App) WallPage(ctx context.Context, q WallQuery) ([]PostView, error) {
	ids, err := a.store.SelectPostIDs(store.PostFilter{
		Day:           q.Day,
		IncludeHidden: q.IncludeHidden,
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
	if err != nil {
		return nil, err
	}
	return a.hydrate(ctx, ids)
}

// PostsByTag pages over the posts linked to one tag.
func (a *App) PostsByTag(ctx context.Context, kind domain.TagKind, tagID uint, limit, offset int, includeHidden bool) ([]PostView, error) {
	if !domain.ValidKind(kind) {
		return nil, fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	if _, ok, err := a.store.GetTag(kind, tagID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, kind, tagID)
	}
	ids, err := a.store.SelectPostIDs(store.PostFilter{
		TagKind:       kind,
		TagID:         tagID,
		IncludeHidden: includeHidden,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, err
	}
	return a.hydrate(ctx, ids)
}

// PostsByTopic pages over every post reachable through the topic's linked
// tags. Candidates are resolved first; the visibility filter and the page
// bounds then apply to that set exactly like any other query.
func (a *App) PostsByTopic(ctx context.Context, topicID uint, limit, offset int, includeHidden bool) ([]PostView, error) {
	if _, ok, err := a.store.GetTopic(topicID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: topic %d", ErrNotFound, topicID)
	}
	candidates, err := a.store.TopicPostIDs(topicID)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []uint{}
	}
	ids, err := a.store.SelectPostIDs(store.PostFilter{
		PostIDs:       candidates,
		IncludeHidden: includeHidden,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, err
	}
	return a.hydrate(ctx, ids)
}

// Calendar returns creation timestamps for the density view, served through
// the cache when one is configured.
func (a *App) Calendar(ctx context.Context, includeHidden bool) ([]time.Time, error) {
	if a.calendar != nil {
		if dates, ok, err := a.calendar.Get(ctx, includeHidden); err == nil && ok {
			return dates, nil
		} else if err != nil {
			util.LoggerFromContext(ctx).Warn("calendar cache read failed", "error", err)
		}
	}
	dates, err := a.store.CalendarDates(includeHidden)
	if err != nil {
		return nil, err
	}
	if a.calendar != nil {
		if err := a.calendar.Set(ctx, includeHidden, dates); err != nil {
			util.LoggerFromContext(ctx).Warn("calendar cache write failed", "error", err)
		}
	}
	return dates, nil
}

func (a *App) invalidateCalendar(ctx context.Context) {
	if a.calendar == nil {
		return
	}
	if err := a.calendar.Invalidate(ctx); err != nil {
		util.LoggerFromContext(ctx).Warn("calendar cache invalidate failed", "error", err)
	}
}

// AssignTag links one tag to the post. Assigning an existing pair is a
// constraint violation, not a no-op.
func (a *App) AssignTag(ctx context.Context, kind domain.TagKind, postID, tagID uint) error {
	if err := a.checkRelation(kind, postID, tagID); err != nil {
		return err
	}
	if err := conflictErr(a.store.AssignTag(kind, postID, tagID)); err != nil {
		return err
	}
	// Linking a hidden tag hides the post.
	a.invalidateCalendar(ctx)
	return nil
}

// UnassignTags removes every link of the kind from the post.
func (a *App) UnassignTags(ctx context.Context, kind domain.TagKind, postID uint) error {
	if !domain.ValidKind(kind) {
		return fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	if _, ok, err := a.store.GetPost(postID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	if err := a.store.ClearPostTags(kind, postID); err != nil {
		return err
	}
	a.invalidateCalendar(ctx)
	return nil
}

// ReassignTag makes tagID the post's only tag of the kind.
func (a *App) ReassignTag(ctx context.Context, kind domain.TagKind, postID, tagID uint) error {
	if err := a.checkRelation(kind, postID, tagID); err != nil {
		return err
	}
	if err := conflictErr(a.store.ReassignTag(kind, postID, tagID)); err != nil {
		return err
	}
	a.invalidateCalendar(ctx)
	return nil
}

func (a *App) checkRelation(kind domain.TagKind, postID, tagID uint) error {
	if !domain.ValidKind(kind) {
		return fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	if _, ok, err := a.store.GetPost(postID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	if _, ok, err := a.store.GetTag(kind, tagID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, tagID)
	}
	return nil
}

func (a *App) hydrate(ctx context.Context, ids []uint) ([]PostView, error) {
	if len(ids) == 0 {
		return []PostView{}, nil
	}
	details, err := a.store.PostsByIDs(ids)
	if err != nil {
		return nil, err
	}
	return a.signPosts(ctx, details)
}

// signPosts attaches signed URLs to every file of every post, one signing
// call per file, bounded by the batch errgroup.
func (a *App) signPosts(ctx context.Context, details []domain.PostDetail) ([]PostView, error) {
	views := make([]PostView, len(details))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, detail := range details {
		views[i] = PostView{PostDetail: detail, Files: make([]FileView, len(detail.Files))}
		for j, file := range detail.Files {
			views[i].Files[j] = FileView{PostFile: file}
			g.Go(func() error {
				url, err := a.objects.SignedURL(gctx, file.Bucket, file.FilePath, a.signTTL)
				if err != nil {
					return fmt.Errorf("sign %s: %w", file.FilePath, err)
				}
				views[i].Files[j].SignedURL = url
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
