package app

import (
	"context"
	"fmt"
	"strings"

	"postwall/internal/domain"
	"postwall/internal/store"
)

// CreateTag validates and stores a new tag of the given kind. A missing slug
// is derived from the name.
func (a *App) CreateTag(ctx context.Context, kind domain.TagKind, t domain.Tag) (domain.Tag, error) {
	if !domain.ValidKind(kind) {
		return domain.Tag{}, fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	if strings.TrimSpace(t.Name) == "" {
		return domain.Tag{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if strings.TrimSpace(t.Slug) == "" {
		t.Slug = Slugify(t.Name)
	}
	if _, ok, err := a.store.GetUser(t.UserID); err != nil {
		return domain.Tag{}, err
	} else if !ok {
		return domain.Tag{}, fmt.Errorf("%w: user %d", ErrNotFound, t.UserID)
	}
	created, err := a.store.CreateTag(kind, t)
	if err != nil {
		return domain.Tag{}, conflictErr(err)
	}
	return created, nil
}

// TagByID returns one tag.
func (a *App) TagByID(ctx context.Context, kind domain.TagKind, id uint) (domain.Tag, error) {
	if !domain.ValidKind(kind) {
		return domain.Tag{}, fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	t, ok, err := a.store.GetTag(kind, id)
	if err != nil {
		return domain.Tag{}, err
	}
	if !ok {
		return domain.Tag{}, fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	return t, nil
}

// Tags lists tags of a kind. Without elevated access only public tags are
// returned.
func (a *App) Tags(ctx context.Context, kind domain.TagKind, includeHidden bool) ([]domain.Tag, error) {
	if !domain.ValidKind(kind) {
		return nil, fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	return a.store.ListTags(kind, !includeHidden)
}

// TagsByOwner lists the tags a user owns.
func (a *App) TagsByOwner(ctx context.Context, kind domain.TagKind, userID uint) ([]domain.Tag, error) {
	if !domain.ValidKind(kind) {
		return nil, fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	return a.store.ListTagsByOwner(kind, userID)
}

// UpdateTag applies a partial update.
func (a *App) UpdateTag(ctx context.Context, kind domain.TagKind, id uint, upd store.TagUpdate) (domain.Tag, error) {
	if !domain.ValidKind(kind) {
		return domain.Tag{}, fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	if _, ok, err := a.store.GetTag(kind, id); err != nil {
		return domain.Tag{}, err
	} else if !ok {
		return domain.Tag{}, fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	updated, err := a.store.UpdateTag(kind, id, upd)
	if err != nil {
		return domain.Tag{}, conflictErr(err)
	}
	if upd.IsPublic != nil {
		// Flipping a tag's flag changes the visibility of every linked post.
		a.invalidateCalendar(ctx)
	}
	return updated, nil
}

// DeleteTag removes the tag; posts linked to it simply lose the link.
func (a *App) DeleteTag(ctx context.Context, kind domain.TagKind, id uint) error {
	if !domain.ValidKind(kind) {
		return fmt.Errorf("%w: unknown tag kind %q", ErrValidation, kind)
	}
	if _, ok, err := a.store.GetTag(kind, id); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	if err := a.store.DeleteTag(kind, id); err != nil {
		return err
	}
	// Removing a hidden tag can make its posts visible again.
	a.invalidateCalendar(ctx)
	return nil
}

// Slugify lowercases a name and collapses everything else to hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
