package app

import (
	"context"
	"fmt"
	"strings"

	"postwall/internal/domain"
	"postwall/internal/store"
)

// TopicView is a topic together with its linked tags.
type TopicView struct {
	domain.Topic
	Relations domain.TopicRelations `json:"relations"`
}

// CreateTopic validates and stores a new topic.
func (a *App) CreateTopic(ctx context.Context, t domain.Topic) (domain.Topic, error) {
	if strings.TrimSpace(t.Name) == "" {
		return domain.Topic{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if strings.TrimSpace(t.Slug) == "" {
		t.Slug = Slugify(t.Name)
	}
	created, err := a.store.CreateTopic(t)
	if err != nil {
		return domain.Topic{}, conflictErr(err)
	}
	return created, nil
}

// TopicByID returns a topic with its relations.
func (a *App) TopicByID(ctx context.Context, id uint) (TopicView, error) {
	t, ok, err := a.store.GetTopic(id)
	if err != nil {
		return TopicView{}, err
	}
	if !ok {
		return TopicView{}, fmt.Errorf("%w: topic %d", ErrNotFound, id)
	}
	rel, err := a.store.TopicLinks(id)
	if err != nil {
		return TopicView{}, err
	}
	return TopicView{Topic: t, Relations: rel}, nil
}

// TopicBySlug returns a topic with its relations, looked up by slug.
func (a *App) TopicBySlug(ctx context.Context, slug string) (TopicView, error) {
	t, ok, err := a.store.GetTopicBySlug(slug)
	if err != nil {
		return TopicView{}, err
	}
	if !ok {
		return TopicView{}, fmt.Errorf("%w: topic %q", ErrNotFound, slug)
	}
	rel, err := a.store.TopicLinks(t.ID)
	if err != nil {
		return TopicView{}, err
	}
	return TopicView{Topic: t, Relations: rel}, nil
}

// Topics lists topics; without elevated access only public ones.
func (a *App) Topics(ctx context.Context, includeHidden bool) ([]domain.Topic, error) {
	return a.store.ListTopics(!includeHidden)
}

// UpdateTopic applies a partial update.
func (a *App) UpdateTopic(ctx context.Context, id uint, upd store.TopicUpdate) (domain.Topic, error) {
	if _, ok, err := a.store.GetTopic(id); err != nil {
		return domain.Topic{}, err
	} else if !ok {
		return domain.Topic{}, fmt.Errorf("%w: topic %d", ErrNotFound, id)
	}
	updated, err := a.store.UpdateTopic(id, upd)
	if err != nil {
		return domain.Topic{}, conflictErr(err)
	}
	return updated, nil
}

// DeleteTopic removes the topic and its links. Posts and tags are untouched.
func (a *App) DeleteTopic(ctx context.Context, id uint) error {
	if _, ok, err := a.store.GetTopic(id); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: topic %d", ErrNotFound, id)
	}
	return a.store.DeleteTopic(id)
}

// ReplaceTopicLinks swaps the topic's full link set. An empty list clears
// every link and succeeds.
func (a *App) ReplaceTopicLinks(ctx context.Context, id uint, links []domain.TopicLink) (TopicView, error) {
	if _, ok, err := a.store.GetTopic(id); err != nil {
		return TopicView{}, err
	} else if !ok {
		return TopicView{}, fmt.Errorf("%w: topic %d", ErrNotFound, id)
	}
	for _, link := range links {
		if !domain.ValidKind(link.Kind) {
			return TopicView{}, fmt.Errorf("%w: unknown tag kind %q", ErrValidation, link.Kind)
		}
		if _, ok, err := a.store.GetTag(link.Kind, link.ID); err != nil {
			return TopicView{}, err
		} else if !ok {
			return TopicView{}, fmt.Errorf("%w: %s %d", ErrNotFound, link.Kind, link.ID)
		}
	}
	if err := a.store.ReplaceTopicLinks(id, links); err != nil {
		return TopicView{}, conflictErr(err)
	}
	return a.TopicByID(ctx, id)
}
