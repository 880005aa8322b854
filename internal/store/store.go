package store

import (
	"time"

	"postwall/internal/domain"
)

// PostFilter bounds a post ID selection. Every bound is pushed into the
// store-side predicate so that limit/offset apply after filtering, never
// before. The zero filter selects everything visible to an unprivileged
// caller.
type PostFilter struct {
	// Day restricts to posts created within the UTC day starting at Day.
	Day *time.Time
	// TagKind+TagID restrict to posts linked to one tag. TagKind empty
	// means no membership bound.
	TagKind domain.TagKind
	TagID   uint
	// PostIDs restricts to an explicit candidate set (topic aggregates).
	// nil means unrestricted; an empty non-nil slice selects nothing.
	PostIDs []uint
	// IncludeHidden disables the visibility predicate entirely.
	IncludeHidden bool

	Limit  int
	Offset int
}

// Patch types carry partial updates; nil fields are left untouched.

type UserUpdate struct {
	Name  *string
	Email *string
}

type PostUpdate struct {
	Content  *string
	IsPublic *bool
}

type TagUpdate struct {
	Name     *string
	Slug     *string
	IsPublic *bool
}

type TopicUpdate struct {
	Name     *string
	Slug     *string
	IsPublic *bool
}

// Store defines persistence operations for users, posts, tags, topics and
// file metadata. Point lookups return (zero, false, nil) for absent rows;
// constraint violations and other store failures propagate as errors.
type Store interface {
	// users
	CreateUser(u domain.User) (domain.User, error)
	GetUser(id uint) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	UpdateUser(id uint, upd UserUpdate) (domain.User, error)
	DeleteUser(id uint) error

	// posts
	CreatePost(p domain.Post) (domain.Post, error)
	GetPost(id uint) (domain.PostDetail, bool, error)
	UpdatePost(id uint, upd PostUpdate) (domain.PostDetail, error)
	DeletePost(id uint) error

	// query engine primitives
	SelectPostIDs(f PostFilter) ([]uint, error)
	PostsByIDs(ids []uint) ([]domain.PostDetail, error)
	CalendarDates(includeHidden bool) ([]time.Time, error)

	// tags (categories, collections, communities)
	CreateTag(kind domain.TagKind, t domain.Tag) (domain.Tag, error)
	GetTag(kind domain.TagKind, id uint) (domain.Tag, bool, error)
	ListTags(kind domain.TagKind, onlyPublic bool) ([]domain.Tag, error)
	ListTagsByOwner(kind domain.TagKind, userID uint) ([]domain.Tag, error)
	UpdateTag(kind domain.TagKind, id uint, upd TagUpdate) (domain.Tag, error)
	DeleteTag(kind domain.TagKind, id uint) error

	// post-tag relations
	AssignTag(kind domain.TagKind, postID, tagID uint) error
	ClearPostTags(kind domain.TagKind, postID uint) error
	ReassignTag(kind domain.TagKind, postID, tagID uint) error

	// topics
	CreateTopic(t domain.Topic) (domain.Topic, error)
	GetTopic(id uint) (domain.Topic, bool, error)
	GetTopicBySlug(slug string) (domain.Topic, bool, error)
	ListTopics(onlyPublic bool) ([]domain.Topic, error)
	UpdateTopic(id uint, upd TopicUpdate) (domain.Topic, error)
	DeleteTopic(id uint) error
	TopicLinks(topicID uint) (domain.TopicRelations, error)
	ReplaceTopicLinks(topicID uint, links []domain.TopicLink) error
	TopicPostIDs(topicID uint) ([]uint, error)

	// post file metadata
	AddPostFiles(files []domain.PostFile) ([]domain.PostFile, error)
	GetPostFile(id uint) (domain.PostFile, bool, error)
	ListPostFiles(postID uint) ([]domain.PostFile, error)
	ListPostFilesByIDs(ids []uint) ([]domain.PostFile, error)
	DeletePostFile(id uint) error
	DeletePostFilesByIDs(ids []uint) error
	DeletePostFilesByPost(postID uint) error
}
