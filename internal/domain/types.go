package domain

import "time"

// TagKind names one of the three post-taggable container types. Categories,
// collections and communities share a shape and differ only in role and
// default visibility.
type TagKind string

const (
	KindCategory   TagKind = "category"
	KindCollection TagKind = "collection"
	KindCommunity  TagKind = "community"
)

// Kinds lists every tag kind in a stable order.
var Kinds = []TagKind{KindCategory, KindCollection, KindCommunity}

// ValidKind reports whether k names a known tag kind.
func ValidKind(k TagKind) bool {
	switch k {
	case KindCategory, KindCollection, KindCommunity:
		return true
	}
	return false
}

// User owns posts and tag containers.
type User struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserSummary is the slice of a user embedded in post responses.
type UserSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Post is a piece of user content. Its effective visibility to an
// unprivileged caller also depends on the visibility of every tag it is
// linked to.
type Post struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	IsPublic  bool      `json:"isPublic"`
	UserID    uint      `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostFile is the relational metadata for one stored binary. The bucket and
// file path are the only pointer into object storage.
type PostFile struct {
	ID         uint      `json:"id"`
	PostID     uint      `json:"postId"`
	FilePath   string    `json:"filePath"`
	Bucket     string    `json:"bucket"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Tag is a category, collection or community row.
type Tag struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsPublic bool   `json:"isPublic"`
	UserID   uint   `json:"userId"`
}

// Topic is a saved cross-cutting filter over sets of tags. It does not
// contain posts directly.
type Topic struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsPublic  bool      `json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TopicLink declares one tag a topic aggregates over.
type TopicLink struct {
	Kind TagKind `json:"type"`
	ID   uint    `json:"id"`
}

// TopicRelations holds a topic's linked tags flattened per kind.
type TopicRelations struct {
	Categories  []Tag `json:"categories"`
	Collections []Tag `json:"collections"`
	Communities []Tag `json:"communities"`
}

// PostDetail is a fully hydrated post: owner summary, file metadata and
// flattened tag lists.
type PostDetail struct {
	Post
	User        UserSummary `json:"user"`
	Files       []PostFile  `json:"files"`
	Categories  []Tag       `json:"categories"`
	Collections []Tag       `json:"collections"`
	Communities []Tag       `json:"communities"`
}
