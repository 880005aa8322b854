package store

import (
	"time"

	"postwall/internal/domain"
)

// GORM models used for persistence. Join tables carry composite primary
// keys and cascade from both sides so that deleting a user, post or tag
// never leaves dangling rows.

type UserModel struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"not null;default:User"`
	Email string `gorm:"uniqueIndex;not null"`
}

func (UserModel) TableName() string { return "users" }

type PostModel struct {
	ID        uint      `gorm:"primaryKey"`
	Content   string    `gorm:"not null"`
	IsPublic  bool      `gorm:"not null;default:true"`
	UserID    uint      `gorm:"not null;index"`
	User      UserModel `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`

	Files       []PostFileModel   `gorm:"foreignKey:PostID"`
	Categories  []CategoryModel   `gorm:"many2many:post_categories;joinForeignKey:PostID;joinReferences:CategoryID;constraint:OnDelete:CASCADE"`
	Collections []CollectionModel `gorm:"many2many:post_collections;joinForeignKey:PostID;joinReferences:CollectionID;constraint:OnDelete:CASCADE"`
	Communities []CommunityModel  `gorm:"many2many:post_communities;joinForeignKey:PostID;joinReferences:CommunityID;constraint:OnDelete:CASCADE"`
}

func (PostModel) TableName() string { return "posts" }

type PostFileModel struct {
	ID         uint      `gorm:"primaryKey"`
	PostID     uint      `gorm:"not null;index"`
	Post       PostModel `gorm:"constraint:OnDelete:CASCADE"`
	FilePath   string    `gorm:"not null"`
	Bucket     string    `gorm:"not null"`
	MimeType   string    `gorm:"not null"`
	Size       int64     `gorm:"not null"`
	UploadedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (PostFileModel) TableName() string { return "post_files" }

type CategoryModel struct {
	ID       uint      `gorm:"primaryKey"`
	Name     string    `gorm:"not null"`
	Slug     string    `gorm:"uniqueIndex;not null"`
	IsPublic bool      `gorm:"not null;default:false"`
	UserID   uint      `gorm:"not null;index"`
	User     UserModel `gorm:"constraint:OnDelete:CASCADE"`
}

func (CategoryModel) TableName() string { return "categories" }

type CollectionModel struct {
	ID       uint      `gorm:"primaryKey"`
	Name     string    `gorm:"not null"`
	Slug     string    `gorm:"not null"`
	IsPublic bool      `gorm:"not null;default:false"`
	UserID   uint      `gorm:"not null;index"`
	User     UserModel `gorm:"constraint:OnDelete:CASCADE"`
}

func (CollectionModel) TableName() string { return "collections" }

type CommunityModel struct {
	ID       uint      `gorm:"primaryKey"`
	Name     string    `gorm:"not null"`
	Slug     string    `gorm:"not null"`
	IsPublic bool      `gorm:"not null;default:false"`
	UserID   uint      `gorm:"not null;index"`
	User     UserModel `gorm:"constraint:OnDelete:CASCADE"`
}

func (CommunityModel) TableName() string { return "communities" }

type TopicModel struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	Slug      string    `gorm:"uniqueIndex;not null"`
	IsPublic  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Categories  []CategoryModel   `gorm:"many2many:topic_categories;joinForeignKey:TopicID;joinReferences:CategoryID;constraint:OnDelete:CASCADE"`
	Collections []CollectionModel `gorm:"many2many:topic_collections;joinForeignKey:TopicID;joinReferences:CollectionID;constraint:OnDelete:CASCADE"`
	Communities []CommunityModel  `gorm:"many2many:topic_communities;joinForeignKey:TopicID;joinReferences:CommunityID;constraint:OnDelete:CASCADE"`
}

func (TopicModel) TableName() string { return "topics" }

// Join models give the many2many tables composite primary keys.

type PostCategoryModel struct {
	PostID     uint `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (PostCategoryModel) TableName() string { return "post_categories" }

type PostCollectionModel struct {
	PostID       uint `gorm:"primaryKey;autoIncrement:false"`
	CollectionID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (PostCollectionModel) TableName() string { return "post_collections" }

type PostCommunityModel struct {
	PostID      uint `gorm:"primaryKey;autoIncrement:false"`
	CommunityID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (PostCommunityModel) TableName() string { return "post_communities" }

type TopicCategoryModel struct {
	TopicID    uint `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (TopicCategoryModel) TableName() string { return "topic_categories" }

type TopicCollectionModel struct {
	TopicID      uint `gorm:"primaryKey;autoIncrement:false"`
	CollectionID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (TopicCollectionModel) TableName() string { return "topic_collections" }

type TopicCommunityModel struct {
	TopicID     uint `gorm:"primaryKey;autoIncrement:false"`
	CommunityID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (TopicCommunityModel) TableName() string { return "topic_communities" }

// tagTable maps a kind to its entity table.
func tagTable(kind domain.TagKind) string {
	switch kind {
	case domain.KindCategory:
		return "categories"
	case domain.KindCollection:
		return "collections"
	default:
		return "communities"
	}
}

// postJoin maps a kind to its post join table and tag FK column.
func postJoin(kind domain.TagKind) (table, fkColumn string) {
	switch kind {
	case domain.KindCategory:
		return "post_categories", "category_id"
	case domain.KindCollection:
		return "post_collections", "collection_id"
	default:
		return "post_communities", "community_id"
	}
}

// topicJoin maps a kind to its topic join table and tag FK column.
func topicJoin(kind domain.TagKind) (table, fkColumn string) {
	switch kind {
	case domain.KindCategory:
		return "topic_categories", "category_id"
	case domain.KindCollection:
		return "topic_collections", "collection_id"
	default:
		return "topic_communities", "community_id"
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{ID: m.ID, Name: m.Name, Email: m.Email}
}

func postFromModel(m PostModel) domain.Post {
	return domain.Post{
		ID:        m.ID,
		Content:   m.Content,
		IsPublic:  m.IsPublic,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fileFromModel(m PostFileModel) domain.PostFile {
	return domain.PostFile{
		ID:         m.ID,
		PostID:     m.PostID,
		FilePath:   m.FilePath,
		Bucket:     m.Bucket,
		MimeType:   m.MimeType,
		Size:       m.Size,
		UploadedAt: m.UploadedAt,
	}
}

func categoryFromModel(m CategoryModel) domain.Tag {
	return domain.Tag{ID: m.ID, Name: m.Name, Slug: m.Slug, IsPublic: m.IsPublic, UserID: m.UserID}
}

func collectionFromModel(m CollectionModel) domain.Tag {
	return domain.Tag{ID: m.ID, Name: m.Name, Slug: m.Slug, IsPublic: m.IsPublic, UserID: m.UserID}
}

func communityFromModel(m CommunityModel) domain.Tag {
	return domain.Tag{ID: m.ID, Name: m.Name, Slug: m.Slug, IsPublic: m.IsPublic, UserID: m.UserID}
}

func topicFromModel(m TopicModel) domain.Topic {
	return domain.Topic{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		IsPublic:  m.IsPublic,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func detailFromModel(m PostModel) domain.PostDetail {
	detail := domain.PostDetail{
		Post:        postFromModel(m),
		User:        domain.UserSummary{ID: m.User.ID, Name: m.User.Name},
		Files:       make([]domain.PostFile, 0, len(m.Files)),
		Categories:  make([]domain.Tag, 0, len(m.Categories)),
		Collections: make([]domain.Tag, 0, len(m.Collections)),
		Communities: make([]domain.Tag, 0, len(m.Communities)),
	}
	for _, f := range m.Files {
		detail.Files = append(detail.Files, fileFromModel(f))
	}
	for _, c := range m.Categories {
		detail.Categories = append(detail.Categories, categoryFromModel(c))
	}
	for _, c := range m.Collections {
		detail.Collections = append(detail.Collections, collectionFromModel(c))
	}
	for _, c := range m.Communities {
		detail.Communities = append(detail.Communities, communityFromModel(c))
	}
	return detail
}
