package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"postwall/internal/domain"
)

// GormStore implements Store using GORM + Postgres. Visibility filtering is
// pushed into SQL as NOT EXISTS sub-predicates so that LIMIT/OFFSET always
// apply to the already-filtered ID set.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB, registers the join-table models and runs
// auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := setupJoinTables(db); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&PostModel{},
		&PostFileModel{},
		&CategoryModel{},
		&CollectionModel{},
		&CommunityModel{},
		&TopicModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an existing GORM handle without migrating.
func NewGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if err := setupJoinTables(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func setupJoinTables(db *gorm.DB) error {
	joins := []struct {
		model any
		field string
		join  any
	}{
		{&PostModel{}, "Categories", &PostCategoryModel{}},
		{&PostModel{}, "Collections", &PostCollectionModel{}},
		{&PostModel{}, "Communities", &PostCommunityModel{}},
		{&TopicModel{}, "Categories", &TopicCategoryModel{}},
		{&TopicModel{}, "Collections", &TopicCollectionModel{}},
		{&TopicModel{}, "Communities", &TopicCommunityModel{}},
	}
	for _, j := range joins {
		if err := db.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return fmt.Errorf("setup join table %s: %w", j.field, err)
		}
	}
	return nil
}

// --- users ---

func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	model := UserModel{Name: u.Name, Email: u.Email}
	if model.Name == "" {
		model.Name = "User"
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return userFromModel(model), nil
}

func (s *GormStore) GetUser(id uint) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) UpdateUser(id uint, upd UserUpdate) (domain.User, error) {
	values := map[string]any{}
	if upd.Name != nil {
		values["name"] = *upd.Name
	}
	if upd.Email != nil {
		values["email"] = *upd.Email
	}
	if len(values) > 0 {
		if err := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return domain.User{}, fmt.Errorf("update user: %w", err)
		}
	}
	user, ok, err := s.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

// DeleteUser removes the user; posts, tags, files and join rows go with it
// through the database cascade rules.
func (s *GormStore) DeleteUser(id uint) error {
	return s.db.Delete(&UserModel{}, id).Error
}

// --- posts ---

func (s *GormStore) CreatePost(p domain.Post) (domain.Post, error) {
	model := PostModel{
		Content:   p.Content,
		IsPublic:  p.IsPublic,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	return postFromModel(model), nil
}

func (s *GormStore) GetPost(id uint) (domain.PostDetail, bool, error) {
	var model PostModel
	err := s.db.
		Preload("User").
		Preload("Files").
		Preload("Categories").
		Preload("Collections").
		Preload("Communities").
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PostDetail{}, false, nil
		}
		return domain.PostDetail{}, false, err
	}
	return detailFromModel(model), true, nil
}

// UpdatePost applies the patch and refreshes updated_at unconditionally.
func (s *GormStore) UpdatePost(id uint, upd PostUpdate) (domain.PostDetail, error) {
	values := map[string]any{"updated_at": time.Now().UTC()}
	if upd.Content != nil {
		values["content"] = *upd.Content
	}
	if upd.IsPublic != nil {
		values["is_public"] = *upd.IsPublic
	}
	if err := s.db.Model(&PostModel{}).Where("id = ?", id).Updates(values).Error; err != nil {
		return domain.PostDetail{}, fmt.Errorf("update post: %w", err)
	}
	detail, ok, err := s.GetPost(id)
	if err != nil {
		return domain.PostDetail{}, err
	}
	if !ok {
		return domain.PostDetail{}, gorm.ErrRecordNotFound
	}
	return detail, nil
}

func (s *GormStore) DeletePost(id uint) error {
	return s.db.Delete(&PostModel{}, id).Error
}

// --- query engine primitives ---

// withVisibility narrows q to posts an unprivileged caller may see: the
// post's own flag plus one NOT EXISTS sub-predicate per tag kind.
func withVisibility(q *gorm.DB) *gorm.DB {
	q = q.Where("posts.is_public = ?", true)
	for _, kind := range domain.Kinds {
		joinTable, fk := postJoin(kind)
		q = q.Where(fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM %s j JOIN %s t ON t.id = j.%s WHERE j.post_id = posts.id AND t.is_public = FALSE)",
			joinTable, tagTable(kind), fk,
		))
	}
	return q
}

func (s *GormStore) SelectPostIDs(f PostFilter) ([]uint, error) {
	if f.PostIDs != nil && len(f.PostIDs) == 0 {
		return nil, nil
	}
	q := s.db.Model(&PostModel{})
	if f.TagKind != "" {
		joinTable, fk := postJoin(f.TagKind)
		q = q.Joins(fmt.Sprintf("JOIN %s rel ON rel.post_id = posts.id", joinTable)).
			Where(fmt.Sprintf("rel.%s = ?", fk), f.TagID)
	}
	if f.Day != nil {
		dayStart := f.Day.UTC().Truncate(24 * time.Hour)
		q = q.Where("posts.created_at >= ? AND posts.created_at < ?", dayStart, dayStart.Add(24*time.Hour))
	}
	if f.PostIDs != nil {
		q = q.Where("posts.id IN ?", f.PostIDs)
	}
	if !f.IncludeHidden {
		q = withVisibility(q)
	}
	// id DESC breaks created_at ties so consecutive offsets never overlap.
	q = q.Order("posts.created_at DESC, posts.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var ids []uint
	if err := q.Pluck("posts.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("select post ids: %w", err)
	}
	return ids, nil
}

func (s *GormStore) PostsByIDs(ids []uint) ([]domain.PostDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []PostModel
	err := s.db.
		Preload("User").
		Preload("Files").
		Preload("Categories").
		Preload("Collections").
		Preload("Communities").
		Where("posts.id IN ?", ids).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}
	details := make([]domain.PostDetail, 0, len(models))
	for _, m := range models {
		details = append(details, detailFromModel(m))
	}
	return details, nil
}

// CalendarDates returns creation timestamps only, under the same visibility
// rule as the paginated queries.
func (s *GormStore) CalendarDates(includeHidden bool) ([]time.Time, error) {
	q := s.db.Model(&PostModel{})
	if !includeHidden {
		q = withVisibility(q)
	}
	var dates []time.Time
	if err := q.Order("posts.created_at DESC").Pluck("posts.created_at", &dates).Error; err != nil {
		return nil, fmt.Errorf("calendar dates: %w", err)
	}
	return dates, nil
}

// --- post file metadata ---

func (s *GormStore) AddPostFiles(files []domain.PostFile) ([]domain.PostFile, error) {
	if len(files) == 0 {
		return nil, nil
	}
	models := make([]PostFileModel, 0, len(files))
	for _, f := range files {
		models = append(models, PostFileModel{
			PostID:     f.PostID,
			FilePath:   f.FilePath,
			Bucket:     f.Bucket,
			MimeType:   f.MimeType,
			Size:       f.Size,
			UploadedAt: f.UploadedAt,
		})
	}
	if err := s.db.Create(&models).Error; err != nil {
		return nil, fmt.Errorf("insert post files: %w", err)
	}
	out := make([]domain.PostFile, 0, len(models))
	for _, m := range models {
		out = append(out, fileFromModel(m))
	}
	return out, nil
}

func (s *GormStore) GetPostFile(id uint) (domain.PostFile, bool, error) {
	var model PostFileModel
	if err := s.db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PostFile{}, false, nil
		}
		return domain.PostFile{}, false, err
	}
	return fileFromModel(model), true, nil
}

func (s *GormStore) ListPostFiles(postID uint) ([]domain.PostFile, error) {
	var models []PostFileModel
	if err := s.db.Where("post_id = ?", postID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PostFile, 0, len(models))
	for _, m := range models {
		out = append(out, fileFromModel(m))
	}
	return out, nil
}

func (s *GormStore) ListPostFilesByIDs(ids []uint) ([]domain.PostFile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []PostFileModel
	if err := s.db.Where("id IN ?", ids).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PostFile, 0, len(models))
	for _, m := range models {
		out = append(out, fileFromModel(m))
	}
	return out, nil
}

func (s *GormStore) DeletePostFile(id uint) error {
	return s.db.Delete(&PostFileModel{}, id).Error
}

func (s *GormStore) DeletePostFilesByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Where("id IN ?", ids).Delete(&PostFileModel{}).Error
}

func (s *GormStore) DeletePostFilesByPost(postID uint) error {
	return s.db.Where("post_id = ?", postID).Delete(&PostFileModel{}).Error
}
