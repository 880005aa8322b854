package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"postwall/internal/domain"
	"postwall/internal/visibility"
)

// MemoryStore is an in-memory Store used by tests and local development. It
// reproduces the relational behavior of GormStore, including cascading
// deletes and the visibility predicate, without a database.
type MemoryStore struct {
	mu sync.Mutex

	users  map[uint]domain.User
	posts  map[uint]domain.Post
	files  map[uint]domain.PostFile
	tags   map[domain.TagKind]map[uint]domain.Tag
	topics map[uint]domain.Topic

	// postID -> set of tag IDs, per kind
	postTags map[domain.TagKind]map[uint]map[uint]bool
	// topicID -> set of tag IDs, per kind
	topicTags map[domain.TagKind]map[uint]map[uint]bool

	nextUser  uint
	nextPost  uint
	nextFile  uint
	nextTopic uint
	nextTag   map[domain.TagKind]uint
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		users:     make(map[uint]domain.User),
		posts:     make(map[uint]domain.Post),
		files:     make(map[uint]domain.PostFile),
		tags:      make(map[domain.TagKind]map[uint]domain.Tag),
		topics:    make(map[uint]domain.Topic),
		postTags:  make(map[domain.TagKind]map[uint]map[uint]bool),
		topicTags: make(map[domain.TagKind]map[uint]map[uint]bool),
		nextTag:   make(map[domain.TagKind]uint),
	}
	for _, kind := range domain.Kinds {
		s.tags[kind] = make(map[uint]domain.Tag)
		s.postTags[kind] = make(map[uint]map[uint]bool)
		s.topicTags[kind] = make(map[uint]map[uint]bool)
	}
	return s
}

// --- users ---

func (s *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.User{}, gorm.ErrDuplicatedKey
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	if u.Name == "" {
		u.Name = "User"
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUser(id uint) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) UpdateUser(id uint, upd UserUpdate) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, gorm.ErrRecordNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	s.users[id] = u
	return u, nil
}

func (s *MemoryStore) DeleteUser(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	for postID, p := range s.posts {
		if p.UserID == id {
			s.deletePostLocked(postID)
		}
	}
	for _, kind := range domain.Kinds {
		for tagID, t := range s.tags[kind] {
			if t.UserID == id {
				s.deleteTagLocked(kind, tagID)
			}
		}
	}
	return nil
}

// --- posts ---

func (s *MemoryStore) CreatePost(p domain.Post) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; !ok {
		return domain.Post{}, gorm.ErrForeignKeyViolated
	}
	s.nextPost++
	p.ID = s.nextPost
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.posts[p.ID] = p
	return p, nil
}

func (s *MemoryStore) GetPost(id uint) (domain.PostDetail, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.PostDetail{}, false, nil
	}
	return s.detailLocked(p), true, nil
}

func (s *MemoryStore) UpdatePost(id uint, upd PostUpdate) (domain.PostDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.PostDetail{}, gorm.ErrRecordNotFound
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.IsPublic != nil {
		p.IsPublic = *upd.IsPublic
	}
	p.UpdatedAt = time.Now().UTC()
	s.posts[id] = p
	return s.detailLocked(p), nil
}

func (s *MemoryStore) DeletePost(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletePostLocked(id)
	return nil
}

func (s *MemoryStore) deletePostLocked(id uint) {
	delete(s.posts, id)
	for fileID, f := range s.files {
		if f.PostID == id {
			delete(s.files, fileID)
		}
	}
	for _, kind := range domain.Kinds {
		delete(s.postTags[kind], id)
	}
}

func (s *MemoryStore) detailLocked(p domain.Post) domain.PostDetail {
	d := domain.PostDetail{Post: p}
	if u, ok := s.users[p.UserID]; ok {
		d.User = domain.UserSummary{ID: u.ID, Name: u.Name}
	}
	for _, f := range s.files {
		if f.PostID == p.ID {
			d.Files = append(d.Files, f)
		}
	}
	sort.Slice(d.Files, func(i, j int) bool { return d.Files[i].ID < d.Files[j].ID })
	d.Categories = s.linkedTagsLocked(domain.KindCategory, s.postTags[domain.KindCategory][p.ID])
	d.Collections = s.linkedTagsLocked(domain.KindCollection, s.postTags[domain.KindCollection][p.ID])
	d.Communities = s.linkedTagsLocked(domain.KindCommunity, s.postTags[domain.KindCommunity][p.ID])
	return d
}

func (s *MemoryStore) linkedTagsLocked(kind domain.TagKind, ids map[uint]bool) []domain.Tag {
	var tags []domain.Tag
	for id := range ids {
		if t, ok := s.tags[kind][id]; ok {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}

// --- query engine primitives ---

func (s *MemoryStore) visibleLocked(p domain.Post) bool {
	flags := make(map[domain.TagKind][]bool)
	for _, kind := range domain.Kinds {
		for tagID := range s.postTags[kind][p.ID] {
			if t, ok := s.tags[kind][tagID]; ok {
				flags[kind] = append(flags[kind], t.IsPublic)
			}
		}
	}
	return visibility.Visible(p.IsPublic,
		flags[domain.KindCategory], flags[domain.KindCollection], flags[domain.KindCommunity])
}

func (s *MemoryStore) SelectPostIDs(f PostFilter) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.PostIDs != nil && len(f.PostIDs) == 0 {
		return nil, nil
	}
	var allowed map[uint]bool
	if f.PostIDs != nil {
		allowed = make(map[uint]bool, len(f.PostIDs))
		for _, id := range f.PostIDs {
			allowed[id] = true
		}
	}

	var matched []domain.Post
	for _, p := range s.posts {
		if allowed != nil && !allowed[p.ID] {
			continue
		}
		if f.TagKind != "" && !s.postTags[f.TagKind][p.ID][f.TagID] {
			continue
		}
		if f.Day != nil {
			dayStart := f.Day.UTC().Truncate(24 * time.Hour)
			created := p.CreatedAt.UTC()
			if created.Before(dayStart) || !created.Before(dayStart.Add(24*time.Hour)) {
				continue
			}
		}
		if !f.IncludeHidden && !s.visibleLocked(p) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	ids := make([]uint, 0, len(matched))
	for _, p := range matched {
		ids = append(ids, p.ID)
	}
	if f.Offset > 0 {
		if f.Offset >= len(ids) {
			return nil, nil
		}
		ids = ids[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(ids) {
		ids = ids[:f.Limit]
	}
	return ids, nil
}

func (s *MemoryStore) PostsByIDs(ids []uint) ([]domain.PostDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var details []domain.PostDetail
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			details = append(details, s.detailLocked(p))
		}
	}
	sort.Slice(details, func(i, j int) bool {
		if !details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return details[i].ID > details[j].ID
	})
	return details, nil
}

func (s *MemoryStore) CalendarDates(includeHidden bool) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dates []time.Time
	for _, p := range s.posts {
		if !includeHidden && !s.visibleLocked(p) {
			continue
		}
		dates = append(dates, p.CreatedAt)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

// --- tags ---

func (s *MemoryStore) CreateTag(kind domain.TagKind, t domain.Tag) (domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == domain.KindCategory {
		for _, existing := range s.tags[kind] {
			if existing.Slug == t.Slug {
				return domain.Tag{}, gorm.ErrDuplicatedKey
			}
		}
	}
	s.nextTag[kind]++
	t.ID = s.nextTag[kind]
	s.tags[kind][t.ID] = t
	return t, nil
}

func (s *MemoryStore) GetTag(kind domain.TagKind, id uint) (domain.Tag, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[kind][id]
	return t, ok, nil
}

func (s *MemoryStore) ListTags(kind domain.TagKind, onlyPublic bool) ([]domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tags []domain.Tag
	for _, t := range s.tags[kind] {
		if onlyPublic && !t.IsPublic {
			continue
		}
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}

func (s *MemoryStore) ListTagsByOwner(kind domain.TagKind, userID uint) ([]domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tags []domain.Tag
	for _, t := range s.tags[kind] {
		if t.UserID == userID {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}

func (s *MemoryStore) UpdateTag(kind domain.TagKind, id uint, upd TagUpdate) (domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[kind][id]
	if !ok {
		return domain.Tag{}, gorm.ErrRecordNotFound
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Slug != nil {
		t.Slug = *upd.Slug
	}
	if upd.IsPublic != nil {
		t.IsPublic = *upd.IsPublic
	}
	s.tags[kind][id] = t
	return t, nil
}

func (s *MemoryStore) DeleteTag(kind domain.TagKind, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteTagLocked(kind, id)
	return nil
}

func (s *MemoryStore) deleteTagLocked(kind domain.TagKind, id uint) {
	delete(s.tags[kind], id)
	for _, set := range s.postTags[kind] {
		delete(set, id)
	}
	for _, set := range s.topicTags[kind] {
		delete(set, id)
	}
}

// --- post-tag relations ---

func (s *MemoryStore) AssignTag(kind domain.TagKind, postID, tagID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if _, ok := s.tags[kind][tagID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	set := s.postTags[kind][postID]
	if set == nil {
		set = make(map[uint]bool)
		s.postTags[kind][postID] = set
	}
	if set[tagID] {
		return gorm.ErrDuplicatedKey
	}
	set[tagID] = true
	return nil
}

func (s *MemoryStore) ClearPostTags(kind domain.TagKind, postID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.postTags[kind], postID)
	return nil
}

func (s *MemoryStore) ReassignTag(kind domain.TagKind, postID, tagID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if _, ok := s.tags[kind][tagID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	s.postTags[kind][postID] = map[uint]bool{tagID: true}
	return nil
}

// --- topics ---

func (s *MemoryStore) CreateTopic(t domain.Topic) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.topics {
		if existing.Name == t.Name || existing.Slug == t.Slug {
			return domain.Topic{}, gorm.ErrDuplicatedKey
		}
	}
	s.nextTopic++
	t.ID = s.nextTopic
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.topics[t.ID] = t
	return t, nil
}

func (s *MemoryStore) GetTopic(id uint) (domain.Topic, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[id]
	return t, ok, nil
}

func (s *MemoryStore) GetTopicBySlug(slug string) (domain.Topic, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.topics {
		if t.Slug == slug {
			return t, true, nil
		}
	}
	return domain.Topic{}, false, nil
}

func (s *MemoryStore) ListTopics(onlyPublic bool) ([]domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var topics []domain.Topic
	for _, t := range s.topics {
		if onlyPublic && !t.IsPublic {
			continue
		}
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (s *MemoryStore) UpdateTopic(id uint, upd TopicUpdate) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[id]
	if !ok {
		return domain.Topic{}, gorm.ErrRecordNotFound
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Slug != nil {
		t.Slug = *upd.Slug
	}
	if upd.IsPublic != nil {
		t.IsPublic = *upd.IsPublic
	}
	t.UpdatedAt = time.Now().UTC()
	s.topics[id] = t
	return t, nil
}

func (s *MemoryStore) DeleteTopic(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, id)
	for _, kind := range domain.Kinds {
		delete(s.topicTags[kind], id)
	}
	return nil
}

func (s *MemoryStore) TopicLinks(topicID uint) (domain.TopicRelations, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TopicRelations{
		Categories:  s.linkedTagsLocked(domain.KindCategory, s.topicTags[domain.KindCategory][topicID]),
		Collections: s.linkedTagsLocked(domain.KindCollection, s.topicTags[domain.KindCollection][topicID]),
		Communities: s.linkedTagsLocked(domain.KindCommunity, s.topicTags[domain.KindCommunity][topicID]),
	}, nil
}

func (s *MemoryStore) ReplaceTopicLinks(topicID uint, links []domain.TopicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[topicID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	for _, kind := range domain.Kinds {
		delete(s.topicTags[kind], topicID)
	}
	for _, link := range links {
		if !domain.ValidKind(link.Kind) {
			continue
		}
		if _, ok := s.tags[link.Kind][link.ID]; !ok {
			return gorm.ErrForeignKeyViolated
		}
		set := s.topicTags[link.Kind][topicID]
		if set == nil {
			set = make(map[uint]bool)
			s.topicTags[link.Kind][topicID] = set
		}
		set[link.ID] = true
	}
	return nil
}

func (s *MemoryStore) TopicPostIDs(topicID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uint]bool)
	for _, kind := range domain.Kinds {
		linked := s.topicTags[kind][topicID]
		for postID, tagSet := range s.postTags[kind] {
			for tagID := range tagSet {
				if linked[tagID] {
					seen[postID] = true
				}
			}
		}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// --- post file metadata ---

func (s *MemoryStore) AddPostFiles(files []domain.PostFile) ([]domain.PostFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PostFile, 0, len(files))
	for _, f := range files {
		if _, ok := s.posts[f.PostID]; !ok {
			return nil, gorm.ErrForeignKeyViolated
		}
		s.nextFile++
		f.ID = s.nextFile
		if f.UploadedAt.IsZero() {
			f.UploadedAt = time.Now().UTC()
		}
		s.files[f.ID] = f
		out = append(out, f)
	}
	return out, nil
}

func (s *MemoryStore) GetPostFile(id uint) (domain.PostFile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	return f, ok, nil
}

func (s *MemoryStore) ListPostFiles(postID uint) ([]domain.PostFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PostFile
	for _, f := range s.files {
		if f.PostID == postID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListPostFilesByIDs(ids []uint) ([]domain.PostFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PostFile
	for _, id := range ids {
		if f, ok := s.files[id]; ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeletePostFile(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
	return nil
}

func (s *MemoryStore) DeletePostFilesByIDs(ids []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.files, id)
	}
	return nil
}

func (s *MemoryStore) DeletePostFilesByPost(postID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.files {
		if f.PostID == postID {
			delete(s.files, id)
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
