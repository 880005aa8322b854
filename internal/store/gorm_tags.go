package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"postwall/internal/domain"
)

// Tag operations cover the three structurally identical container tables.
// Each method switches on kind once and delegates to the typed model, so
// the SQL keeps precise table names and constraints per kind.

func (s *GormStore) CreateTag(kind domain.TagKind, t domain.Tag) (domain.Tag, error) {
	switch kind {
	case domain.KindCategory:
		m := CategoryModel{Name: t.Name, Slug: t.Slug, IsPublic: t.IsPublic, UserID: t.UserID}
		if err := s.db.Create(&m).Error; err != nil {
			return domain.Tag{}, fmt.Errorf("create category: %w", err)
		}
		return categoryFromModel(m), nil
	case domain.KindCollection:
		m := CollectionModel{Name: t.Name, Slug: t.Slug, IsPublic: t.IsPublic, UserID: t.UserID}
		if err := s.db.Create(&m).Error; err != nil {
			return domain.Tag{}, fmt.Errorf("create collection: %w", err)
		}
		return collectionFromModel(m), nil
	default:
		m := CommunityModel{Name: t.Name, Slug: t.Slug, IsPublic: t.IsPublic, UserID: t.UserID}
		if err := s.db.Create(&m).Error; err != nil {
			return domain.Tag{}, fmt.Errorf("create community: %w", err)
		}
		return communityFromModel(m), nil
	}
}

func (s *GormStore) GetTag(kind domain.TagKind, id uint) (domain.Tag, bool, error) {
	var (
		tag domain.Tag
		err error
	)
	switch kind {
	case domain.KindCategory:
		var m CategoryModel
		if err = s.db.First(&m, id).Error; err == nil {
			tag = categoryFromModel(m)
		}
	case domain.KindCollection:
		var m CollectionModel
		if err = s.db.First(&m, id).Error; err == nil {
			tag = collectionFromModel(m)
		}
	default:
		var m CommunityModel
		if err = s.db.First(&m, id).Error; err == nil {
			tag = communityFromModel(m)
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Tag{}, false, nil
		}
		return domain.Tag{}, false, err
	}
	return tag, true, nil
}

func (s *GormStore) ListTags(kind domain.TagKind, onlyPublic bool) ([]domain.Tag, error) {
	q := s.db
	if onlyPublic {
		q = q.Where("is_public = ?", true)
	}
	return s.findTags(kind, q.Order("id ASC"))
}

func (s *GormStore) ListTagsByOwner(kind domain.TagKind, userID uint) ([]domain.Tag, error) {
	return s.findTags(kind, s.db.Where("user_id = ?", userID).Order("id ASC"))
}

func (s *GormStore) findTags(kind domain.TagKind, q *gorm.DB) ([]domain.Tag, error) {
	var tags []domain.Tag
	switch kind {
	case domain.KindCategory:
		var models []CategoryModel
		if err := q.Find(&models).Error; err != nil {
			return nil, err
		}
		for _, m := range models {
			tags = append(tags, categoryFromModel(m))
		}
	case domain.KindCollection:
		var models []CollectionModel
		if err := q.Find(&models).Error; err != nil {
			return nil, err
		}
		for _, m := range models {
			tags = append(tags, collectionFromModel(m))
		}
	default:
		var models []CommunityModel
		if err := q.Find(&models).Error; err != nil {
			return nil, err
		}
		for _, m := range models {
			tags = append(tags, communityFromModel(m))
		}
	}
	return tags, nil
}

func (s *GormStore) UpdateTag(kind domain.TagKind, id uint, upd TagUpdate) (domain.Tag, error) {
	values := map[string]any{}
	if upd.Name != nil {
		values["name"] = *upd.Name
	}
	if upd.Slug != nil {
		values["slug"] = *upd.Slug
	}
	if upd.IsPublic != nil {
		values["is_public"] = *upd.IsPublic
	}
	if len(values) > 0 {
		if err := s.db.Table(tagTable(kind)).Where("id = ?", id).Updates(values).Error; err != nil {
			return domain.Tag{}, fmt.Errorf("update %s: %w", kind, err)
		}
	}
	tag, ok, err := s.GetTag(kind, id)
	if err != nil {
		return domain.Tag{}, err
	}
	if !ok {
		return domain.Tag{}, gorm.ErrRecordNotFound
	}
	return tag, nil
}

func (s *GormStore) DeleteTag(kind domain.TagKind, id uint) error {
	switch kind {
	case domain.KindCategory:
		return s.db.Delete(&CategoryModel{}, id).Error
	case domain.KindCollection:
		return s.db.Delete(&CollectionModel{}, id).Error
	default:
		return s.db.Delete(&CommunityModel{}, id).Error
	}
}

// --- post-tag relations ---

// AssignTag inserts one join row. Assigning an already-assigned pair
// violates the composite primary key and surfaces as a rejected write.
func (s *GormStore) AssignTag(kind domain.TagKind, postID, tagID uint) error {
	return s.createJoinRow(s.db, kind, postID, tagID)
}

func (s *GormStore) createJoinRow(tx *gorm.DB, kind domain.TagKind, postID, tagID uint) error {
	switch kind {
	case domain.KindCategory:
		return tx.Create(&PostCategoryModel{PostID: postID, CategoryID: tagID}).Error
	case domain.KindCollection:
		return tx.Create(&PostCollectionModel{PostID: postID, CollectionID: tagID}).Error
	default:
		return tx.Create(&PostCommunityModel{PostID: postID, CommunityID: tagID}).Error
	}
}

// ClearPostTags removes every join row of one kind for the post, not a
// single pair: removal is per-relation-type-wide.
func (s *GormStore) ClearPostTags(kind domain.TagKind, postID uint) error {
	return s.clearJoinRows(s.db, kind, postID)
}

func (s *GormStore) clearJoinRows(tx *gorm.DB, kind domain.TagKind, postID uint) error {
	switch kind {
	case domain.KindCategory:
		return tx.Where("post_id = ?", postID).Delete(&PostCategoryModel{}).Error
	case domain.KindCollection:
		return tx.Where("post_id = ?", postID).Delete(&PostCollectionModel{}).Error
	default:
		return tx.Where("post_id = ?", postID).Delete(&PostCommunityModel{}).Error
	}
}

// ReassignTag clears all rows of the kind and assigns one, atomically, so
// a post holds at most one tag of each kind afterwards.
func (s *GormStore) ReassignTag(kind domain.TagKind, postID, tagID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.clearJoinRows(tx, kind, postID); err != nil {
			return err
		}
		return s.createJoinRow(tx, kind, postID, tagID)
	})
}

// --- topics ---

func (s *GormStore) CreateTopic(t domain.Topic) (domain.Topic, error) {
	model := TopicModel{Name: t.Name, Slug: t.Slug, IsPublic: t.IsPublic}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Topic{}, fmt.Errorf("create topic: %w", err)
	}
	return topicFromModel(model), nil
}

func (s *GormStore) GetTopic(id uint) (domain.Topic, bool, error) {
	var model TopicModel
	if err := s.db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Topic{}, false, nil
		}
		return domain.Topic{}, false, err
	}
	return topicFromModel(model), true, nil
}

func (s *GormStore) GetTopicBySlug(slug string) (domain.Topic, bool, error) {
	var model TopicModel
	if err := s.db.Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Topic{}, false, nil
		}
		return domain.Topic{}, false, err
	}
	return topicFromModel(model), true, nil
}

func (s *GormStore) ListTopics(onlyPublic bool) ([]domain.Topic, error) {
	q := s.db
	if onlyPublic {
		q = q.Where("is_public = ?", true)
	}
	var models []TopicModel
	if err := q.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	topics := make([]domain.Topic, 0, len(models))
	for _, m := range models {
		topics = append(topics, topicFromModel(m))
	}
	return topics, nil
}

func (s *GormStore) UpdateTopic(id uint, upd TopicUpdate) (domain.Topic, error) {
	values := map[string]any{}
	if upd.Name != nil {
		values["name"] = *upd.Name
	}
	if upd.Slug != nil {
		values["slug"] = *upd.Slug
	}
	if upd.IsPublic != nil {
		values["is_public"] = *upd.IsPublic
	}
	if len(values) > 0 {
		if err := s.db.Model(&TopicModel{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return domain.Topic{}, fmt.Errorf("update topic: %w", err)
		}
	}
	topic, ok, err := s.GetTopic(id)
	if err != nil {
		return domain.Topic{}, err
	}
	if !ok {
		return domain.Topic{}, gorm.ErrRecordNotFound
	}
	return topic, nil
}

func (s *GormStore) DeleteTopic(id uint) error {
	return s.db.Delete(&TopicModel{}, id).Error
}

// TopicLinks returns the topic's linked tags flattened per kind.
func (s *GormStore) TopicLinks(topicID uint) (domain.TopicRelations, error) {
	var rel domain.TopicRelations

	var categories []CategoryModel
	err := s.db.
		Joins("JOIN topic_categories tc ON tc.category_id = categories.id").
		Where("tc.topic_id = ?", topicID).
		Find(&categories).Error
	if err != nil {
		return rel, fmt.Errorf("topic categories: %w", err)
	}
	for _, m := range categories {
		rel.Categories = append(rel.Categories, categoryFromModel(m))
	}

	var collections []CollectionModel
	err = s.db.
		Joins("JOIN topic_collections tl ON tl.collection_id = collections.id").
		Where("tl.topic_id = ?", topicID).
		Find(&collections).Error
	if err != nil {
		return rel, fmt.Errorf("topic collections: %w", err)
	}
	for _, m := range collections {
		rel.Collections = append(rel.Collections, collectionFromModel(m))
	}

	var communities []CommunityModel
	err = s.db.
		Joins("JOIN topic_communities tm ON tm.community_id = communities.id").
		Where("tm.topic_id = ?", topicID).
		Find(&communities).Error
	if err != nil {
		return rel, fmt.Errorf("topic communities: %w", err)
	}
	for _, m := range communities {
		rel.Communities = append(rel.Communities, communityFromModel(m))
	}

	return rel, nil
}

// ReplaceTopicLinks swaps the topic's whole link set in one transaction:
// delete everything, then bulk-insert the new rows partitioned by kind. An
// empty link list simply clears the topic.
func (s *GormStore) ReplaceTopicLinks(topicID uint, links []domain.TopicLink) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_id = ?", topicID).Delete(&TopicCategoryModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_id = ?", topicID).Delete(&TopicCollectionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_id = ?", topicID).Delete(&TopicCommunityModel{}).Error; err != nil {
			return err
		}

		var (
			categories  []TopicCategoryModel
			collections []TopicCollectionModel
			communities []TopicCommunityModel
		)
		for _, link := range links {
			switch link.Kind {
			case domain.KindCategory:
				categories = append(categories, TopicCategoryModel{TopicID: topicID, CategoryID: link.ID})
			case domain.KindCollection:
				collections = append(collections, TopicCollectionModel{TopicID: topicID, CollectionID: link.ID})
			case domain.KindCommunity:
				communities = append(communities, TopicCommunityModel{TopicID: topicID, CommunityID: link.ID})
			}
		}
		if len(categories) > 0 {
			if err := tx.Create(&categories).Error; err != nil {
				return err
			}
		}
		if len(collections) > 0 {
			if err := tx.Create(&collections).Error; err != nil {
				return err
			}
		}
		if len(communities) > 0 {
			if err := tx.Create(&communities).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TopicPostIDs unions the post IDs reachable through any of the topic's
// three link paths; UNION deduplicates posts reachable more than one way.
func (s *GormStore) TopicPostIDs(topicID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Raw(`
		SELECT pc.post_id FROM post_categories pc
		JOIN topic_categories tc ON tc.category_id = pc.category_id AND tc.topic_id = ?
		UNION
		SELECT pl.post_id FROM post_collections pl
		JOIN topic_collections tl ON tl.collection_id = pl.collection_id AND tl.topic_id = ?
		UNION
		SELECT pm.post_id FROM post_communities pm
		JOIN topic_communities tm ON tm.community_id = pm.community_id AND tm.topic_id = ?`,
		topicID, topicID, topicID,
	).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("topic post ids: %w", err)
	}
	return ids, nil
}

var _ Store = (*GormStore)(nil)
