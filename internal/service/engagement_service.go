package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/inkwell/internal/cache"
	"github.com/inkwell/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultToggleCooldown = time.Second
	defaultViewWindow     = 6 * time.Hour
	defaultViewRetention  = 7 * 24 * time.Hour
)

// ToggleLikeResult 描述一次点赞切换的结果。
type ToggleLikeResult struct {
	Likes       int64
	UserLiked   bool
	RateLimited bool
}

// EngagementService owns likes and deduplicated view counting for
// posts. Each identity has two independent facets on a post: a liked
// flag with unbounded lifetime and a recently-viewed window that
// expires on its own.
type EngagementService struct {
	db            *gorm.DB
	listings      *cache.ListingCache
	cooldown      time.Duration
	viewWindow    time.Duration
	viewRetention time.Duration
}

// NewEngagementService 创建 EngagementService。listings 可为 nil（测试场景）。
func NewEngagementService(gdb *gorm.DB, listings *cache.ListingCache) *EngagementService {
	return &EngagementService{
		db:            gdb,
		listings:      listings,
		cooldown:      defaultToggleCooldown,
		viewWindow:    defaultViewWindow,
		viewRetention: defaultViewRetention,
	}
}

// WithToggleCooldown 允许在测试中调整点赞防抖窗口。
func (s *EngagementService) WithToggleCooldown(d time.Duration) *EngagementService {
	if d > 0 {
		s.cooldown = d
	}
	return s
}

// WithViewWindow 允许在测试中调整浏览去重窗口。
func (s *EngagementService) WithViewWindow(d time.Duration) *EngagementService {
	if d > 0 {
		s.viewWindow = d
	}
	return s
}

// ToggleLike flips the like state for (post, identity). Repeat toggles
// from the same identity within the cooldown are reported as
// RateLimited with the unmodified state, which absorbs double-clicks
// even when the client dispatches both requests.
func (s *EngagementService) ToggleLike(postID, identity string, now time.Time) (ToggleLikeResult, error) {
	var result ToggleLikeResult
	if identity == "" {
		return result, errors.New("identity is required")
	}

	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return result, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		record := db.PostLike{
			PostID:        post.ID,
			Identity:      identity,
			Liked:         false,
			LastToggledAt: time.Time{},
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "identity"}},
			DoNothing: true,
		}).Create(&record)
		if insert.Error != nil {
			return insert.Error
		}

		if insert.RowsAffected == 0 {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("post_id = ? AND identity = ?", post.ID, identity).
				First(&record).Error; err != nil {
				return err
			}
		}

		if !record.LastToggledAt.IsZero() && now.Sub(record.LastToggledAt) < s.cooldown {
			result = ToggleLikeResult{Likes: post.Likes, UserLiked: record.Liked, RateLimited: true}
			return nil
		}

		record.Liked = !record.Liked
		record.LastToggledAt = now
		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		delta := int64(1)
		if !record.Liked {
			delta = -1
		}
		if err := tx.Model(&db.Post{}).
			Where("id = ?", post.ID).
			Update("likes", gorm.Expr("MAX(likes + ?, 0)", delta)).Error; err != nil {
			return err
		}

		var likes int64
		if err := tx.Model(&db.Post{}).
			Where("id = ?", post.ID).
			Pluck("likes", &likes).Error; err != nil {
			return err
		}

		result = ToggleLikeResult{Likes: likes, UserLiked: record.Liked}
		return nil
	}); err != nil {
		return ToggleLikeResult{}, err
	}

	if !result.RateLimited && s.listings != nil {
		s.listings.InvalidateAll()
	}

	return result, nil
}

// RecordView counts a view for (post, identity) unless the same
// identity viewed the post within the dedup window. Rows older than the
// retention period are pruned on every call so the tracking set stays
// bounded. The returned count is always a fresh read.
func (s *EngagementService) RecordView(postID, identity string, now time.Time) (int64, error) {
	if identity == "" {
		return 0, errors.New("identity is required")
	}

	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return 0, err
	}

	var views int64

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ? AND last_viewed_at < ?", post.ID, now.Add(-s.viewRetention)).
			Delete(&db.PostView{}).Error; err != nil {
			return err
		}

		record := db.PostView{
			PostID:       post.ID,
			Identity:     identity,
			LastViewedAt: now,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "identity"}},
			DoNothing: true,
		}).Create(&record)
		if insert.Error != nil {
			return insert.Error
		}

		canIncrement := insert.RowsAffected == 1
		if !canIncrement {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("post_id = ? AND identity = ?", post.ID, identity).
				First(&record).Error; err != nil {
				return err
			}
			if now.Sub(record.LastViewedAt) >= s.viewWindow {
				canIncrement = true
				record.LastViewedAt = now
				if err := tx.Save(&record).Error; err != nil {
					return err
				}
			}
		}

		if canIncrement {
			if err := tx.Model(&db.Post{}).
				Where("id = ?", post.ID).
				Update("views", gorm.Expr("views + 1")).Error; err != nil {
				return err
			}
		}

		return tx.Model(&db.Post{}).
			Where("id = ?", post.ID).
			Pluck("views", &views).Error
	}); err != nil {
		return 0, err
	}

	return views, nil
}

// HasLiked 返回指定身份是否已点赞该文章，供详情接口展示状态。
func (s *EngagementService) HasLiked(postID, identity string) (bool, error) {
	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return false, err
	}

	var record db.PostLike
	if err := s.db.Where("post_id = ? AND identity = ?", post.ID, identity).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.Liked, nil
}

// findPostByExternalID 优先按外部 PostID 查找，参数为纯数字时回退到数据库主键。
func findPostByExternalID(gdb *gorm.DB, postID string) (*db.Post, error) {
	if postID == "" {
		return nil, ErrPostNotFound
	}

	var post db.Post
	err := gdb.Where("post_id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if id, parseErr := strconv.ParseUint(postID, 10, 32); parseErr == nil {
			err = gdb.First(&post, uint(id)).Error
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}
