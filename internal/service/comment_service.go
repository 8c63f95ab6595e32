package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell/internal/cache"
	"github.com/inkwell/internal/db"
	"gorm.io/gorm"
)

// CommentInput 承载创建评论所需的字段。
type CommentInput struct {
	AuthorName string
	Email      string
	Body       string
}

// CommentService wraps comment related database operations and keeps
// the denormalized comment counter on the post row in sync.
type CommentService struct {
	db       *gorm.DB
	listings *cache.ListingCache
}

// NewCommentService 创建 CommentService。
func NewCommentService(gdb *gorm.DB, listings *cache.ListingCache) *CommentService {
	return &CommentService{db: gdb, listings: listings}
}

// Create adds an approved comment and bumps the post's counter.
func (s *CommentService) Create(postID string, input CommentInput) (*db.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}

	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.AuthorName)
	if name == "" {
		name = "Anonymous"
	}

	comment := db.Comment{
		PostID:     post.ID,
		AuthorName: name,
		Email:      strings.TrimSpace(input.Email),
		Body:       body,
		Approved:   true,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&db.Post{}).
			Where("id = ?", post.ID).
			Update("comments", gorm.Expr("comments + 1")).Error
	}); err != nil {
		return nil, err
	}

	if s.listings != nil {
		s.listings.InvalidateAll()
	}
	return &comment, nil
}

// ListForPost 返回文章的已批准评论，按时间正序。
func (s *CommentService) ListForPost(postID string) ([]db.Comment, error) {
	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return nil, err
	}

	var comments []db.Comment
	if err := s.db.Where("post_id = ? AND approved = ?", post.ID, true).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete removes a comment and decrements the post counter, floored at 0.
func (s *CommentService) Delete(id uint) error {
	var comment db.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&db.Post{}).
			Where("id = ?", comment.PostID).
			Update("comments", gorm.Expr("MAX(comments - 1, 0)")).Error
	}); err != nil {
		return err
	}

	if s.listings != nil {
		s.listings.InvalidateAll()
	}
	return nil
}
