package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell/internal/db"
	"gorm.io/gorm"
)

// CategoryService wraps category related database operations.
type CategoryService struct {
	db *gorm.DB
}

// CategoryStat 描述分类及其已发布文章数。
type CategoryStat struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int64  `json:"postCount"`
}

// NewCategoryService 创建 CategoryService。
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// ListWithCounts returns all categories with their published post counts.
func (s *CategoryService) ListWithCounts() ([]CategoryStat, error) {
	var stats []CategoryStat
	if err := s.db.Table("categories c").
		Select("c.id, c.name, c.slug, COUNT(p.id) AS post_count").
		Joins("LEFT JOIN posts p ON p.category_id = c.id AND p.status = 'published' AND p.hidden = 0 AND p.deleted_at IS NULL").
		Where("c.deleted_at IS NULL").
		Group("c.id, c.name, c.slug").
		Order("c.name ASC").
		Scan(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// Create persists a category with a slug derived from its name.
func (s *CategoryService) Create(name string) (*db.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	category := db.Category{Name: trimmed, Slug: slugify(trimmed)}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Rename updates a category name and slug.
func (s *CategoryService) Rename(id uint, name string) (*db.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	var category db.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	category.Name = trimmed
	category.Slug = slugify(trimmed)
	if err := s.db.Save(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Delete removes a category and detaches its posts.
func (s *CategoryService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&db.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return tx.Model(&db.Post{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error
	})
}
