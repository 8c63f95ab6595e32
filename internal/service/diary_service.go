package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/inkwell/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// DiaryService maintains the year/month archive index over published
// posts. It is deliberately non-incremental: every trigger recounts the
// affected key from the posts table, so missed events can never cause
// drift.
type DiaryService struct {
	db *gorm.DB
}

// NewDiaryService 创建 DiaryService。
func NewDiaryService(gdb *gorm.DB) *DiaryService {
	return &DiaryService{db: gdb}
}

// RecomputeFor recounts published, non-hidden posts for one
// (year, month) key and upserts its diary entry.
func (s *DiaryService) RecomputeFor(year, month int) error {
	if year <= 0 || month < 1 || month > 12 {
		return fmt.Errorf("invalid year/month: %d/%d", year, month)
	}

	var count int64
	if err := s.db.Model(&db.Post{}).
		Where("status = ? AND hidden = ? AND published_year = ? AND published_month = ?",
			"published", false, year, month).
		Count(&count).Error; err != nil {
		return err
	}

	return s.upsertEntry(year, month, count)
}

// RecomputeAll rebuilds the whole archive from the posts table. Months
// that lost their last post flip to inactive with a zero count; rows
// are never deleted so historical slugs survive.
func (s *DiaryService) RecomputeAll() error {
	type monthGroup struct {
		Year  int
		Month int
		Count int64
	}

	var groups []monthGroup
	if err := s.db.Model(&db.Post{}).
		Select("published_year AS year, published_month AS month, COUNT(*) AS count").
		Where("status = ? AND hidden = ? AND published_at IS NOT NULL", "published", false).
		Group("published_year, published_month").
		Scan(&groups).Error; err != nil {
		return err
	}

	active := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.Year <= 0 || g.Month < 1 || g.Month > 12 {
			continue
		}
		if err := s.upsertEntry(g.Year, g.Month, g.Count); err != nil {
			return err
		}
		active[fmt.Sprintf("%d-%d", g.Year, g.Month)] = true
	}

	var entries []db.DiaryEntry
	if err := s.db.Where("is_active = ?", true).Find(&entries).Error; err != nil {
		return err
	}
	for _, e := range entries {
		if active[fmt.Sprintf("%d-%d", e.Year, e.Month)] {
			continue
		}
		if err := s.db.Model(&db.DiaryEntry{}).
			Where("id = ?", e.ID).
			Updates(map[string]interface{}{"is_active": false, "post_count": 0}).Error; err != nil {
			return err
		}
	}

	return nil
}

// OnPostChanged recomputes the diary key a post belongs to after a
// create/update/delete. Diary staleness must never fail the post write,
// so persistence errors are logged by the caller side via the returned
// error only when it cares.
func (s *DiaryService) OnPostChanged(publishedAt *time.Time) error {
	if publishedAt == nil {
		return nil
	}
	return s.RecomputeFor(publishedAt.Year(), int(publishedAt.Month()))
}

// ActiveEntries 返回归档列表，按年月倒序。
func (s *DiaryService) ActiveEntries() ([]db.DiaryEntry, error) {
	var entries []db.DiaryEntry
	if err := s.db.Where("is_active = ?", true).
		Order("year DESC, month DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *DiaryService) upsertEntry(year, month int, count int64) error {
	name := monthNames[month-1]
	entry := db.DiaryEntry{
		Year:      year,
		Month:     month,
		MonthName: name,
		Slug:      fmt.Sprintf("%s-%d", strings.ToLower(name), year),
		PostCount: count,
		IsActive:  count > 0,
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"month_name", "slug", "post_count", "is_active", "updated_at",
		}),
	}).Create(&entry).Error
}
