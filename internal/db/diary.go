package db

import "time"

// DiaryEntry 是年月归档索引。没有文章的月份标记为 inactive 而不是删除，
// 以保留历史 slug。
type DiaryEntry struct {
	ID        uint `gorm:"primaryKey"`
	Year      int  `gorm:"uniqueIndex:idx_diary_year_month"`
	Month     int  `gorm:"uniqueIndex:idx_diary_year_month"`
	MonthName string `gorm:"size:16"`
	Slug      string `gorm:"size:32;index"`
	PostCount int64  `gorm:"default:0"`
	IsActive  bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (DiaryEntry) TableName() string {
	return "diary_entries"
}
