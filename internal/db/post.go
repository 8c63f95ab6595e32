package db

import (
	"time"

	"gorm.io/gorm"
)

// Post 定义了文章模型。Likes/Views/Comments 为冗余计数，
// 由 engagement 与 analytics 路径维护。
type Post struct {
	gorm.Model
	PostID         string `gorm:"size:64;uniqueIndex"`
	Title          string
	Slug           string `gorm:"size:160;index"`
	Content        string
	Summary        string
	Status         string `gorm:"size:16;default:draft;index"`
	Hidden         bool   `gorm:"default:false;index"`
	Likes          int64  `gorm:"default:0"`
	Views          int64  `gorm:"default:0"`
	Comments       int64  `gorm:"default:0"`
	CategoryID     *uint  `gorm:"index"`
	Category       *Category
	UserID         uint
	User           User
	PublishedAt    *time.Time
	PublishedYear  int `gorm:"index"`
	PublishedMonth int `gorm:"index"`
}

// Category 定义了分类模型
type Category struct {
	gorm.Model
	Name  string `gorm:"size:64;unique;not null"`
	Slug  string `gorm:"size:80;uniqueIndex"`
	Posts []Post
}

// Comment 定义了评论模型
type Comment struct {
	gorm.Model
	PostID     uint   `gorm:"index"`
	AuthorName string `gorm:"size:80"`
	Email      string `gorm:"size:160"`
	Body       string `gorm:"not null"`
	Approved   bool   `gorm:"default:true"`
}
