package db

import "time"

// PostLike 记录单个访客对文章的点赞状态，替代 JSON 数组形式的 likedBy。
// LastToggledAt 用于在存储层实现 1 秒的防抖窗口。
type PostLike struct {
	ID            uint   `gorm:"primaryKey"`
	PostID        uint   `gorm:"uniqueIndex:idx_post_like_identity"`
	Identity      string `gorm:"size:128;uniqueIndex:idx_post_like_identity"`
	Liked         bool   `gorm:"default:false"`
	LastToggledAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定自定义表名。
func (PostLike) TableName() string {
	return "post_likes"
}

// PostView 记录访客层面的浏览历史，用于 6 小时去重窗口。
// 超过 7 天的行会被定期清理，保证集合有界。
type PostView struct {
	ID           uint   `gorm:"primaryKey"`
	PostID       uint   `gorm:"uniqueIndex:idx_post_view_identity"`
	Identity     string `gorm:"size:128;uniqueIndex:idx_post_view_identity"`
	LastViewedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定自定义表名。
func (PostView) TableName() string {
	return "post_views"
}
