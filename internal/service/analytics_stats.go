package service

import (
	"time"

	"github.com/inkwell/internal/db"
)

// SiteStats 聚合站点层面的浏览数据。
type SiteStats struct {
	TotalViews     int64 `json:"totalViews"`
	UniqueVisitors int64 `json:"uniqueVisitors"`
	Today          int64 `json:"today"`
	Yesterday      int64 `json:"yesterday"`
	ThisMonth      int64 `json:"thisMonth"`
}

// DailyViewPoint 表示某一天的浏览量。
type DailyViewPoint struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

// TopPostStat 描述热门文章的统计信息。
type TopPostStat struct {
	PostID   string `json:"postId"`
	Title    string `json:"title"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
}

// RealtimeStats 描述近 5 分钟/近 1 小时的实时活动。
type RealtimeStats struct {
	ActiveVisitors int64 `json:"activeVisitors"`
	RecentViews    int64 `json:"recentViews"`
}

// Stats 汇总全站浏览与访客数据。
func (s *AnalyticsService) Stats(now time.Time) (SiteStats, error) {
	var stats SiteStats

	if err := s.db.Model(&db.PageView{}).Count(&stats.TotalViews).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&db.Visitor{}).Count(&stats.UniqueVisitors).Error; err != nil {
		return stats, err
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	if err := s.db.Model(&db.PageView{}).
		Where("viewed_at >= ?", todayStart).
		Count(&stats.Today).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&db.PageView{}).
		Where("viewed_at >= ? AND viewed_at < ?", yesterdayStart, todayStart).
		Count(&stats.Yesterday).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&db.PageView{}).
		Where("viewed_at >= ?", monthStart).
		Count(&stats.ThisMonth).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

// PostDailyViews 返回指定文章最近 days 天的逐日浏览量，
// 数据来源为日维度滚动统计表。
func (s *AnalyticsService) PostDailyViews(postID string, days int, now time.Time) ([]DailyViewPoint, error) {
	if days <= 0 {
		days = 7
	}
	since := now.AddDate(0, 0, -days).Format("2006-01-02")

	var rollups []db.DailyAnalytics
	if err := s.db.Where("post_id = ? AND date >= ?", postID, since).
		Order("date ASC").
		Find(&rollups).Error; err != nil {
		return nil, err
	}

	points := make([]DailyViewPoint, 0, len(rollups))
	for _, r := range rollups {
		points = append(points, DailyViewPoint{Date: r.Date, Views: r.Views})
	}
	return points, nil
}

// TopPosts 按文章行上的 views 计数返回已发布、未隐藏的热门文章。
func (s *AnalyticsService) TopPosts(limit int) ([]TopPostStat, error) {
	if limit <= 0 {
		limit = 10
	}

	var top []TopPostStat
	if err := s.db.Model(&db.Post{}).
		Select("post_id, title, views, likes, comments").
		Where("status = ? AND hidden = ?", "published", false).
		Order("views DESC").
		Limit(limit).
		Scan(&top).Error; err != nil {
		return nil, err
	}
	return top, nil
}

// Realtime 统计近 5 分钟活跃访客与近 1 小时浏览量。
func (s *AnalyticsService) Realtime(now time.Time) (RealtimeStats, error) {
	var stats RealtimeStats

	if err := s.db.Model(&db.PageView{}).
		Where("viewed_at >= ?", now.Add(-5*time.Minute)).
		Distinct("identity").
		Count(&stats.ActiveVisitors).Error; err != nil {
		return stats, err
	}
	if err := s.db.Model(&db.PageView{}).
		Where("viewed_at >= ?", now.Add(-time.Hour)).
		Count(&stats.RecentViews).Error; err != nil {
		return stats, err
	}

	return stats, nil
}
