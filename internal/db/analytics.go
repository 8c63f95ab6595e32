package db

import "time"

// PageView 记录单次页面浏览事件，是分析数据的事实来源。
// 除去重规则允许的时间戳与参与度字段外不可变。
type PageView struct {
	ID           uint   `gorm:"primaryKey"`
	PostID       string `gorm:"size:64;index"`
	URL          string `gorm:"size:512;not null"`
	Title        string `gorm:"size:255"`
	Identity     string `gorm:"size:128;index"`
	SessionID    string `gorm:"size:64;index"`
	VisitorToken string `gorm:"size:64;index"`
	IPAddress    string `gorm:"size:45"`
	UserAgent    string `gorm:"size:1000"`
	Browser      string `gorm:"size:64"`
	BrowserVer   string `gorm:"size:32"`
	OS           string `gorm:"size:64"`
	DeviceType   string `gorm:"size:16"`
	Referrer     string `gorm:"size:255"`
	ReferrerHost string `gorm:"size:255"`
	Source       string `gorm:"size:16;default:direct"`
	TimeOnPage   *int
	ScrollDepth  *float64
	ViewedAt     time.Time `gorm:"index"`
	ViewHour     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定自定义表名。
func (PageView) TableName() string {
	return "page_views"
}

// Visitor 按身份聚合的访客档案，每个身份一行。
type Visitor struct {
	ID             uint   `gorm:"primaryKey"`
	Identity       string `gorm:"size:128;uniqueIndex"`
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
	TotalVisits    int64 `gorm:"default:0"`
	TotalPageViews int64 `gorm:"default:0"`
	Browser        string `gorm:"size:64"`
	OS             string `gorm:"size:64"`
	DeviceType     string `gorm:"size:16"`
	InitialSource  string `gorm:"size:16"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定自定义表名。
func (Visitor) TableName() string {
	return "visitors"
}

// DailyAnalytics 按 (postId, 日期) 汇总的日维度滚动统计。
// PostID 为空串时表示站点级统计。
type DailyAnalytics struct {
	ID     uint   `gorm:"primaryKey"`
	PostID string `gorm:"size:64;uniqueIndex:idx_daily_post_date"`
	Date   string `gorm:"size:10;uniqueIndex:idx_daily_post_date"`
	Year   int    `gorm:"index"`
	Month  int    `gorm:"index"`
	Day    int

	Views int64 `gorm:"default:0"`

	HourlyViews      CounterMap `gorm:"type:text"`
	Browsers         CounterMap `gorm:"type:text"`
	OperatingSystems CounterMap `gorm:"type:text"`

	MobileViews  int64 `gorm:"default:0"`
	DesktopViews int64 `gorm:"default:0"`
	TabletViews  int64 `gorm:"default:0"`

	DirectTraffic   int64 `gorm:"default:0"`
	SearchTraffic   int64 `gorm:"default:0"`
	SocialTraffic   int64 `gorm:"default:0"`
	EmailTraffic    int64 `gorm:"default:0"`
	ReferralTraffic int64 `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (DailyAnalytics) TableName() string {
	return "daily_analytics"
}
