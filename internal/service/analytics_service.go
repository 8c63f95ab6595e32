package service

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/inkwell/internal/db"
	"github.com/mileusna/useragent"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultAnalyticsDedupWindow = 5 * time.Minute

	maxReferrerLen  = 255
	maxUserAgentLen = 1000
	maxTitleLen     = 255
)

// botSignatures 与 UA 库的 bot 判定叠加使用，覆盖搜索引擎、
// 社交预览爬虫和通用爬虫标识。
var botSignatures = []string{
	"bot", "crawler", "spider", "crawling",
	"googlebot", "bingbot", "yahoo", "baidu", "yandex", "duckduckbot",
	"facebookexternalhit", "twitterbot", "linkedinbot", "pinterest",
	"whatsapp", "telegram", "slackbot",
}

var searchDomains = []string{"google", "bing", "yahoo", "baidu", "yandex", "duckduckgo"}
var socialDomains = []string{"facebook", "twitter", "x.com", "instagram", "linkedin", "pinterest", "reddit", "youtube", "tiktok", "t.co"}
var emailDomains = []string{"gmail", "outlook", "mail.", "webmail"}

// PageViewInput 承载一次追踪请求的全部输入信号。
type PageViewInput struct {
	PostID       string
	URL          string
	Title        string
	Identity     string
	SessionID    string
	VisitorToken string
	IPAddress    string
	UserAgent    string
	Referrer     string
	TimeOnPage   *int
	ScrollDepth  *float64
}

// AnalyticsService records page-view events, filters bot traffic,
// deduplicates near-identical views and maintains the visitor profiles
// and daily rollups derived from the raw events.
type AnalyticsService struct {
	db          *gorm.DB
	dedupWindow time.Duration
}

// NewAnalyticsService 创建 AnalyticsService，默认去重窗口为 5 分钟。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb, dedupWindow: defaultAnalyticsDedupWindow}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *AnalyticsService) WithDedupWindow(d time.Duration) *AnalyticsService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// IsBot reports whether the user agent looks like crawler traffic.
func (s *AnalyticsService) IsBot(ua string) bool {
	if ua == "" {
		return false
	}
	lowered := strings.ToLower(ua)
	for _, sig := range botSignatures {
		if strings.Contains(lowered, sig) {
			return true
		}
	}
	return useragent.Parse(ua).Bot
}

// Record persists one page-view event. Bot traffic returns (nil, nil)
// and touches nothing. A duplicate within the dedup window refreshes
// the existing row instead of inserting; otherwise a new row is
// written and the post counter and daily rollup are updated. The
// visitor profile is refreshed on both paths. Rollup and visitor
// failures never roll the event back — the raw event is the source of
// truth.
func (s *AnalyticsService) Record(input PageViewInput, now time.Time) (*db.PageView, error) {
	trimmedURL := strings.TrimSpace(input.URL)
	if trimmedURL == "" {
		return nil, ErrInvalidURL
	}
	parsed, err := url.Parse(trimmedURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrInvalidURL
	}

	if s.IsBot(input.UserAgent) {
		return nil, nil
	}

	var view db.PageView
	var deduped bool

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.findDuplicate(tx, input, trimmedURL, now)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.ViewedAt = now
			if input.TimeOnPage != nil {
				existing.TimeOnPage = input.TimeOnPage
			}
			if input.ScrollDepth != nil {
				existing.ScrollDepth = input.ScrollDepth
			}
			if err := tx.Save(existing).Error; err != nil {
				return err
			}
			view = *existing
			deduped = true
			return nil
		}

		ua := useragent.Parse(input.UserAgent)
		view = db.PageView{
			PostID:       strings.TrimSpace(input.PostID),
			URL:          trimmedURL,
			Title:        truncate(input.Title, maxTitleLen),
			Identity:     input.Identity,
			SessionID:    input.SessionID,
			VisitorToken: input.VisitorToken,
			IPAddress:    input.IPAddress,
			UserAgent:    truncate(input.UserAgent, maxUserAgentLen),
			Browser:      valueOr(ua.Name, "Unknown"),
			BrowserVer:   ua.Version,
			OS:           valueOr(ua.OS, "Unknown"),
			DeviceType:   deviceType(ua),
			Referrer:     truncate(input.Referrer, maxReferrerLen),
			ReferrerHost: extractHost(input.Referrer),
			Source:       TrafficSource(input.Referrer),
			TimeOnPage:   input.TimeOnPage,
			ScrollDepth:  input.ScrollDepth,
			ViewedAt:     now,
			ViewHour:     now.Hour(),
		}
		return tx.Create(&view).Error
	}); err != nil {
		return nil, err
	}

	// 以下均为派生数据，失败只记录日志，不回滚事件本身。
	// 去重合并同样代表一次来访，访客档案在两条路径上都要刷新。
	if err := s.upsertVisitor(&view, now); err != nil {
		log.Printf("analytics: visitor upsert failed identity=%s: %v", view.Identity, err)
	}

	if deduped {
		return &view, nil
	}
	if view.PostID != "" {
		if err := s.bumpPostViews(view.PostID); err != nil {
			log.Printf("analytics: post view bump failed post=%s: %v", view.PostID, err)
		}
	}
	if err := s.updateDailyRollup(&view, now); err != nil {
		log.Printf("analytics: daily rollup failed post=%s date=%s: %v",
			view.PostID, now.Format("2006-01-02"), err)
	}

	return &view, nil
}

// findDuplicate 在去重窗口内查找同一访客对同一 URL 的既有事件。
// 身份、会话 ID 与历史访客令牌三者任一匹配即视为重复。
func (s *AnalyticsService) findDuplicate(tx *gorm.DB, input PageViewInput, viewURL string, now time.Time) (*db.PageView, error) {
	since := now.Add(-s.dedupWindow)

	match := tx.Where("identity = ?", input.Identity)
	if input.SessionID != "" {
		match = match.Or("session_id = ?", input.SessionID)
	}
	if input.VisitorToken != "" {
		match = match.Or("visitor_token = ?", input.VisitorToken)
	}

	var existing db.PageView
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("url = ? AND viewed_at > ?", viewURL, since).
		Where(match).
		Order("viewed_at DESC").
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *AnalyticsService) upsertVisitor(view *db.PageView, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		visitor := db.Visitor{
			Identity:       view.Identity,
			FirstSeenAt:    now,
			LastSeenAt:     now,
			TotalVisits:    1,
			TotalPageViews: 1,
			Browser:        view.Browser,
			OS:             view.OS,
			DeviceType:     view.DeviceType,
			InitialSource:  view.Source,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}},
			DoNothing: true,
		}).Create(&visitor)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 1 {
			return nil
		}

		return tx.Model(&db.Visitor{}).
			Where("identity = ?", view.Identity).
			Updates(map[string]interface{}{
				"last_seen_at":     now,
				"total_visits":     gorm.Expr("total_visits + 1"),
				"total_page_views": gorm.Expr("total_page_views + 1"),
			}).Error
	})
}

// bumpPostViews 直接累加文章行上的 views 计数。这条路径与
// EngagementService.RecordView 是两个相互独立的计数器，分别由
// /track 与 /view 触发，保持各自语义。
func (s *AnalyticsService) bumpPostViews(postID string) error {
	result := s.db.Model(&db.Post{}).
		Where("post_id = ?", postID).
		Update("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %s not found", postID)
	}
	return nil
}

func (s *AnalyticsService) updateDailyRollup(view *db.PageView, now time.Time) error {
	date := now.Format("2006-01-02")

	return s.db.Transaction(func(tx *gorm.DB) error {
		rollup := db.DailyAnalytics{
			PostID:           view.PostID,
			Date:             date,
			Year:             now.Year(),
			Month:            int(now.Month()),
			Day:              now.Day(),
			HourlyViews:      db.CounterMap{},
			Browsers:         db.CounterMap{},
			OperatingSystems: db.CounterMap{},
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "date"}},
			DoNothing: true,
		}).Create(&rollup)
		if insert.Error != nil {
			return insert.Error
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("post_id = ? AND date = ?", view.PostID, date).
			First(&rollup).Error; err != nil {
			return err
		}

		rollup.Views++
		if rollup.HourlyViews == nil {
			rollup.HourlyViews = db.CounterMap{}
		}
		if rollup.Browsers == nil {
			rollup.Browsers = db.CounterMap{}
		}
		if rollup.OperatingSystems == nil {
			rollup.OperatingSystems = db.CounterMap{}
		}
		rollup.HourlyViews.Bump(fmt.Sprintf("%d", view.ViewHour))
		rollup.Browsers.Bump(view.Browser)
		rollup.OperatingSystems.Bump(view.OS)

		switch view.DeviceType {
		case "mobile":
			rollup.MobileViews++
		case "tablet":
			rollup.TabletViews++
		default:
			rollup.DesktopViews++
		}

		switch view.Source {
		case "search":
			rollup.SearchTraffic++
		case "social":
			rollup.SocialTraffic++
		case "email":
			rollup.EmailTraffic++
		case "referral":
			rollup.ReferralTraffic++
		default:
			rollup.DirectTraffic++
		}

		return tx.Save(&rollup).Error
	})
}

// TrafficSource 根据 referrer 域名归类流量来源。
func TrafficSource(referrer string) string {
	host := extractHost(referrer)
	if host == "" {
		return "direct"
	}
	for _, d := range searchDomains {
		if strings.Contains(host, d) {
			return "search"
		}
	}
	for _, d := range socialDomains {
		if strings.Contains(host, d) {
			return "social"
		}
	}
	for _, d := range emailDomains {
		if strings.Contains(host, d) {
			return "email"
		}
	}
	return "referral"
}

func extractHost(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	default:
		return "desktop"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
