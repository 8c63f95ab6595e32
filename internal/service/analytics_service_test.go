package service

import (
	"testing"
	"time"

	"github.com/inkwell/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAnalyticsTestDB(t *testing.T) func() {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Post{}, &db.PageView{}, &db.Visitor{}, &db.DailyAnalytics{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

const testBrowserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func trackInput(identity, url string) PageViewInput {
	return PageViewInput{
		URL:       url,
		Title:     "Test Page",
		Identity:  identity,
		IPAddress: "1.2.3.4",
		UserAgent: testBrowserUA,
	}
}

func TestRecordRejectsMissingOrMalformedURL(t *testing.T) {
	cleanup := setupAnalyticsTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db.DB)
	now := time.Now()

	if _, err := svc.Record(trackInput("anon:1.2.3.4:abc", ""), now); err != ErrInvalidURL {
		t.Fatalf("expected ErrInvalidURL for empty url, got %v", err)
	}
	if _, err := svc.Record(trackInput("anon:1.2.3.4:abc", "not a url"), now); err != ErrInvalidURL {
		t.Fatalf("expected ErrInvalidURL for malformed url, got %v", err)
	}

	var count int64
	if err := db.DB.Model(&db.PageView{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	if count != 0 {
		t.Fatalf("validation failure must not persist anything, found %d rows", count)
	}
}

func TestRecordFiltersBotTraffic(t *testing.T) {
	cleanup := setupAnalyticsTestDB(t)
	defer cleanup()

	post := db.Post{PostID: "p1", Title: "T", Slug: "t", Status: "published"}
	if err := db.DB.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	svc := NewAnalyticsService(db.DB)

	input := trackInput("anon:1.2.3.4:abc", "https://example.com/p1")
	input.PostID = "p1"
	input.UserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

	view, err := svc.Record(input, time.Now())
	if err != nil {
		t.Fatalf("bot record failed: %v", err)
	}
	if view != nil {
		t.Fatalf("expected bot traffic to be discarded, got %+v", view)
	}

	var events, visitors, rollups int64
	db.DB.Model(&db.PageView{}).Count(&events)
	db.DB.Model(&db.Visitor{}).Count(&visitors)
	db.DB.Model(&db.DailyAnalytics{}).Count(&rollups)
	if events != 0 || visitors != 0 || rollups != 0 {
		t.Fatalf("bot traffic leaked into storage: events=%d visitors=%d rollups=%d", events, visitors, rollups)
	}

	if err := db.DB.Where("post_id = ?", "p1").First(&post).Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if post.Views != 0 {
		t.Fatalf("bot traffic must not touch post views, got %d", post.Views)
	}
}

func TestRecordDedupWithinWindow(t *testing.T) {
	cleanup := setupAnalyticsTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db.DB)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first, err := svc.Record(trackInput("anon:1.2.3.4:abc", "https://example.com/page"), base)
	if err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected first event to be persisted")
	}

	seconds := 42
	repeat := trackInput("anon:1.2.3.4:abc", "https://example.com/page")
	repeat.TimeOnPage = &seconds

	second, err := svc.Record(repeat, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("duplicate record failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected dedup to reuse row %d, got %d", first.ID, second.ID)
	}
	if second.TimeOnPage == nil || *second.TimeOnPage != 42 {
		t.Fatalf("expected merged timeOnPage=42, got %v", second.TimeOnPage)
	}
	if !second.ViewedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("expected refreshed timestamp, got %v", second.ViewedAt)
	}

	var count int64
	db.DB.Model(&db.PageView{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one persisted event, got %d", count)
	}

	// 窗口之外产生第二条独立事件
	third, err := svc.Record(trackInput("anon:1.2.3.4:abc", "https://example.com/page"), base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("record after window failed: %v", err)
	}
	if third.ID == first.ID {
		t.Fatal("expected a distinct event outside the dedup window")
	}

	db.DB.Model(&db.PageView{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected two events after window, got %d", count)
	}
}

func TestRecordDedupBySessionID(t *testing.T) {
	cleanup := setupAnalyticsTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db.DB)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := trackInput("anon:1.2.3.4:abc", "https://example.com/page")
	first.SessionID = "sess-1"
	if _, err := svc.Record(first, base); err != nil {
		t.Fatalf("first record failed: %v", err)
	}

	// 身份不同（如切换网络）但会话相同，仍视为重复
	second := trackInput("anon:9.9.9.9:zzz", "https://example.com/page")
	second.SessionID = "sess-1"
	if _, err := svc.Record(second, base.Add(time.Minute)); err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	var count int64
	db.DB.Model(&db.PageView{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected session dedup to keep one event, got %d", count)
	}
}

func TestRecordUpdatesVisitorAndPostAndRollup(t *testing.T) {
	cleanup := setupAnalyticsTestDB(t)
	defer cleanup()

	post := db.Post{PostID: "p1", Title: "T", Slug: "t", Status: "published"}
	if err := db.DB.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	svc := NewAnalyticsService(db.DB).WithDedupWindow(time.Second)
	base := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

	input := trackInput("anon:1.2.3.4:abc", "https://example.com/posts/p1")
	input.PostID = "p1"
	input.Referrer = "https://www.google.com/search?q=test"

	if _, err := svc.Record(input, base); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if _, err := svc.Record(input, base.Add(time.Hour)); err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	var visitor db.Visitor
	if err := db.DB.Where("identity = ?", "anon:1.2.3.4:abc").First(&visitor).Error; err != nil {
		t.Fatalf("failed to load visitor: %v", err)
	}
	if visitor.TotalPageViews != 2 || visitor.TotalVisits != 2 {
		t.Fatalf("unexpected visitor counters: %+v", visitor)
	}
	if !visitor.LastSeenAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("expected lastSeen to advance, got %v", visitor.LastSeenAt)
	}

	if err := db.DB.Where("post_id = ?", "p1").First(&post).Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if post.Views != 2 {
		t.Fatalf("expected post views=2 via analytics path, got %d", post.Views)
	}

	var rollup db.DailyAnalytics
	if err := db.DB.Where("post_id = ? AND date = ?", "p1", "2024-05-01").First(&rollup).Error; err != nil {
		t.Fatalf("failed to load rollup: %v", err)
	}
	if rollup.Views != 2 {
		t.Fatalf("expected rollup views=2, got %d", rollup.Views)
	}
	if rollup.HourlyViews["14"] != 1 || rollup.HourlyViews["15"] != 1 {
		t.Fatalf("unexpected hourly histogram: %v", rollup.HourlyViews)
	}
	if rollup.Browsers["Chrome"] != 2 {
		t.Fatalf("unexpected browser histogram: %v", rollup.Browsers)
	}
	if rollup.DesktopViews != 2 {
		t.Fatalf("expected desktop views=2, got %d", rollup.DesktopViews)
	}
	if rollup.SearchTraffic != 2 {
		t.Fatalf("expected search traffic=2, got %d", rollup.SearchTraffic)
	}
}

func TestTrafficSourceClassification(t *testing.T) {
	cases := []struct {
		referrer string
		want     string
	}{
		{"", "direct"},
		{"https://www.google.com/search?q=x", "search"},
		{"https://duckduckgo.com/?q=x", "search"},
		{"https://t.co/abcdef", "social"},
		{"https://www.reddit.com/r/golang", "social"},
		{"https://mail.google.com/mail/u/0/", "search"},
		{"https://some-blog.example.org/links", "referral"},
	}

	for _, tc := range cases {
		if got := TrafficSource(tc.referrer); got != tc.want {
			t.Errorf("TrafficSource(%q) = %q, want %q", tc.referrer, got, tc.want)
		}
	}
}

func TestSiteStatsWindows(t *testing.T) {
	cleanup := setupAnalyticsTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db.DB).WithDedupWindow(time.Second)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	if _, err := svc.Record(trackInput("anon:a:1", "https://example.com/1"), now.Add(-time.Hour)); err != nil {
		t.Fatalf("record today failed: %v", err)
	}
	if _, err := svc.Record(trackInput("anon:b:2", "https://example.com/2"), now.Add(-30*time.Hour)); err != nil {
		t.Fatalf("record yesterday failed: %v", err)
	}

	stats, err := svc.Stats(now)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalViews != 2 || stats.UniqueVisitors != 2 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.Today != 1 || stats.Yesterday != 1 {
		t.Fatalf("unexpected day windows: %+v", stats)
	}
}

func TestDedupStillRefreshesVisitorProfile(t *testing.T) {
	cleanup := setupAnalyticsTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db.DB)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repeat := base.Add(2 * time.Minute)

	if _, err := svc.Record(trackInput("anon:1.2.3.4:abc", "https://example.com/page"), base); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if _, err := svc.Record(trackInput("anon:1.2.3.4:abc", "https://example.com/page"), repeat); err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	var events int64
	db.DB.Model(&db.PageView{}).Count(&events)
	if events != 1 {
		t.Fatalf("expected merged event, got %d rows", events)
	}

	var visitor db.Visitor
	if err := db.DB.Where("identity = ?", "anon:1.2.3.4:abc").First(&visitor).Error; err != nil {
		t.Fatalf("visitor missing: %v", err)
	}
	if visitor.LastSeenAt.Unix() != repeat.Unix() {
		t.Fatalf("visitor last seen not refreshed on merge: got %v want %v", visitor.LastSeenAt, repeat)
	}
	if visitor.FirstSeenAt.Unix() != base.Unix() {
		t.Fatalf("visitor first seen must stay at %v, got %v", base, visitor.FirstSeenAt)
	}
	if visitor.TotalPageViews != 2 {
		t.Fatalf("expected both calls counted, got %d", visitor.TotalPageViews)
	}
}
