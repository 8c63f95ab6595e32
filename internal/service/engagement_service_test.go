package service

import (
	"testing"
	"time"

	"github.com/inkwell/internal/cache"
	"github.com/inkwell/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupEngagementTestDB(t *testing.T) func() {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Post{}, &db.PostLike{}, &db.PostView{}); err != nil {
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

func createEngagementPost(t *testing.T, postID string) db.Post {
	t.Helper()

	post := db.Post{PostID: postID, Title: "Test Post", Slug: postID, Content: "内容", Status: "published"}
	if err := db.DB.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	return post
}

func TestToggleLikeFlipsStateAndCount(t *testing.T) {
	cleanup := setupEngagementTestDB(t)
	defer cleanup()

	createEngagementPost(t, "p1")
	svc := NewEngagementService(db.DB, nil)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	result, err := svc.ToggleLike("p1", "anon:1.2.3.4:abc", base)
	if err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if !result.UserLiked || result.Likes != 1 || result.RateLimited {
		t.Fatalf("expected liked=true likes=1, got %+v", result)
	}

	result, err = svc.ToggleLike("p1", "anon:1.2.3.4:abc", base.Add(2*time.Second))
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if result.UserLiked || result.Likes != 0 {
		t.Fatalf("expected liked=false likes=0 after unlike, got %+v", result)
	}
}

func TestToggleLikeCooldownRejectsDoubleClick(t *testing.T) {
	cleanup := setupEngagementTestDB(t)
	defer cleanup()

	createEngagementPost(t, "p1")
	svc := NewEngagementService(db.DB, nil)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first, err := svc.ToggleLike("p1", "anon:1.2.3.4:abc", base)
	if err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if !first.UserLiked || first.Likes != 1 {
		t.Fatalf("unexpected first toggle result: %+v", first)
	}

	// 500ms 后的重复点击落在 1 秒防抖窗口内
	second, err := svc.ToggleLike("p1", "anon:1.2.3.4:abc", base.Add(500*time.Millisecond))
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if !second.RateLimited {
		t.Fatalf("expected rate limited outcome, got %+v", second)
	}
	if !second.UserLiked || second.Likes != 1 {
		t.Fatalf("rate limited toggle must not mutate state, got %+v", second)
	}

	// 不同身份不受影响
	other, err := svc.ToggleLike("p1", "anon:5.6.7.8:xyz", base.Add(600*time.Millisecond))
	if err != nil {
		t.Fatalf("other identity toggle failed: %v", err)
	}
	if other.RateLimited || other.Likes != 2 {
		t.Fatalf("expected independent identity to like, got %+v", other)
	}
}

func TestToggleLikeNeverGoesNegative(t *testing.T) {
	cleanup := setupEngagementTestDB(t)
	defer cleanup()

	createEngagementPost(t, "p1")
	svc := NewEngagementService(db.DB, nil).WithToggleCooldown(time.Millisecond)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		result, err := svc.ToggleLike("p1", "anon:1.2.3.4:abc", base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("toggle %d failed: %v", i, err)
		}
		if result.Likes < 0 {
			t.Fatalf("likes went negative: %+v", result)
		}
	}

	var post db.Post
	if err := db.DB.Where("post_id = ?", "p1").First(&post).Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if post.Likes != 1 {
		t.Fatalf("expected likes=1 after 5 alternating toggles, got %d", post.Likes)
	}
}

func TestToggleLikeInvalidatesListingCache(t *testing.T) {
	cleanup := setupEngagementTestDB(t)
	defer cleanup()

	createEngagementPost(t, "p1")
	listings := cache.New(time.Minute)
	listings.Set("posts_1_10__published_false", "cached")

	svc := NewEngagementService(db.DB, listings)
	if _, err := svc.ToggleLike("p1", "anon:1.2.3.4:abc", time.Now()); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	if _, ok := listings.Get("posts_1_10__published_false"); ok {
		t.Fatal("expected listing cache to be invalidated after toggle")
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	cleanup := setupEngagementTestDB(t)
	defer cleanup()

	svc := NewEngagementService(db.DB, nil)
	if _, err := svc.ToggleLike("missing", "anon:1.2.3.4:abc", time.Now()); err != ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestRecordViewDedupWindow(t *testing.T) {
	cleanup := setupEngagementTestDB(t)
	defer cleanup()

	createEngagementPost(t, "p1")
	svc := NewEngagementService(db.DB, nil)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	views, err := svc.RecordView("p1", "anon:1.2.3.4:abc", base)
	if err != nil {
		t.Fatalf("first view failed: %v", err)
	}
	if views != 1 {
		t.Fatalf("expected views=1, got %d", views)
	}

	// 6 小时内的重复浏览不计数，但依然返回当前计数
	views, err = svc.RecordView("p1", "anon:1.2.3.4:abc", base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("repeat view failed: %v", err)
	}
	if views != 1 {
		t.Fatalf("expected views=1 within window, got %d", views)
	}

	// 窗口外再次计数
	views, err = svc.RecordView("p1", "anon:1.2.3.4:abc", base.Add(7*time.Hour))
	if err != nil {
		t.Fatalf("view after window failed: %v", err)
	}
	if views != 2 {
		t.Fatalf("expected views=2 after window, got %d", views)
	}

	// 其他身份独立计数
	views, err = svc.RecordView("p1", "anon:5.6.7.8:xyz", base.Add(7*time.Hour))
	if err != nil {
		t.Fatalf("other identity view failed: %v", err)
	}
	if views != 3 {
		t.Fatalf("expected views=3 for second identity, got %d", views)
	}
}

func TestRecordViewPrunesOldRecords(t *testing.T) {
	cleanup := setupEngagementTestDB(t)
	defer cleanup()

	post := createEngagementPost(t, "p1")
	svc := NewEngagementService(db.DB, nil)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if _, err := svc.RecordView("p1", "anon:old:aa", base); err != nil {
		t.Fatalf("old view failed: %v", err)
	}

	// 8 天后的新浏览应清掉过期的跟踪行
	if _, err := svc.RecordView("p1", "anon:new:bb", base.Add(8*24*time.Hour)); err != nil {
		t.Fatalf("new view failed: %v", err)
	}

	var count int64
	if err := db.DB.Model(&db.PostView{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count view records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected pruning to leave 1 record, got %d", count)
	}
}
