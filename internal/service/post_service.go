package service

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell/internal/cache"
	"github.com/inkwell/internal/db"
	"gorm.io/gorm"
)

// PostService wraps post related database operations. Every write
// invalidates the listing cache before returning and recounts the
// affected diary month; diary failures are logged and swallowed so the
// post write itself never fails on derived data.
type PostService struct {
	db       *gorm.DB
	listings *cache.ListingCache
	diary    *DiaryService
}

// PostFilter describes filters for listing posts.
type PostFilter struct {
	Search        string
	Status        string
	IncludeHidden bool
	Page          int
	PerPage       int
}

// PostListResult aggregates paginated list data and counters.
type PostListResult struct {
	Posts      []db.Post `json:"posts"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"totalPages"`
	Page       int       `json:"page"`
	PerPage    int       `json:"perPage"`
}

// PostInput represents fields accepted when creating or updating a post.
type PostInput struct {
	Title       string
	Content     string
	Summary     string
	Status      string
	Hidden      bool
	CategoryID  *uint
	UserID      uint
	PublishedAt *time.Time
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB, listings *cache.ListingCache, diary *DiaryService) *PostService {
	return &PostService{db: gdb, listings: listings, diary: diary}
}

// List returns a page of posts, served through the listing cache when
// possible. The cache key covers every parameter that shapes the
// result set.
func (s *PostService) List(filter PostFilter) (*PostListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 10
	}

	key := cache.ListingKey(filter.Page, filter.PerPage, filter.Search, filter.Status, filter.IncludeHidden)
	if s.listings != nil {
		if cached, ok := s.listings.Get(key); ok {
			if result, ok := cached.(*PostListResult); ok {
				return result, nil
			}
		}
	}

	query := s.db.Model(&db.Post{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.IncludeHidden {
		query = query.Where("hidden = ?", false)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []db.Post
	if err := query.Preload("Category").
		Order("COALESCE(published_at, created_at) DESC").
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	result := &PostListResult{
		Posts:      posts,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PerPage))),
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	}

	if s.listings != nil {
		s.listings.Set(key, result)
	}
	return result, nil
}

// Get fetches a post by its external id, falling back to the numeric
// primary key for legacy links.
func (s *PostService) Get(postID string) (*db.Post, error) {
	return findPostByExternalID(s.db, postID)
}

// Create persists a new post. Publishing stamps the publish date and
// its (year, month) used by the diary index.
func (s *PostService) Create(input PostInput) (*db.Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	post := db.Post{
		PostID:     uuid.NewString(),
		Title:      title,
		Slug:       s.uniqueSlug(title, 0),
		Content:    input.Content,
		Summary:    strings.TrimSpace(input.Summary),
		Status:     normalizeStatus(input.Status),
		Hidden:     input.Hidden,
		CategoryID: input.CategoryID,
		UserID:     input.UserID,
	}
	applyPublishDate(&post, input.PublishedAt)

	if err := s.db.Create(&post).Error; err != nil {
		return nil, err
	}

	s.afterWrite(post.PublishedAt, nil)
	return &post, nil
}

// Update applies updates to an existing post. When the publish month
// changes both the old and the new diary key are recounted.
func (s *PostService) Update(postID string, input PostInput) (*db.Post, error) {
	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return nil, err
	}
	previousPublishedAt := post.PublishedAt

	if title := strings.TrimSpace(input.Title); title != "" && title != post.Title {
		post.Title = title
		post.Slug = s.uniqueSlug(title, post.ID)
	}
	post.Content = input.Content
	post.Summary = strings.TrimSpace(input.Summary)
	post.Status = normalizeStatus(input.Status)
	post.Hidden = input.Hidden
	post.CategoryID = input.CategoryID
	applyPublishDate(post, input.PublishedAt)

	if err := s.db.Save(post).Error; err != nil {
		return nil, err
	}

	s.afterWrite(post.PublishedAt, previousPublishedAt)
	return post, nil
}

// Delete removes a post along with its engagement rows.
func (s *PostService) Delete(postID string) error {
	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&db.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&db.PostView{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&db.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	}); err != nil {
		return err
	}

	s.afterWrite(post.PublishedAt, nil)
	return nil
}

// ToggleHidden 切换文章的隐藏状态并同步归档与缓存。
func (s *PostService) ToggleHidden(postID string) (*db.Post, error) {
	post, err := findPostByExternalID(s.db, postID)
	if err != nil {
		return nil, err
	}

	post.Hidden = !post.Hidden
	if err := s.db.Save(post).Error; err != nil {
		return nil, err
	}

	s.afterWrite(post.PublishedAt, nil)
	return post, nil
}

// afterWrite 同步失效列表缓存，并对受影响的归档月份做全量重算。
func (s *PostService) afterWrite(current, previous *time.Time) {
	if s.listings != nil {
		s.listings.InvalidateAll()
	}
	if s.diary == nil {
		return
	}
	if err := s.diary.OnPostChanged(current); err != nil {
		log.Printf("post: diary recompute failed: %v", err)
	}
	if previous != nil && !sameMonth(previous, current) {
		if err := s.diary.OnPostChanged(previous); err != nil {
			log.Printf("post: diary recompute failed for previous month: %v", err)
		}
	}
}

func sameMonth(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func applyPublishDate(post *db.Post, requested *time.Time) {
	if post.Status != "published" && post.Status != "scheduled" {
		return
	}
	when := requested
	if when == nil {
		if post.PublishedAt != nil {
			when = post.PublishedAt
		} else {
			now := time.Now()
			when = &now
		}
	}
	post.PublishedAt = when
	post.PublishedYear = when.Year()
	post.PublishedMonth = int(when.Month())
}

func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "published":
		return "published"
	case "scheduled":
		return "scheduled"
	default:
		return "draft"
	}
}

// uniqueSlug 从标题生成 slug，与现有文章冲突时追加序号。
func (s *PostService) uniqueSlug(title string, selfID uint) string {
	base := slugify(title)
	if base == "" {
		base = "post"
	}

	slug := base
	for i := 2; ; i++ {
		var count int64
		query := s.db.Model(&db.Post{}).Where("slug = ?", slug)
		if selfID > 0 {
			query = query.Where("id <> ?", selfID)
		}
		if err := query.Count(&count).Error; err != nil || count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

// CountByStatus 返回各状态的文章数量，供后台仪表盘使用。
func (s *PostService) CountByStatus() (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	if err := s.db.Model(&db.Post{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
