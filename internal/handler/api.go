package handler

import (
	"github.com/inkwell/internal/auth"
	"github.com/inkwell/internal/cache"
	"github.com/inkwell/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	listings   *cache.ListingCache
	posts      *service.PostService
	engagement *service.EngagementService
	analytics  *service.AnalyticsService
	diary      *service.DiaryService
	categories *service.CategoryService
	comments   *service.CommentService
	tokens     *auth.JWT
	uploadDir  string
	uploadURL  string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, jwtSecret, uploadDir, uploadURL string) *API {
	listings := cache.New(cache.DefaultTTL)
	diary := service.NewDiaryService(db)

	return &API{
		db:         db,
		listings:   listings,
		posts:      service.NewPostService(db, listings, diary),
		engagement: service.NewEngagementService(db, listings),
		analytics:  service.NewAnalyticsService(db),
		diary:      diary,
		categories: service.NewCategoryService(db),
		comments:   service.NewCommentService(db, listings),
		tokens:     auth.NewJWT(jwtSecret),
		uploadDir:  uploadDir,
		uploadURL:  uploadURL,
	}
}
