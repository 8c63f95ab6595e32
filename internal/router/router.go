package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/inkwell/internal/handler"
	"gorm.io/gorm"
)

// Options 汇总构建路由所需的配置。
type Options struct {
	SessionSecret string
	JWTSecret     string
	UploadDir     string
	UploadURLPath string
}

// Setup 配置 Gin 引擎和路由。
func Setup(gdb *gorm.DB, opts Options) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	r.Use(sessions.Sessions("inkwell_session", store))

	api := handler.NewAPI(gdb, opts.JWTSecret, opts.UploadDir, opts.UploadURLPath)

	r.Static(opts.UploadURLPath, "./"+opts.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// 公共接口：身份解析依赖可选认证中间件
	public := r.Group("/api")
	public.Use(api.OptionalAuth())
	{
		public.POST("/auth/login", api.Login)
		public.GET("/auth/logout", api.Logout)

		public.GET("/posts", api.ListPublishedPosts)
		public.GET("/posts/:id", api.GetPost)
		public.POST("/posts/:id/toggle-like", api.ToggleLike)
		public.POST("/posts/:id/view", api.RecordView)

		public.GET("/posts/:id/comments", api.ListComments)
		public.POST("/posts/:id/comments", api.CreateComment)

		public.GET("/categories", api.ListCategories)
		public.GET("/diary", api.ListDiary)

		public.POST("/analytics/track", api.Track)
	}

	// 后台接口：需要认证
	admin := r.Group("/api/admin")
	admin.Use(api.AuthRequired())
	{
		admin.GET("/dashboard", api.Dashboard)

		admin.GET("/posts", api.ListAllPosts)
		admin.POST("/posts", api.CreatePost)
		admin.PUT("/posts/:id", api.UpdatePost)
		admin.DELETE("/posts/:id", api.DeletePost)
		admin.POST("/posts/:id/toggle-hide", api.ToggleHidePost)

		admin.POST("/categories", api.CreateCategory)
		admin.PUT("/categories/:id", api.UpdateCategory)
		admin.DELETE("/categories/:id", api.DeleteCategory)

		admin.DELETE("/comments/:id", api.DeleteComment)

		admin.POST("/diary/rebuild", api.RebuildDiary)

		admin.GET("/analytics/site-stats", api.SiteStats)
		admin.GET("/analytics/posts/:id", api.PostStats)
		admin.GET("/analytics/top-posts", api.TopPosts)
		admin.GET("/analytics/realtime", api.Realtime)

		admin.POST("/upload/image", api.UploadImage)
	}

	return r
}
