package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/internal/identity"
	"github.com/inkwell/internal/service"
)

type postRequest struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Summary     string     `json:"summary"`
	Status      string     `json:"status"`
	Hidden      bool       `json:"hidden"`
	CategoryID  *uint      `json:"categoryId"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// ListPublishedPosts 返回公开的文章列表，经由列表缓存。
func (a *API) ListPublishedPosts(c *gin.Context) {
	filter := service.PostFilter{
		Search:  strings.TrimSpace(c.Query("search")),
		Status:  "published",
		Page:    parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage: parsePositiveInt(c.DefaultQuery("perPage", "10"), 10),
	}

	result, err := a.posts.List(filter)
	if err != nil {
		log.Printf("post: list failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListAllPosts 供后台使用，可按状态过滤并包含隐藏文章。
func (a *API) ListAllPosts(c *gin.Context) {
	filter := service.PostFilter{
		Search:        strings.TrimSpace(c.Query("search")),
		Status:        strings.TrimSpace(c.Query("status")),
		IncludeHidden: true,
		Page:          parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage:       parsePositiveInt(c.DefaultQuery("perPage", "20"), 20),
	}

	result, err := a.posts.List(filter)
	if err != nil {
		log.Printf("post: admin list failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPost 返回文章详情，附带渲染后的 HTML 与当前访客的点赞状态。
func (a *API) GetPost(c *gin.Context) {
	post, err := a.posts.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		log.Printf("post: get failed post=%s: %v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, "failed to load post")
		return
	}

	visitor := identity.Resolve(c)
	liked, err := a.engagement.HasLiked(post.PostID, visitor)
	if err != nil {
		liked = false
	}

	c.JSON(http.StatusOK, gin.H{
		"post":      post,
		"html":      service.RenderMarkdown(post.Content),
		"userLiked": liked,
	})
}

// CreatePost 创建文章。
func (a *API) CreatePost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req, "invalid post payload") {
		return
	}

	userID, _ := c.Get(identity.ContextUserKey)
	uid, _ := userID.(uint)

	post, err := a.posts.Create(service.PostInput{
		Title:       req.Title,
		Content:     req.Content,
		Summary:     req.Summary,
		Status:      req.Status,
		Hidden:      req.Hidden,
		CategoryID:  req.CategoryID,
		UserID:      uid,
		PublishedAt: req.PublishedAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("post: create failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost 更新文章。
func (a *API) UpdatePost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req, "invalid post payload") {
		return
	}

	post, err := a.posts.Update(c.Param("id"), service.PostInput{
		Title:       req.Title,
		Content:     req.Content,
		Summary:     req.Summary,
		Status:      req.Status,
		Hidden:      req.Hidden,
		CategoryID:  req.CategoryID,
		PublishedAt: req.PublishedAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("post: update failed post=%s: %v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, "failed to update post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost 删除文章及其互动数据。
func (a *API) DeletePost(c *gin.Context) {
	if err := a.posts.Delete(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		log.Printf("post: delete failed post=%s: %v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, "failed to delete post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ToggleHidePost 切换文章隐藏状态。
func (a *API) ToggleHidePost(c *gin.Context) {
	post, err := a.posts.ToggleHidden(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		log.Printf("post: toggle hide failed post=%s: %v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, "failed to toggle post visibility")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hidden": post.Hidden})
}
