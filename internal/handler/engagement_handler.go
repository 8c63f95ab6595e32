package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/internal/identity"
	"github.com/inkwell/internal/service"
)

// ToggleLike 切换当前访客对文章的点赞状态。
// 防抖窗口内的重复请求返回 rateLimited 而不是错误。
func (a *API) ToggleLike(c *gin.Context) {
	postID := c.Param("id")
	visitor := identity.Resolve(c)

	result, err := a.engagement.ToggleLike(postID, visitor, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		log.Printf("engagement: toggle like failed post=%s identity=%s: %v", postID, visitor, err)
		respondError(c, http.StatusInternalServerError, "failed to toggle like")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"likes":       result.Likes,
		"userLiked":   result.UserLiked,
		"rateLimited": result.RateLimited,
	})
}

// RecordView 为当前访客记录一次文章浏览，6 小时窗口内去重。
func (a *API) RecordView(c *gin.Context) {
	postID := c.Param("id")
	visitor := identity.Resolve(c)

	views, err := a.engagement.RecordView(postID, visitor, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		log.Printf("engagement: record view failed post=%s identity=%s: %v", postID, visitor, err)
		respondError(c, http.StatusInternalServerError, "failed to record view")
		return
	}

	c.JSON(http.StatusOK, gin.H{"views": views})
}
