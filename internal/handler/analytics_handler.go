package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inkwell/internal/identity"
	"github.com/inkwell/internal/service"
)

type trackRequest struct {
	PostID      string   `json:"postId"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	SessionID   string   `json:"sessionId"`
	VisitorID   string   `json:"visitorId"`
	TimeOnPage  *int     `json:"timeOnPage"`
	ScrollDepth *float64 `json:"scrollDepth"`
}

// Track 接收前端上报的页面浏览事件。机器人流量返回 filtered 标记，
// 对调用方而言依然是成功。
func (a *API) Track(c *gin.Context) {
	var req trackRequest
	if !bindJSON(c, &req, "invalid track payload") {
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	input := service.PageViewInput{
		PostID:       req.PostID,
		URL:          req.URL,
		Title:        req.Title,
		Identity:     identity.Resolve(c),
		SessionID:    sessionID,
		VisitorToken: req.VisitorID,
		IPAddress:    identity.ClientIP(c),
		UserAgent:    c.GetHeader("User-Agent"),
		Referrer:     c.GetHeader("Referer"),
		TimeOnPage:   req.TimeOnPage,
		ScrollDepth:  req.ScrollDepth,
	}

	view, err := a.analytics.Record(input, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrInvalidURL) {
			respondError(c, http.StatusBadRequest, "valid url is required")
			return
		}
		log.Printf("analytics: track failed url=%s identity=%s: %v", req.URL, input.Identity, err)
		respondError(c, http.StatusInternalServerError, "analytics tracking failed")
		return
	}

	if view == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "filtered": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"visitorId": view.Identity,
		"sessionId": view.SessionID,
	})
}

// SiteStats 返回全站浏览统计。
func (a *API) SiteStats(c *gin.Context) {
	stats, err := a.analytics.Stats(time.Now())
	if err != nil {
		log.Printf("analytics: site stats failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to load site stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PostStats 返回指定文章近 N 天的逐日浏览量。
func (a *API) PostStats(c *gin.Context) {
	days := parsePositiveInt(c.DefaultQuery("days", "7"), 7)
	points, err := a.analytics.PostDailyViews(c.Param("id"), days, time.Now())
	if err != nil {
		log.Printf("analytics: post stats failed post=%s: %v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, "failed to load post stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"dailyViews": points})
}

// TopPosts 返回热门文章排行。
func (a *API) TopPosts(c *gin.Context) {
	limit := parsePositiveInt(c.DefaultQuery("limit", "10"), 10)
	top, err := a.analytics.TopPosts(limit)
	if err != nil {
		log.Printf("analytics: top posts failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to load top posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": top})
}

// Realtime 返回近 5 分钟活跃访客等实时数据。
func (a *API) Realtime(c *gin.Context) {
	stats, err := a.analytics.Realtime(time.Now())
	if err != nil {
		log.Printf("analytics: realtime failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to load realtime stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
