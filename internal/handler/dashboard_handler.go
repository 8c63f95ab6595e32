package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard 返回后台概览：各状态的文章数与当前列表缓存条目数。
func (a *API) Dashboard(c *gin.Context) {
	counts, err := a.posts.CountByStatus()
	if err != nil {
		log.Printf("dashboard: post counts failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"postCounts":     counts,
		"cachedListings": a.listings.Len(),
	})
}
