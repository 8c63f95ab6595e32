package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListDiary 返回年月归档列表。
func (a *API) ListDiary(c *gin.Context) {
	entries, err := a.diary.ActiveEntries()
	if err != nil {
		log.Printf("diary: list failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to load diary")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// RebuildDiary 从文章表全量重建归档索引。
func (a *API) RebuildDiary(c *gin.Context) {
	if err := a.diary.RecomputeAll(); err != nil {
		log.Printf("diary: rebuild failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to rebuild diary")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
