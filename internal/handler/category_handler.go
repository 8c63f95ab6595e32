package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/internal/service"
)

type categoryRequest struct {
	Name string `json:"name"`
}

// ListCategories 返回分类及其文章数。
func (a *API) ListCategories(c *gin.Context) {
	stats, err := a.categories.ListWithCounts()
	if err != nil {
		log.Printf("category: list failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": stats})
}

// CreateCategory 创建分类。
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}

	category, err := a.categories.Create(req.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("category: create failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory 重命名分类。
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req categoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}

	category, err := a.categories.Rename(id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "category not found")
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("category: update failed id=%d: %v", id, err)
			respondError(c, http.StatusInternalServerError, "failed to update category")
		}
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory 删除分类并解除文章关联。
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.categories.Delete(id); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "category not found")
			return
		}
		log.Printf("category: delete failed id=%d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "failed to delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
