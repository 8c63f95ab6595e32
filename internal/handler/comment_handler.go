package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/internal/service"
)

type commentRequest struct {
	AuthorName string `json:"authorName"`
	Email      string `json:"email"`
	Body       string `json:"body"`
}

// ListComments 返回文章的评论列表。
func (a *API) ListComments(c *gin.Context) {
	comments, err := a.comments.ListForPost(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "post not found")
			return
		}
		log.Printf("comment: list failed post=%s: %v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, "failed to list comments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateComment 为文章添加评论。
func (a *API) CreateComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req, "invalid comment payload") {
		return
	}

	comment, err := a.comments.Create(c.Param("id"), service.CommentInput{
		AuthorName: req.AuthorName,
		Email:      req.Email,
		Body:       req.Body,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			respondError(c, http.StatusNotFound, "post not found")
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("comment: create failed post=%s: %v", c.Param("id"), err)
			respondError(c, http.StatusInternalServerError, "failed to create comment")
		}
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment 删除评论（后台）。
func (a *API) DeleteComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.comments.Delete(id); err != nil {
		if errors.Is(err, service.ErrCommentNotFound) {
			respondError(c, http.StatusNotFound, "comment not found")
			return
		}
		log.Printf("comment: delete failed id=%d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
