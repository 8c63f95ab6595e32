package service

import "errors"

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrInvalidURL       = errors.New("invalid or missing url")
	ErrInvalidInput     = errors.New("invalid input")
)
