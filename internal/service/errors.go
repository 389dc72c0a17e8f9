package service

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrImageProcessing = errors.New("image processing failed")
)
