package controllers

import (
	"errors"
	"net/http"
)

var (
	ErrStockNotFound  = errors.New("stock not found")
	ErrStockExists    = errors.New("stock already exists")
	ErrBrokerNotFound = errors.New("broker not found")
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrStockNotFound), errors.Is(err, ErrBrokerNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStockExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
