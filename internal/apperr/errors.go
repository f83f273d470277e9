// Package apperr holds the sentinel errors shared across docview packages.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidDocumentID = errors.New("invalid document id")
)
