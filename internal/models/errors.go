package models

import "errors"

var (
	// ErrNotFound is returned by repositories when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a row with the same natural key already exists.
	ErrDuplicate = errors.New("record already exists")
)
