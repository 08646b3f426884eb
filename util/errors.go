package util

import "errors"

// Sentinel errors shared by the storage, import and analysis layers.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnsupportedDevice = errors.New("unsupported device type")
	ErrParseFailed       = errors.New("parse failed")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrLockTimeout       = errors.New("lock not acquired")
)
