package assets

import "errors"

var (
	ErrTemplateNotFound = errors.New("template image not found")
	ErrDecodeFailed     = errors.New("failed to decode template image")
	ErrFetchFailed      = errors.New("failed to fetch template image")
	ErrInvalidPath      = errors.New("invalid template image path")
)
