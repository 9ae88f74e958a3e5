package export

import "errors"

var (
	ErrNoImage        = errors.New("export: rendered image is required")
	ErrNoTemplateType = errors.New("export: template type is required")
	ErrEncodeFailed   = errors.New("export: failed to encode certificate")
	ErrStoreFailed    = errors.New("export: failed to store certificate")
	ErrUnknownFormat  = errors.New("export: unknown image format")
)
