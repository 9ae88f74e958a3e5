package registry

import "errors"

var (
	ErrNotLoaded      = errors.New("registry: dataset not loaded")
	ErrLoadFailed     = errors.New("registry: failed to load dataset")
	ErrInvalidDataset = errors.New("registry: invalid dataset")
	ErrNoObjectClient = errors.New("registry: s3 source requires an object client")
)
