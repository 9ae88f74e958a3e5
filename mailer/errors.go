package mailer

import "errors"

var (
	ErrFailedToSend  = errors.New("mailer: failed to send certificate")
	ErrInvalidConfig = errors.New("mailer: invalid config")
	ErrInvalidParams = errors.New("mailer: invalid dispatch")
)
