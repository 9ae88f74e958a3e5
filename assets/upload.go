package assets

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultMaxUploadBytes is the default size limit for uploaded template images.
const DefaultMaxUploadBytes int64 = 5 << 20

// DefaultAllowedTypes lists the template image types accepted on upload.
var DefaultAllowedTypes = []string{"image/png", "image/jpeg"}

// UploadPolicy bounds what can enter the template pipeline.
type UploadPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultUploadPolicy returns the stock limits.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{MaxBytes: DefaultMaxUploadBytes, AllowedTypes: DefaultAllowedTypes}
}

// Validate checks the size and sniffed content type of an uploaded file and returns
// its content. Rejections carry a user-facing reason and a text code.
func (p UploadPolicy) Validate(fh *multipart.FileHeader) ([]byte, error) {
	if fh == nil {
		return nil, goerrors.New("no file was uploaded", goerrors.CategoryValidation).
			WithTextCode("FILE_REQUIRED")
	}
	if err := p.checkSize(fh.Size); err != nil {
		return nil, err
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Size header may be missing for streamed parts; read one byte past the limit.
	data, err := io.ReadAll(io.LimitReader(file, p.maxBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := p.ValidateBytes(data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateBytes applies the policy to already-read content.
func (p UploadPolicy) ValidateBytes(data []byte) error {
	if len(data) == 0 {
		return goerrors.New("the uploaded file is empty", goerrors.CategoryValidation).
			WithTextCode("FILE_EMPTY")
	}
	if err := p.checkSize(int64(len(data))); err != nil {
		return err
	}
	mimeType := http.DetectContentType(data[:min(len(data), 512)])
	allowed := p.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	if !slices.Contains(allowed, mimeType) {
		return goerrors.New(
			fmt.Sprintf("file type %s is not supported, upload one of %v", mimeType, allowed),
			goerrors.CategoryValidation,
		).WithTextCode("UNSUPPORTED_TYPE")
	}
	return nil
}

func (p UploadPolicy) checkSize(size int64) error {
	if size > p.maxBytes() {
		return goerrors.New(
			fmt.Sprintf("file is %d bytes, which exceeds the %d bytes limit", size, p.maxBytes()),
			goerrors.CategoryValidation,
		).WithTextCode("FILE_TOO_LARGE")
	}
	return nil
}

func (p UploadPolicy) maxBytes() int64 {
	if p.MaxBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return p.MaxBytes
}
