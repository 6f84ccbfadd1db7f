package domain

import "errors"

var (
	ErrImageTypeNotSupported = errors.New("image type not supported")
	ErrImageTooLarge         = errors.New("image too large")
	ErrImageEmpty            = errors.New("image empty")
	ErrImageInvalid          = errors.New("image invalid")

	// ErrUploadFailed is returned when the object store rejects or cannot take an upload.
	ErrUploadFailed = errors.New("image upload failed")
)
