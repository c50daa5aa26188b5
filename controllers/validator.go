package controllers

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation constants
const (
	MaxPageSize   = 100
	MaxUploadSize = 50 * 1024 * 1024 // 50MB
)

var allowedCSVExtensions = map[string]bool{
	".csv": true,
	".txt": true,
}

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(),
	}
}

// ValidateStruct runs tag-based validation on a bound request struct.
func (rv *RequestValidator) ValidateStruct(v interface{}) error {
	if err := rv.validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// IsValidCSVFile checks the upload's extension.
func (rv *RequestValidator) IsValidCSVFile(file *multipart.FileHeader) bool {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	return allowedCSVExtensions[ext]
}

// ValidateFileSize enforces the upload size cap.
func (rv *RequestValidator) ValidateFileSize(file *multipart.FileHeader) error {
	if file.Size > MaxUploadSize {
		return fmt.Errorf("file too large: max %d bytes", MaxUploadSize)
	}
	return nil
}
