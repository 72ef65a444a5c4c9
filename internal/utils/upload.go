package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ValidateUpload checks size and extension before anything is written to disk.
func ValidateUpload(file *multipart.FileHeader, maxSize int64, allowedExts []string) error {
	if file.Size > maxSize {
		return fmt.Errorf("file exceeds maximum size of %d bytes", maxSize)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))

	for _, allowed := range allowedExts {
		if ext == allowed {
			return nil
		}
	}

	return fmt.Errorf("file type %q is not allowed", ext)
}

// SaveUpload stores the file under dir with a random name, keeping only the
// original extension. Returns the stored path.
func SaveUpload(ctx *gin.Context, file *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	path := filepath.Join(dir, uuid.NewString()+ext)

	if err := ctx.SaveUploadedFile(file, path); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	return path, nil
}
