package chat

import (
	"path/filepath"
	"strings"

	"duochat/internal/app/storage"
	"duochat/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB bounds an attachment in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize bounds an attachment in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024
)

// imageTypes maps accepted file extensions to the MIME type they must carry.
var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// MIMEFromName returns the image MIME type implied by fileName's extension, or "".
func MIMEFromName(fileName string) string {
	return imageTypes[strings.ToLower(filepath.Ext(fileName))]
}

// ValidateFileSize rejects empty files and files over MaxAttachmentSize.
func ValidateFileSize(size int64) *errs.CustomError {
	switch {
	case size <= 0:
		return errs.NewError(errs.ErrInvalidParams)
	case size > MaxAttachmentSize:
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxAttachmentSizeMB)
	}
	return nil
}

// ValidateAttachment checks that f is a non-empty image whose declared MIME type
// matches its extension and whose size is within bounds.
func ValidateAttachment(f *storage.File) *errs.CustomError {
	if f == nil || f.Body == nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	want := MIMEFromName(f.Name)
	if want == "" || !strings.EqualFold(want, f.MimeType) {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return ValidateFileSize(f.Size)
}
