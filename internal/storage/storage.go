// Package storage is the blob store behind the file upload and download routes.
package storage

import (
	"errors"
	"path"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrInvalidType     = errors.New("invalid file type")
	ErrInvalidFilename = errors.New("invalid filename")
)

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 100 << 20

type FileType string

const (
	FileTypeVideo    FileType = "video"
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeAudio    FileType = "audio"
)

func (t FileType) Valid() bool {
	switch t {
	case FileTypeVideo, FileTypeImage, FileTypeDocument, FileTypeAudio:
		return true
	}
	return false
}

type Object struct {
	Filename    string    `json:"filename"`
	Type        FileType  `json:"fileType"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

// Validate rejects unknown file types and filenames that could escape their directory.
func Validate(fileType FileType, filename string) error {
	if !fileType.Valid() {
		return ErrInvalidType
	}
	if filename == "" || filename == "." ||
		strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\`) {
		return ErrInvalidFilename
	}
	return nil
}

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// StoredName prefixes the client's name with the upload time so repeated uploads do not collide.
func StoredName(original string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))
	base = strings.ReplaceAll(base, "..", "")
	if base == "" || base == "." || base == "/" {
		base = "upload.bin"
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + base
}
