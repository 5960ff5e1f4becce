package drive

import (
	"path"
	"strings"
)

// DefaultMimeType is used for extensions MimeTypeFor does not know.
const DefaultMimeType = "application/octet-stream"

var mimeByExtension = map[string]string{
	"txt":  "text/plain",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// MimeTypeFor picks a MIME type from a file name's extension.
func MimeTypeFor(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if mt, ok := mimeByExtension[ext]; ok {
		return mt
	}

	return DefaultMimeType
}
