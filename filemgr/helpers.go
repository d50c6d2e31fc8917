package filemgr

import (
	"mime"
	"path/filepath"
	"strings"
)

// NormalizeRef turns a stored file path into the reference kept on a post:
// forward slashes, no leading "./".
func NormalizeRef(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimPrefix(p, "./")
}

// extensionFor picks the file extension for an upload from its declared
// content type, falling back to the client file name.
func extensionFor(contentType, filename string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		if ext, ok := AllowedMIMEs[mediaType]; ok {
			return ext, true
		}
		return "", false
	}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".png":
		return ext, true
	case ".jpg", ".jpeg":
		return ".jpg", true
	}
	return "", false
}
