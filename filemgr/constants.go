package filemgr

import "errors"

var (
	AllowedMIMEs = map[string]string{
		"image/png":  ".png",
		"image/jpg":  ".jpg",
		"image/jpeg": ".jpg",
	}

	ErrUnsupportedType = errors.New("unsupported image type")
	ErrInvalidImage    = errors.New("file is not a decodable image")
	ErrOutsideStore    = errors.New("path escapes the image directory")
)
