package filemgr

import (
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Store keeps post images under root/dir and hands out references relative
// to root, e.g. "images/3f2b....png".
type Store struct {
	root string
	dir  string
}

func NewStore(root, dir string) *Store {
	return &Store{root: root, dir: strings.Trim(NormalizeRef(dir), "/")}
}

// Dir is the directory files are written to.
func (s *Store) Dir() string {
	return filepath.Join(s.root, filepath.FromSlash(s.dir))
}

func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.Dir(), 0755)
}

// Save decodes the uploaded image and writes it under a fresh name.
func (s *Store) Save(header *multipart.FileHeader) (string, error) {
	ext, ok := extensionFor(header.Header.Get("Content-Type"), header.Filename)
	if !ok {
		return "", ErrUnsupportedType
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if err := s.EnsureDir(); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}

	name := uuid.NewString() + ext
	if err := imaging.Save(img, filepath.Join(s.Dir(), name)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return NormalizeRef(s.dir + "/" + name), nil
}

// resolve maps a reference to its file on disk, refusing anything that
// points outside the image directory.
func (s *Store) resolve(ref string) (string, error) {
	ref = NormalizeRef(ref)
	full := filepath.Join(s.root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(s.Dir(), full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrOutsideStore
	}
	return full, nil
}

// RemoveNow deletes the file behind ref.
func (s *Store) RemoveNow(ref string) error {
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Remove deletes the file behind ref in the background; failures are only
// logged.
func (s *Store) Remove(ref string) {
	if ref == "" {
		return
	}
	go func() {
		if err := s.RemoveNow(ref); err != nil {
			log.Printf("[filemgr] failed to remove %s: %v", ref, err)
			return
		}
		log.Printf("[filemgr] removed %s", ref)
	}()
}
