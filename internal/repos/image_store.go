package repos

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"stockroom/internal/domain"
)

// ImageRefPrefix is the collection-root-relative directory recorded on products.
const ImageRefPrefix = "images/"

// ImageStore keeps uploaded product images as plain files in one directory.
type ImageStore struct{ dir string }

func NewImageStore(dir string) *ImageStore { return &ImageStore{dir: dir} }

func (s *ImageStore) Dir() string { return s.dir }

// Put writes data under the base name of filename and returns the product
// reference. created is false when an existing file was overwritten.
func (s *ImageStore) Put(filename string, data []byte) (ref string, created bool, err error) {
	name := filepath.Base(filepath.Clean("/" + filepath.ToSlash(filename)))
	if name == "/" || name == "." || name == "" {
		return "", false, &domain.ValidationError{Field: "image", Reason: "missing file name"}
	}
	// only store names Resolve maps back to the same file
	if full, err := s.localPath(name); err != nil || full != filepath.Join(s.dir, name) {
		return "", false, &domain.ValidationError{Field: "image", Reason: "unusable file name " + name}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", false, &domain.StorageError{Op: "create image dir", Err: err}
	}
	full := filepath.Join(s.dir, name)
	_, statErr := os.Stat(full)
	created = errors.Is(statErr, fs.ErrNotExist)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", false, &domain.StorageError{Op: "write image", Err: err}
	}
	return ImageRefPrefix + name, created, nil
}

// Remove deletes the file behind ref. A missing file is not an error.
func (s *ImageStore) Remove(ref string) error {
	full, err := s.localPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &domain.StorageError{Op: "remove image", Err: err}
	}
	return nil
}

// Resolve maps a product image reference (or a bare file name) to a path
// inside the image directory. Traversal attempts resolve to NotFound.
func (s *ImageStore) Resolve(ref string) (string, error) {
	full, err := s.localPath(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", &domain.NotFoundError{Resource: "image", Key: ref}
	}
	return full, nil
}

// localPath maps ref to a file directly inside the image directory. Any
// ".." segment, plain or percent-encoded, is refused; dots inside a name
// (lamp..v2.png) are fine.
func (s *ImageStore) localPath(ref string) (string, error) {
	notFound := &domain.NotFoundError{Resource: "image", Key: ref}
	decoded, err := url.PathUnescape(ref)
	if err != nil || strings.ContainsRune(decoded, 0) {
		return "", notFound
	}
	rel := strings.TrimPrefix(strings.ReplaceAll(decoded, "\\", "/"), ImageRefPrefix)
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", notFound
		}
	}
	name := path.Base(rel)
	if name == "." || name == "/" || name == "" {
		return "", notFound
	}
	full := filepath.Join(s.dir, name)
	if r, err := filepath.Rel(s.dir, full); err != nil || r != name {
		return "", notFound
	}
	return full, nil
}
