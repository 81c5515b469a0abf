package images

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxImageSize bounds the decoded size of an inline image
const MaxImageSize = 10 << 20 // 10 MB

var (
	ErrInvalidDataURL = errors.New("invalid image data url")
	ErrImageTooLarge  = errors.New("image too large")
)

var dataURLPattern = regexp.MustCompile(`^data:image/([a-zA-Z0-9+.-]+);base64,(.+)$`)

// Store writes inline images to a directory served under baseURL
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates the storage directory if needed
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory images are written to
func (s *Store) Dir() string {
	return s.dir
}

// IsDataURL reports whether value is an inline base64 image
func IsDataURL(value string) bool {
	return strings.HasPrefix(value, "data:image/")
}

// Save decodes a data URL and writes it as {owner}-{random}.{ext}.
// It returns the public URL of the written file.
func (s *Store) Save(dataURL, owner string) (string, error) {
	m := dataURLPattern.FindStringSubmatch(dataURL)
	if m == nil {
		return "", ErrInvalidDataURL
	}

	ext := strings.ToLower(m[1])
	if i := strings.IndexAny(ext, "+."); i > 0 {
		ext = ext[:i]
	}

	payload, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(payload) > MaxImageSize {
		return "", ErrImageTooLarge
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s.%s", filepath.Base(owner), hex.EncodeToString(suffix), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// Resolve stores value when it is a data URL and passes anything else
// through unchanged.
func (s *Store) Resolve(value, owner string) (string, error) {
	if !IsDataURL(value) {
		return value, nil
	}
	return s.Save(value, owner)
}

// Delete removes a file previously returned by Save. URLs that do not
// point into this store are ignored, as are files already gone.
func (s *Store) Delete(url string) error {
	if url == "" || !strings.HasPrefix(url, s.baseURL+"/") {
		return nil
	}

	name := path.Base(url)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
