package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	PROFILE_PICS = "profile_pics"
	BUG_IMAGES   = "bugs"
)

// URLPrefix is where stored blobs are served from.
const URLPrefix = "/media/"

var ErrUnknownKind = errors.New("unknown media kind")

type Store interface {
	// Save writes the blob and returns the reference clients store on
	// their records.
	Save(kind, filename string, r io.Reader) (string, error)
	Open(ref string) (io.ReadCloser, error)
}

// DiskStore keeps blobs under Root/<kind>/.
type DiskStore struct {
	Root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	for _, kind := range []string{PROFILE_PICS, BUG_IMAGES} {
		if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", kind, err)
		}
	}
	return &DiskStore{Root: root}, nil
}

func ValidKind(kind string) bool {
	return kind == PROFILE_PICS || kind == BUG_IMAGES
}

func (s *DiskStore) Save(kind, filename string, r io.Reader) (string, error) {
	if !ValidKind(kind) {
		return "", ErrUnknownKind
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.Root, kind, name))
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	return URLPrefix + path.Join(kind, name), nil
}

func (s *DiskStore) Open(ref string) (io.ReadCloser, error) {
	rel := strings.TrimPrefix(ref, URLPrefix)
	clean := path.Clean("/" + rel)[1:]

	kind, _, ok := strings.Cut(clean, "/")
	if !ok || !ValidKind(kind) {
		return nil, ErrUnknownKind
	}

	return os.Open(filepath.Join(s.Root, filepath.FromSlash(clean)))
}
