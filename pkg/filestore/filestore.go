package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alorbach/sunostyle/pkg/filestore/local"
	"github.com/alorbach/sunostyle/pkg/filestore/s3"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
}

// Store mirrors generated artifacts to a local directory or an s3 bucket.
type Store struct {
	fs fs
}

// Set uploads the file at path under the given key.
func (s *Store) Set(ctx context.Context, path, key string) error {
	return s.fs.Upload(ctx, path, key)
}

// Get downloads the file with the given key to path.
func (s *Store) Get(ctx context.Context, path, key string) error {
	return s.fs.Download(ctx, path, key)
}

// New creates a store.
// For s3 the connection string is "key:secret@bucket.region", for local it
// is the destination directory.
func New(typ, conn string, debug bool) (*Store, error) {
	var fs fs
	switch typ {
	case "s3":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		auth := strings.Split(split[0], ":")
		if len(auth) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
		}
		key := auth[0]
		secret := auth[1]
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		bucket := loc[0]
		region := loc[1]
		candidate, err := s3.New(key, secret, region, bucket, debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		if conn == "" {
			return nil, fmt.Errorf("filestore: empty local directory")
		}
		fs = local.New(conn, debug)
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}

// Key returns the slash separated key of path relative to root.
// Files outside root are keyed by their base name.
func Key(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
