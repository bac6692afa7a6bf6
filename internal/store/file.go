package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

// FileSource reads a JSON or YAML scene export and an optional catalog.
type FileSource struct {
	Path        string
	CatalogPath string
}

func (s *FileSource) Describe() string { return "file:" + s.Path }

// Load decodes the files on every call so edits are picked up on reload.
func (s *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := decodeFile(s.Path, facility.Decode)
	if err != nil {
		return nil, err
	}
	catalog := facility.Catalog{}
	if s.CatalogPath != "" {
		catalog, err = decodeFile(s.CatalogPath, facility.DecodeCatalog)
		if err != nil {
			return nil, err
		}
	}
	return &Snapshot{Config: cfg, Catalog: catalog}, nil
}

func decodeFile[T any](path string, decode func(io.Reader, facility.Format) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	v, err := decode(f, facility.FormatForPath(path))
	if err != nil {
		return zero, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}
