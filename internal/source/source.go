// Package source opens the workbook an import reads from.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/tinoosan/treasury/internal/errs"
)

// Source yields the bytes of one workbook.
type Source interface {
	// Name identifies the workbook in import provenance, e.g. a file base name.
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// File reads a workbook from the local filesystem.
type File struct {
	Path string
}

func (f File) Name() string { return filepath.Base(f.Path) }

func (f File) Open(context.Context) (io.ReadCloser, error) {
	rc, err := os.Open(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.KindFileNotFound, err, "workbook %s not found", f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", f.Path, err)
	}
	return rc, nil
}

// Bytes serves an already uploaded workbook.
type Bytes struct {
	Filename string
	Data     []byte
}

func (b Bytes) Name() string { return b.Filename }

func (b Bytes) Open(context.Context) (io.ReadCloser, error) {
	if len(b.Data) == 0 {
		return nil, errs.New(errs.KindFileNotFound, "uploaded workbook %s is empty", b.Filename)
	}
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// GCS reads a workbook object from Google Cloud Storage with application
// default credentials.
type GCS struct {
	Bucket string
	Object string
}

func (g GCS) Name() string { return "gs://" + g.Bucket + "/" + g.Object }

func (g GCS) Open(ctx context.Context) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	r, err := client.Bucket(g.Bucket).Object(g.Object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		client.Close()
		return nil, errs.Wrap(errs.KindFileNotFound, err, "workbook %s not found", g.Name())
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (g *gcsReader) Close() error {
	err := g.Reader.Close()
	if cerr := g.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// Resolve maps a path or gs://bucket/object URI to a Source.
func Resolve(uri string) (Source, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errs.New(errs.KindInvalid, "workbook location is required")
	}
	if rest, ok := strings.CutPrefix(uri, "gs://"); ok {
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return nil, errs.New(errs.KindInvalid, "invalid GCS uri %q: want gs://bucket/object", uri)
		}
		return GCS{Bucket: bucket, Object: object}, nil
	}
	return File{Path: uri}, nil
}

// ResolveWithin is Resolve for callers that must not reach arbitrary local
// files. gs:// URIs pass through. Local paths are accepted only when dir is
// set, must be relative and may not climb out of dir.
func ResolveWithin(uri, dir string) (Source, error) {
	src, err := Resolve(uri)
	if err != nil {
		return nil, err
	}
	f, ok := src.(File)
	if !ok {
		return src, nil
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errs.New(errs.KindInvalid, "local workbook paths are not accepted; use gs://bucket/object or upload the file")
	}
	rel := filepath.Clean(filepath.FromSlash(f.Path))
	if !filepath.IsLocal(rel) {
		return nil, errs.New(errs.KindInvalid, "workbook path %q must be relative to the import directory", f.Path)
	}
	return File{Path: filepath.Join(dir, rel)}, nil
}
