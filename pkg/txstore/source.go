package txstore

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eunmann/huimine/pkg/s3fetch"
)

// ObjectStreamer opens remote objects. *s3fetch.Client satisfies it.
type ObjectStreamer interface {
	StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Open returns a reader for the transaction source named by uri:
// "-" for stdin, "s3://bucket/key" for an S3 object, anything else is a
// local path. Sources ending in ".gz" are decompressed. remote may be nil
// when uri is not an S3 URI.
func Open(ctx context.Context, uri string, remote ObjectStreamer) (io.ReadCloser, error) {
	var rc io.ReadCloser

	switch {
	case uri == "-":
		rc = io.NopCloser(os.Stdin)
	case strings.HasPrefix(uri, "s3://"):
		if remote == nil {
			return nil, fmt.Errorf("%w: no S3 client for %s", ErrInputUnavailable, uri)
		}
		bucket, key, err := s3fetch.ParseS3URI(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputUnavailable, err)
		}
		rc, err = remote.StreamObject(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputUnavailable, err)
		}
	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputUnavailable, err)
		}
		rc = f
	}

	if !strings.HasSuffix(uri, ".gz") {
		return rc, nil
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%w: open gzip %s: %w", ErrInputUnavailable, uri, err)
	}
	return &gzipReadCloser{Reader: gz, underlying: rc}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return gzErr
}

// Load opens uri and parses it into a Store.
func Load(ctx context.Context, uri string, remote ObjectStreamer) (*Store, error) {
	rc, err := Open(ctx, uri, remote)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	store, err := Parse(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", uri, err)
	}
	return store, nil
}
