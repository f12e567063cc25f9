package source

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

type compression string

const (
	compressionNone compression = ""
	compressionGZ   compression = ".gz"
	compressionBZ2  compression = ".bz2"
	compressionXZ   compression = ".xz"
	compressionZSTD compression = ".zst"
)

// splitExt returns the data extension and the compression suffix of path,
// e.g. "orders.csv.zst" -> (".csv", ".zst").
func splitExt(path string) (string, compression) {
	base := strings.ToLower(filepath.Base(path))
	c := compression(filepath.Ext(base))
	switch c {
	case compressionGZ, compressionBZ2, compressionXZ, compressionZSTD:
		base = strings.TrimSuffix(base, string(c))
	default:
		c = compressionNone
	}
	return filepath.Ext(base), c
}

// decompress wraps r for c. The returned close func releases decoder state
// only; it does not close r.
func decompress(r io.Reader, c compression) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	switch c {
	case compressionNone:
		return r, noop, nil
	case compressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "gzip reader")
		}
		return gz, gz.Close, nil
	case compressionBZ2:
		return bzip2.NewReader(r), noop, nil
	case compressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "xz reader")
		}
		return xr, noop, nil
	case compressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "zstd reader")
		}
		return dec, func() error {
			dec.Close()
			return nil
		}, nil
	}
	return nil, nil, errors.Errorf("unsupported compression %q", c)
}
