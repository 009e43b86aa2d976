package fetcher

import (
	"compress/gzip"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// GunzipFile decompresses a gzip file to destPath and returns the number of
// decompressed bytes written.
func GunzipFile(srcPath, destPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, eris.Wrap(err, "gzip: open source")
	}
	defer src.Close() //nolint:errcheck

	gz, err := gzip.NewReader(src)
	if err != nil {
		return 0, eris.Wrap(err, "gzip: open reader")
	}
	defer gz.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return 0, eris.Wrap(err, "gzip: create destination")
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, gz)
	if err != nil {
		return n, eris.Wrap(err, "gzip: decompress")
	}

	if err := out.Sync(); err != nil {
		return n, eris.Wrap(err, "gzip: sync destination")
	}

	return n, nil
}
