package host

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zicongmei/gke-byo-node/internal/retry"
)

// Fetcher downloads release artifacts onto the host.
type Fetcher interface {
	// Get downloads a single file to dest with the given mode. The write is
	// atomic: the file appears at dest only once fully downloaded.
	Get(ctx context.Context, url, dest string, mode os.FileMode) error

	// GetTar downloads a gzipped tarball and unpacks it under destDir.
	GetTar(ctx context.Context, url, destDir string) error
}

// HTTPFetcher fetches artifacts over HTTP(S). Transient failures are
// retried with backoff; client errors such as a 404 for a bad version
// pin are not.
type HTTPFetcher struct {
	Client *http.Client
	Retry  []retry.Option
}

// NewHTTPFetcher returns a fetcher with a generous timeout suitable for
// release tarball downloads.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Minute}}
}

// Get implements Fetcher.
func (f *HTTPFetcher) Get(ctx context.Context, url, dest string, mode os.FileMode) error {
	return retry.Do(ctx, func() error {
		return f.get(ctx, url, dest, mode)
	}, f.Retry...)
}

func (f *HTTPFetcher) get(ctx context.Context, url, dest string, mode os.FileMode) error {
	body, err := f.open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return retry.Permanent(fmt.Errorf("creating %s: %w", filepath.Dir(dest), err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".download-*")
	if err != nil {
		return retry.Permanent(fmt.Errorf("creating temp file for %s: %w", dest, err))
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return retry.Permanent(fmt.Errorf("setting mode on %s: %w", dest, err))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return retry.Permanent(fmt.Errorf("placing %s: %w", dest, err))
	}
	return nil
}

// GetTar implements Fetcher.
func (f *HTTPFetcher) GetTar(ctx context.Context, url, destDir string) error {
	return retry.Do(ctx, func() error {
		return f.getTar(ctx, url, destDir)
	}, f.Retry...)
}

func (f *HTTPFetcher) getTar(ctx context.Context, url, destDir string) error {
	body, err := f.open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return retry.Permanent(fmt.Errorf("creating %s: %w", destDir, err))
	}

	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("reading %s: %w", url, err)
	}
	defer gz.Close()

	return untar(tar.NewReader(gz), destDir)
}

func (f *HTTPFetcher) open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("building request for %s: %w", url, err))
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	return resp.Body, nil
}

// untar unpacks an archive under destDir, rejecting entries that would
// escape it.
func untar(tr *tar.Reader, destDir string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		target, err := securePath(destDir, hdr.Name)
		if err != nil {
			return retry.Permanent(err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("writing %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", target, err)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("linking %s: %w", target, err)
			}
		default:
			// Archives for the pinned components only carry dirs, files,
			// and symlinks; anything else is skipped.
		}
	}
}

// securePath joins name under destDir and rejects path traversal.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
		return "", fmt.Errorf("archive entry %q escapes %s", name, destDir)
	}
	return target, nil
}
