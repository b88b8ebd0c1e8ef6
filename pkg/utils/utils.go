// Package utils holds download and cache helpers shared by the data feeds.
package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("file not found on server")

// DefaultCacheDir is where GetCachedReader keeps downloads.
const DefaultCacheDir = "data/cache"

type progressWriter struct {
	io.Writer
	logger *zerolog.Logger
	total  uint64
	last   uint64
	label  string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += uint64(n)
	if pw.total-pw.last > 5*1024*1024 {
		pw.logger.Info().Str("file", pw.label).Uint64("mb", pw.total/1024/1024).Msg("downloading")
		pw.last = pw.total
	}
	return n, err
}

func get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	return resp, nil
}

// DownloadFile downloads url to path. The file only appears once the body
// has been fully written.
func DownloadFile(ctx context.Context, url, path string) error {
	logger := zerolog.Ctx(ctx)
	resp, err := get(ctx, url)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing response body")
		}
	}()

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", tmpName).Msg("removing temp file")
		}
	}()

	pw := &progressWriter{Writer: tmpFile, logger: logger, label: filepath.Base(path)}
	if _, err := io.Copy(pw, resp.Body); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// GetCacheFileName returns the local file name for url. The name prefix
// keeps different feeds serving the same file name apart.
func GetCacheFileName(url, name string) string {
	urlParts := strings.Split(url, "/")
	fileName := urlParts[len(urlParts)-1]
	if i := strings.IndexAny(fileName, "?#"); i >= 0 {
		fileName = fileName[:i]
	}
	sanitized := strings.ReplaceAll(strings.Trim(name, "[]"), " ", "_")
	if sanitized != "" {
		fileName = sanitized + "_" + fileName
	}
	return fileName
}

// GetCachedReader returns a reader for url. With a non-empty cacheDir the
// file is downloaded once and served from disk afterwards; otherwise it is
// streamed.
func GetCachedReader(ctx context.Context, url, cacheDir, name string) (io.ReadCloser, error) {
	logger := zerolog.Ctx(ctx).With().Str("feed", name).Logger()
	if cacheDir == "" {
		logger.Info().Str("url", url).Msg("streaming")
		resp, err := get(ctx, url)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	localPath := filepath.Join(cacheDir, GetCacheFileName(url, name))
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		logger.Info().Str("url", url).Msg("downloading")
		if err := DownloadFile(logger.WithContext(ctx), url, localPath); err != nil {
			return nil, err
		}
	} else {
		logger.Debug().Str("path", localPath).Msg("using cached file")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return f, nil
}
