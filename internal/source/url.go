package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	"resty.dev/v3"

	"github.com/R-Vicente/signal-and-noise/internal/atomicfile"
	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/lockfile"
	"github.com/R-Vicente/signal-and-noise/internal/parser"
)

const (
	userAgent           = "portfolio-sync"
	httpRetryCount      = 2
	httpRetryMaxWaitSec = 5
	httpTimeout         = 30 * time.Second
	fileMode            = 0o644
)

type urlSource struct {
	name     string
	source   config.Source
	filename string
	client   *resty.Client
}

func NewURL(name string, cfg config.Source, token string) (Source, error) {
	filename := cfg.Filename
	if filename == "" {
		filename = filenameFromURL(name, cfg.URL)
	}

	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("source", name).
			With("filename", filename).
			Hint("Use a plain file name without directories").
			Errorf("invalid filename %q for source %q", filename, name)
	}

	return &urlSource{
		name:     name,
		source:   cfg,
		filename: filename,
		client:   newClient(token),
	}, nil
}

func newClient(token string) *resty.Client {
	client := resty.New()
	client.SetHeader("User-Agent", userAgent)
	client.SetTimeout(httpTimeout)
	client.SetRetryCount(httpRetryCount)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(httpRetryMaxWaitSec * time.Second)

	if token != "" {
		client.SetAuthToken(token)
	}

	return client
}

func (s *urlSource) Sync(
	ctx context.Context,
	destDir string,
	prevLock *lockfile.LockEntry,
	opts SyncOptions,
) (*SyncResult, error) {
	filePath := filepath.Join(destDir, s.filename)

	request := s.client.R().SetContext(ctx)
	if !opts.Force && prevLock != nil && fileExists(filePath) {
		if prevLock.ETag != "" {
			request.SetHeader("If-None-Match", prevLock.ETag)
		}
		if prevLock.LastMod != "" {
			request.SetHeader("If-Modified-Since", prevLock.LastMod)
		}
	}

	response, err := request.Get(s.source.URL)
	if err != nil {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("source", s.name).
			With("url", s.source.URL).
			Wrapf(err, "downloading url source")
	}

	if response.StatusCode() == http.StatusNotModified {
		lock := &lockfile.LockEntry{}
		if prevLock != nil {
			*lock = *prevLock
		}

		lock.Type = "url"
		lock.URL = s.source.URL
		lock.File = s.filename
		lock.SyncedAt = time.Now().UTC()

		return &SyncResult{
			Skipped:   true,
			File:      filePath,
			LockEntry: lock,
		}, nil
	}

	if response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("source", s.name).
			With("url", s.source.URL).
			With("status", response.StatusCode()).
			Errorf("url source returned non-success status %d", response.StatusCode())
	}

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("source", s.name).
			With("url", s.source.URL).
			Wrapf(err, "reading response body")
	}

	if parser.IsBinary(content) || !parser.IsValidUTF8(content) {
		return nil, oops.
			Code("INVALID_DOCUMENT").
			With("source", s.name).
			With("url", s.source.URL).
			Hint("Point the source at a raw markdown file").
			Errorf("url source %q did not return a text document", s.name)
	}

	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])

	result := &SyncResult{
		Downloaded: 1,
		File:       filePath,
		Unchanged:  prevLock != nil && prevLock.Checksum == checksum && fileExists(filePath),
		LockEntry: &lockfile.LockEntry{
			Type:     "url",
			URL:      s.source.URL,
			File:     s.filename,
			ETag:     response.Header().Get("ETag"),
			LastMod:  response.Header().Get("Last-Modified"),
			Checksum: checksum,
			SyncedAt: time.Now().UTC(),
		},
	}

	// A renamed target leaves the previous file behind.
	stale := ""
	if prevLock != nil && prevLock.File != "" && prevLock.File != s.filename {
		stale = filepath.Join(destDir, filepath.Base(prevLock.File))
		if fileExists(stale) {
			result.Deleted = 1
		}
	}

	if opts.DryRun {
		return result, nil
	}

	if !result.Unchanged {
		if writeErr := atomicfile.Write(filePath, content, fileMode); writeErr != nil {
			return nil, oops.
				Code("WRITE_FAILED").
				With("source", s.name).
				With("path", filePath).
				Wrapf(writeErr, "writing source document")
		}
	}

	if result.Deleted > 0 {
		if removeErr := os.Remove(stale); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, oops.
				Code("WRITE_FAILED").
				With("source", s.name).
				With("path", stale).
				Wrapf(removeErr, "removing previous source document")
		}
	}

	return result, nil
}

// filenameFromURL names the cached document after the last URL path
// segment. Names without a markdown extension get ".md" so content
// discovery picks them up.
func filenameFromURL(sourceName string, rawURL string) string {
	baseName := sourceName

	parsed, err := neturl.Parse(rawURL)
	if err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "." && base != "/" {
			baseName = base
		}
	}

	switch strings.ToLower(path.Ext(baseName)) {
	case ".md", ".markdown", ".mdx":
		return baseName
	default:
		return baseName + ".md"
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
