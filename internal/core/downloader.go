package core

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/spf13/afero"
)

// partSuffix marks an archive that is still being written
const partSuffix = ".part"

// DownloadProgress is reported after every chunk written to disk
type DownloadProgress struct {
	TotalBytes int64 // 0 when neither the server nor the release knows the size
	Downloaded int64
	Percentage float64 // 0-100, stays 0 while TotalBytes is unknown
}

type DownloadProgressFunc func(DownloadProgress)

// DownloadResult describes a completed release asset on disk
type DownloadResult struct {
	Path     string
	Size     int64
	Checksum string // hex SHA-512, the format Proton-GE publishes in .sha512sum
}

// Downloader streams release assets to disk
type Downloader struct {
	httpClient *http.Client
	fs         afero.Fs
}

// NewDownloader uses http.DefaultClient when httpClient is nil.
func NewDownloader(httpClient *http.Client, fs afero.Fs) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{httpClient: httpClient, fs: fs}
}

// Download streams url into destPath, hashing as it goes. The body lands in
// destPath+".part" and is renamed only once complete. sizeHint stands in for
// a missing Content-Length when reporting progress.
func (d *Downloader) Download(ctx context.Context, url, destPath string, sizeHint int64, onProgress DownloadProgressFunc) (*DownloadResult, error) {
	body, total, err := d.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	if total <= 0 {
		total = sizeHint
	}

	if err := d.fs.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(destPath), err)
	}
	partPath := destPath + partSuffix
	part, err := d.fs.Create(partPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", partPath, err)
	}
	committed := false
	defer func() {
		if !committed {
			part.Close()
			d.fs.Remove(partPath)
		}
	}()

	sum := sha512.New()
	m := &meter{total: total, report: onProgress}
	n, err := io.Copy(io.MultiWriter(part, sum, m), body)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", filepath.Base(destPath), err)
	}
	if err := part.Close(); err != nil {
		return nil, fmt.Errorf("flushing %s: %w", partPath, err)
	}
	if err := d.fs.Rename(partPath, destPath); err != nil {
		return nil, fmt.Errorf("moving %s into place: %w", filepath.Base(destPath), err)
	}
	committed = true

	return &DownloadResult{
		Path:     destPath,
		Size:     n,
		Checksum: hex.EncodeToString(sum.Sum(nil)),
	}, nil
}

// open issues the GET and returns the body with its advertised length
func (d *Downloader) open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "protonctl")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("requesting %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("server answered %s for %s", resp.Status, url)
	}
	return resp.Body, resp.ContentLength, nil
}

// meter counts bytes passing through and forwards them to report
type meter struct {
	total  int64
	done   int64
	report DownloadProgressFunc
}

func (m *meter) Write(p []byte) (int, error) {
	m.done += int64(len(p))
	if m.report == nil {
		return len(p), nil
	}
	prog := DownloadProgress{TotalBytes: m.total, Downloaded: m.done}
	if m.total > 0 {
		prog.Percentage = min(float64(m.done)/float64(m.total)*100, 100)
	}
	m.report(prog)
	return len(p), nil
}
