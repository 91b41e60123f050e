package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Cache manages the download staging area. Archives live here only while an
// install is in progress; anything left behind is from an interrupted run.
type Cache struct {
	fs       afero.Fs
	basePath string
}

// Entry is a leftover file in the download area
type Entry struct {
	Name string
	Path string
	Size int64
}

// New creates a new cache manager
func New(fs afero.Fs, basePath string) *Cache {
	return &Cache{fs: fs, basePath: basePath}
}

// Path returns the cache root
func (c *Cache) Path() string {
	return c.basePath
}

// DownloadsDir returns the directory runner archives are downloaded into
func (c *Cache) DownloadsDir() string {
	return filepath.Join(c.basePath, "downloads")
}

// DownloadPath returns where an archive named fileName is downloaded to
func (c *Cache) DownloadPath(fileName string) string {
	return filepath.Join(c.DownloadsDir(), filepath.Base(fileName))
}

// Ensure creates the download directory
func (c *Cache) Ensure() error {
	if err := c.fs.MkdirAll(c.DownloadsDir(), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	return nil
}

// List returns the files currently in the download area
func (c *Cache) List() ([]Entry, error) {
	infos, err := afero.ReadDir(c.fs, c.DownloadsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing downloads: %w", err)
	}

	var entries []Entry
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		entries = append(entries, Entry{
			Name: info.Name(),
			Path: filepath.Join(c.DownloadsDir(), info.Name()),
			Size: info.Size(),
		})
	}
	return entries, nil
}

// Size returns the total size of files in the download area
func (c *Cache) Size() (int64, error) {
	entries, err := c.List()
	if err != nil {
		return 0, fmt.Errorf("calculating cache size: %w", err)
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}

// Clean removes leftover downloads and returns how many files and bytes were freed
func (c *Cache) Clean() (int, int64, error) {
	entries, err := c.List()
	if err != nil {
		return 0, 0, err
	}

	var removed int
	var freed int64
	for _, e := range entries {
		if err := c.fs.Remove(e.Path); err != nil {
			return removed, freed, fmt.Errorf("deleting %s: %w", e.Name, err)
		}
		removed++
		freed += e.Size
	}
	return removed, freed, nil
}
