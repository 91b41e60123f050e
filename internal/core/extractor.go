package core

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ExtractProgressFunc receives compressed bytes consumed and the archive size
type ExtractProgressFunc func(read, total int64)

// Extractor unpacks runner tarballs
type Extractor struct {
	fs afero.Fs
}

// NewExtractor creates a new Extractor writing through fs
func NewExtractor(fs afero.Fs) *Extractor {
	return &Extractor{fs: fs}
}

// CanExtract returns true if the extractor can handle the given filename
func (e *Extractor) CanExtract(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz")
}

// Extract unpacks a gzip-compressed tar archive into destDir. Entries that
// would land outside destDir are rejected. ctx is checked between entries.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string, progressFn ExtractProgressFunc) (err error) {
	if !e.CanExtract(archivePath) {
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	f, err := e.fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var total int64
	if info, statErr := f.Stat(); statErr == nil {
		total = info.Size()
	}

	if err := e.fs.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	counter := &countingReader{reader: f, total: total, progressFn: progressFn}
	gz, err := gzip.NewReader(counter)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer func() {
		if cerr := gz.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing gzip stream: %w", cerr)
		}
	}()

	// Symlinks are created after every file and directory is written, so no
	// entry is ever written through a link from the same archive.
	var links []pendingLink
	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		if hdr.Typeflag == tar.TypeSymlink {
			destPath, err := e.sanitizePath(destDir, hdr.Name)
			if err != nil {
				return err
			}
			links = append(links, pendingLink{path: destPath, target: hdr.Linkname})
			continue
		}
		if err := e.extractEntry(tr, hdr, destDir); err != nil {
			return err
		}
	}

	for _, l := range links {
		if err := e.symlink(destDir, l.path, l.target); err != nil {
			return err
		}
	}
	// links created later can change where earlier ones resolve
	for _, l := range links {
		if err := e.checkWithin(destDir, l.path, l.path); err != nil {
			return err
		}
	}
	return nil
}

type pendingLink struct {
	path   string
	target string
}

// extractEntry writes a single tar entry below destDir
func (e *Extractor) extractEntry(tr *tar.Reader, hdr *tar.Header, destDir string) error {
	destPath, err := e.sanitizePath(destDir, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		// Use 0755 for directories to ensure we can write files into them
		return e.fs.MkdirAll(destPath, 0755)

	case tar.TypeReg:
		return e.writeFile(destPath, tr, hdr.FileInfo().Mode().Perm())

	case tar.TypeLink:
		// Hard links are materialized as copies of an already extracted entry
		src, err := e.sanitizePath(destDir, hdr.Linkname)
		if err != nil {
			return err
		}
		in, err := e.fs.Open(src)
		if err != nil {
			return fmt.Errorf("opening hard link target %s: %w", hdr.Linkname, err)
		}
		defer in.Close()
		return e.writeFile(destPath, in, hdr.FileInfo().Mode().Perm())

	default:
		log.Debug().Str("entry", hdr.Name).Int("type", int(hdr.Typeflag)).Msg("skipping unsupported archive entry")
		return nil
	}
}

// writeFile copies r into a new file at destPath
func (e *Extractor) writeFile(destPath string, r io.Reader, mode os.FileMode) (err error) {
	if err := e.fs.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", destPath, err)
	}

	if mode == 0 {
		mode = 0644
	}
	out, err := e.fs.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", destPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing file %s: %w", destPath, cerr)
		}
	}()

	if _, err = io.Copy(out, r); err != nil {
		return fmt.Errorf("writing file %s: %w", destPath, err)
	}
	return nil
}

// symlink creates a relative symlink whose target stays inside destDir
func (e *Extractor) symlink(destDir, destPath, target string) error {
	if filepath.IsAbs(target) {
		return fmt.Errorf("absolute symlink target not allowed: %s -> %s", destPath, target)
	}
	if !isWithin(destDir, filepath.Join(filepath.Dir(destPath), target)) {
		return fmt.Errorf("path traversal detected: symlink %s -> %s", destPath, target)
	}
	if err := e.checkWithin(destDir, filepath.Dir(destPath), destPath); err != nil {
		return err
	}
	// joined by hand: filepath.Join would fold "link/.." before links are followed
	if err := e.checkWithin(destDir, filepath.Dir(destPath)+string(os.PathSeparator)+target, destPath); err != nil {
		return err
	}

	linker, ok := e.fs.(afero.Linker)
	if !ok {
		log.Warn().Str("link", destPath).Msg("filesystem does not support symlinks, skipping")
		return nil
	}

	if err := e.fs.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", destPath, err)
	}
	if err := linker.SymlinkIfPossible(target, destPath); err != nil {
		return fmt.Errorf("creating symlink %s: %w", destPath, err)
	}
	return nil
}

// sanitizePath maps an archive entry name to a path below destDir. Names that
// climb out of destDir, or whose parent directories pass through a symlink
// leading out of it, are rejected.
func (e *Extractor) sanitizePath(destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Clean(name))
	if !isWithin(destDir, destPath) {
		return "", fmt.Errorf("path traversal detected: %s", name)
	}
	if err := e.checkWithin(destDir, filepath.Dir(destPath), name); err != nil {
		return "", err
	}
	return destPath, nil
}

// checkWithin resolves path through the symlinks already on disk and fails
// unless it ends up inside destDir. entry names the offending archive entry.
func (e *Extractor) checkWithin(destDir, path, entry string) error {
	root, err := e.realPath(destDir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", destDir, err)
	}
	resolved, err := e.realPath(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", entry, err)
	}
	if !isWithin(root, resolved) {
		return fmt.Errorf("path traversal detected: %s resolves to %s", entry, resolved)
	}
	return nil
}

// maxLinkHops matches the kernel's MAXSYMLINKS
const maxLinkHops = 40

// realPath follows every symlink in path one component at a time, the way
// the kernel walks it. Components that do not exist are taken as written.
// On filesystems without symlinks the path is only cleaned.
func (e *Extractor) realPath(path string) (string, error) {
	lstater, ok := e.fs.(afero.Lstater)
	reader, ok2 := e.fs.(afero.LinkReader)
	if !ok || !ok2 {
		return filepath.Clean(path), nil
	}

	sep := string(os.PathSeparator)
	cur := ""
	if filepath.IsAbs(path) {
		cur = sep
	}
	parts := strings.Split(path, sep)
	hops := 0
	for len(parts) > 0 {
		part := parts[0]
		parts = parts[1:]
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Join(cur, "..")
			continue
		}

		next := filepath.Join(cur, part)
		info, _, err := lstater.LstatIfPossible(next)
		if errors.Is(err, os.ErrNotExist) || (err == nil && info.Mode()&os.ModeSymlink == 0) {
			cur = next
			continue
		}
		if err != nil {
			return "", err
		}

		if hops++; hops > maxLinkHops {
			return "", fmt.Errorf("too many levels of symbolic links: %s", path)
		}
		target, err := reader.ReadlinkIfPossible(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(target) {
			cur = sep
		}
		parts = append(strings.Split(target, sep), parts...)
	}
	if cur == "" {
		return ".", nil
	}
	return cur, nil
}

// isWithin reports whether path is dir or lies below it
func isWithin(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}

// countingReader reports how much of the compressed archive has been consumed
type countingReader struct {
	reader     io.Reader
	total      int64
	read       int64
	progressFn ExtractProgressFunc
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.progressFn != nil {
			r.progressFn(r.read, r.total)
		}
	}
	return n, err
}
