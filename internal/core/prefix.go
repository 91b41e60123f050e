package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// maxSlugLength caps the length of a compat-data directory name
const maxSlugLength = 100

// Slugify turns a game name into a filesystem-safe directory name: characters
// outside [A-Za-z0-9_-().] are dropped, whitespace runs become one underscore
// and the result is cut at 100 characters.
func Slugify(name string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
		case isSlugRune(r):
			b.WriteRune(r)
			inSpace = false
		}
		// dropped runes do not end a whitespace run
	}

	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}

func isSlugRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '(', r == ')', r == '.':
		return true
	default:
		return false
	}
}

// PrefixResult reports the outcome of a prefix deletion
type PrefixResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PrefixManager owns the per-game compatibility data directories under root
type PrefixManager struct {
	fs   afero.Fs
	root string
}

// NewPrefixManager creates a PrefixManager rooted at root
func NewPrefixManager(fs afero.Fs, root string) *PrefixManager {
	return &PrefixManager{fs: fs, root: root}
}

// Root returns the compatibility data root
func (m *PrefixManager) Root() string {
	return m.root
}

// Slugify returns the directory name used for gameName
func (m *PrefixManager) Slugify(gameName string) string {
	return Slugify(gameName)
}

// dir returns root/slug without touching the filesystem
func (m *PrefixManager) dir(gameName string) (string, error) {
	slug := Slugify(gameName)
	if slug == "" || slug == "." || slug == ".." {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidGameName, gameName)
	}
	return filepath.Join(m.root, slug), nil
}

// Path returns the compat-data directory for gameName, creating it if needed
func (m *PrefixManager) Path(gameName string) (string, error) {
	dir, err := m.dir(gameName)
	if err != nil {
		return "", err
	}
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating compat data directory: %w", err)
	}
	return dir, nil
}

// Delete removes a game's prefix and recreates it empty so the next launch
// can repopulate it. A missing prefix is a successful no-op.
func (m *PrefixManager) Delete(gameName string) PrefixResult {
	dir, err := m.dir(gameName)
	if err != nil {
		return PrefixResult{Message: err.Error()}
	}

	exists, err := afero.DirExists(m.fs, dir)
	if err != nil {
		return PrefixResult{Message: fmt.Sprintf("checking prefix: %v", err)}
	}
	if !exists {
		return PrefixResult{Success: true, Message: "No prefix exists for " + gameName}
	}

	if err := m.fs.RemoveAll(dir); err != nil {
		return PrefixResult{Message: fmt.Sprintf("removing prefix: %v", err)}
	}
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return PrefixResult{Message: fmt.Sprintf("recreating prefix: %v", err)}
	}

	log.Info().Str("game", gameName).Str("path", dir).Msg("deleted compat data prefix")
	return PrefixResult{Success: true, Message: "Prefix deleted for " + gameName}
}

// Size returns the total size in bytes of the files in a game's prefix, or 0
// if it does not exist. Symlinks are not followed and unreadable entries are
// skipped.
func (m *PrefixManager) Size(ctx context.Context, gameName string) (int64, error) {
	dir, err := m.dir(gameName)
	if err != nil {
		return 0, err
	}
	if exists, _ := afero.DirExists(m.fs, dir); !exists {
		return 0, nil
	}

	var total int64
	err = afero.Walk(m.fs, dir, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable prefix entry")
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring prefix: %w", err)
	}
	return total, nil
}
