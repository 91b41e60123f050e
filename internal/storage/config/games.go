package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DonovanMods/protonctl/internal/domain"

	"gopkg.in/yaml.v3"
)

const gamesFileName = "games.yaml"

// gameEntry is one game as written to games.yaml
type gameEntry struct {
	Name       string `yaml:"name"`
	Executable string `yaml:"executable"`
	Runner     string `yaml:"runner,omitempty"` // empty follows the global preference
}

type gamesDocument struct {
	Games map[string]gameEntry `yaml:"games"`
}

// LoadGames returns the configured games keyed by ID. A missing games.yaml
// is an empty library.
func LoadGames(configDir string) (map[string]*domain.Game, error) {
	doc, err := readGames(configDir)
	if err != nil {
		return nil, err
	}

	games := make(map[string]*domain.Game, len(doc.Games))
	for id, e := range doc.Games {
		g := &domain.Game{
			ID:         id,
			Name:       e.Name,
			Executable: expandHome(e.Executable),
			Runner:     expandHome(e.Runner),
		}
		if g.Name == "" {
			g.Name = id
		}
		games[id] = g
	}
	return games, nil
}

// SaveGame inserts or replaces game
func SaveGame(configDir string, game *domain.Game) error {
	return editGames(configDir, func(doc *gamesDocument) error {
		doc.Games[game.ID] = gameEntry{Name: game.Name, Executable: game.Executable, Runner: game.Runner}
		return nil
	})
}

// SetGameRunner pins gameID to runner; "auto" or "" clears the pin.
func SetGameRunner(configDir, gameID, runner string) error {
	return editGames(configDir, func(doc *gamesDocument) error {
		e, ok := doc.Games[gameID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrGameNotFound, gameID)
		}
		if domain.IsAutoPreference(runner) {
			runner = ""
		}
		e.Runner = runner
		doc.Games[gameID] = e
		return nil
	})
}

// DeleteGame drops gameID from games.yaml. Its compatibility data is untouched.
func DeleteGame(configDir, gameID string) error {
	return editGames(configDir, func(doc *gamesDocument) error {
		if _, ok := doc.Games[gameID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrGameNotFound, gameID)
		}
		delete(doc.Games, gameID)
		return nil
	})
}

func readGames(configDir string) (*gamesDocument, error) {
	doc := &gamesDocument{Games: map[string]gameEntry{}}
	data, err := os.ReadFile(filepath.Join(configDir, gamesFileName))
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", gamesFileName, err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", gamesFileName, err)
	}
	if doc.Games == nil {
		doc.Games = map[string]gameEntry{}
	}
	return doc, nil
}

// editGames applies change to the stored document and writes it back.
// Paths are kept as written, so a ~ in a hand-edited file survives.
func editGames(configDir string, change func(*gamesDocument) error) error {
	doc, err := readGames(configDir)
	if err != nil {
		return err
	}
	if err := change(doc); err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", gamesFileName, err)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, gamesFileName), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", gamesFileName, err)
	}
	return nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
