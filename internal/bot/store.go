package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
)

// ModelStore persists the skill model as a local JSON file. Loading is
// best-effort: a missing or corrupt file just resets the bot to neutral.
type ModelStore struct {
	path string
}

// NewModelStore persists under path.
func NewModelStore(path string) *ModelStore {
	return &ModelStore{path: path}
}

// Load reads the model from disk.
func (ms *ModelStore) Load() models.BotModel {
	empty := models.BotModel{ByCategory: make(map[string]float64)}
	data, err := os.ReadFile(ms.path)
	if err != nil {
		return empty
	}
	var model models.BotModel
	if err := json.Unmarshal(data, &model); err != nil || model.ByCategory == nil {
		log.Debug().Err(err).Str("path", ms.path).Msg("resetting corrupt bot model")
		return empty
	}
	for category, skill := range model.ByCategory {
		if skill < skillMin {
			model.ByCategory[category] = skillMin
		}
		if skill > skillMax {
			model.ByCategory[category] = skillMax
		}
	}
	return model
}

// Save writes the model back to disk.
func (ms *ModelStore) Save(model models.BotModel) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bot model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(ms.path), 0o755); err != nil {
		return fmt.Errorf("create bot model dir: %w", err)
	}
	if err := os.WriteFile(ms.path, data, 0o644); err != nil {
		return fmt.Errorf("write bot model: %w", err)
	}
	return nil
}
