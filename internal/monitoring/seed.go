package monitoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

// LoadEntities registers the tracked entities listed in a JSON file. Entities
// that are already registered are skipped.
func (s *Service) LoadEntities(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read entities file: %w", err)
	}

	var entities []models.TrackedEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		return 0, fmt.Errorf("failed to parse entities file %s: %w", path, err)
	}

	loaded := 0
	for _, entity := range entities {
		if _, err := s.RegisterEntity(entity); err != nil {
			if errors.Is(err, storage.ErrInvalidState) {
				logrus.WithField("entity_id", entity.ID).Debug("Entity already registered")
				continue
			}
			return loaded, fmt.Errorf("entity %q: %w", entity.Name, err)
		}
		loaded++
	}
	return loaded, nil
}
