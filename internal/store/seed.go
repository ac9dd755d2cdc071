package store

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flashdeck/backend/internal/deck"
)

// SeedFile is the top-level YAML structure for starter units.
type SeedFile struct {
	Units []SeedUnit `yaml:"units"`
}

// SeedUnit is one starter unit in the YAML file.
type SeedUnit struct {
	Name  string     `yaml:"name"`
	Cards []SeedCard `yaml:"cards"`
}

// SeedCard is one card entry; images are data-URI strings.
type SeedCard struct {
	Front   string `yaml:"front"`
	Back    string `yaml:"back"`
	BackImg string `yaml:"back_image"`
}

// Seed loads starter units from a YAML file into an empty unit table. A
// non-empty table means the user already has data, so seeding is skipped.
func Seed(ctx context.Context, repo *UnitRepo, path string, log *zap.Logger) error {
	existing, err := repo.ListUnits(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse seed YAML: %w", err)
	}

	for _, u := range sf.Units {
		cards := make([]deck.Card, 0, len(u.Cards))
		for _, c := range u.Cards {
			cards = append(cards, deck.Card{
				FrontImage: deck.ImageRef(c.Front),
				BackText:   c.Back,
				BackImage:  deck.ImageRef(c.BackImg),
			})
		}
		if _, err := repo.SaveUnit(ctx, u.Name, cards); err != nil {
			return err
		}
	}
	log.Info("seeded starter units", zap.Int("units", len(sf.Units)))
	return nil
}
