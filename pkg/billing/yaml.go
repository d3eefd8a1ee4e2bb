package billing

import (
	"errors"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// planFile is the on-disk shape of a plan catalog.
type planFile struct {
	Plans []planEntry `yaml:"plans"`
}

type planEntry struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Price       int64     `yaml:"price"` // smallest currency unit
	Currency    string    `yaml:"currency"`
	Frequency   Frequency `yaml:"frequency"`
	MaxPayments int       `yaml:"max_payments"`
	TrialDays   int       `yaml:"trial_days"`
	Features    []string  `yaml:"features"`
	Active      bool      `yaml:"active"`
}

// LoadPlans reads a YAML plan definition and registers every plan into the
// catalog. Registration stops at the first invalid or duplicate plan so a
// broken file is caught at startup rather than half-applied.
func (c *Catalog) LoadPlans(r io.Reader, now time.Time) error {
	var file planFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return errors.Join(ErrFailedToLoadPlans, err)
	}

	for _, entry := range file.Plans {
		plan := Plan{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Price:       Money{Amount: entry.Price, Currency: entry.Currency},
			Frequency:   entry.Frequency,
			MaxPayments: entry.MaxPayments,
			TrialDays:   entry.TrialDays,
			Features:    entry.Features,
			Active:      entry.Active,
			CreatedAt:   now,
		}
		if err := c.Register(plan); err != nil {
			return errors.Join(ErrFailedToLoadPlans, err)
		}
	}
	return nil
}

// LoadPlansFile opens path and registers the plans it defines.
func (c *Catalog) LoadPlansFile(path string, now time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Join(ErrFailedToLoadPlans, err)
	}
	defer f.Close()
	return c.LoadPlans(f, now)
}
