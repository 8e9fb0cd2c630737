package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/cooking-backend/internal/recipe"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is a Postgres-backed catalog.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	return NewStore(db), nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&recipeRow{}, &stepRow{})
}

func (s *Store) Lookup(ctx context.Context, name string) (recipe.Recipe, error) {
	var row recipeRow
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC") }).
		Where("name = ?", name).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return recipe.Recipe{}, fmt.Errorf("%w: %q", ErrUnknownDish, name)
	}
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to load recipe %q: %w", name, err)
	}
	return loadRow(row)
}

func (s *Store) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&recipeRow{}).Order("name ASC").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return names, nil
}

// Save replaces a recipe and its steps atomically. The recipe is validated
// first so the database never holds something a session could not run.
func (s *Store) Save(ctx context.Context, r recipe.Recipe) error {
	r = recipe.Normalize(r)
	if err := recipe.Validate(r); err != nil {
		return fmt.Errorf("invalid recipe: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing recipeRow
		err := tx.Where("name = ?", r.Name).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("recipe_id = ?", existing.ID).Delete(&stepRow{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		row := fromRecipe(r)
		return tx.Create(&row).Error
	})
}
