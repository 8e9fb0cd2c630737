package catalog

import (
	"fmt"

	"github.com/DoyleJ11/cooking-backend/internal/recipe"
)

type recipeRow struct {
	ID    uint      `gorm:"primaryKey"`
	Name  string    `gorm:"uniqueIndex;not null"`
	Steps []stepRow `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (recipeRow) TableName() string { return "recipes" }

type stepRow struct {
	ID              uint `gorm:"primaryKey"`
	RecipeID        uint `gorm:"index;not null"`
	StepNumber      int  `gorm:"not null"`
	Description     string
	Duration        *string
	TargetCondition *string
	HeatLevel       *string
	IsBlockable     bool
}

func (stepRow) TableName() string { return "recipe_steps" }

func toRecipe(row recipeRow) recipe.Recipe {
	r := recipe.Recipe{Name: row.Name, Steps: make([]recipe.Step, 0, len(row.Steps))}
	for _, s := range row.Steps {
		st := recipe.Step{
			Number:          s.StepNumber,
			Description:     s.Description,
			TargetCondition: s.TargetCondition,
			HeatLevel:       s.HeatLevel,
			Blockable:       s.IsBlockable,
		}
		if s.Duration != nil {
			st.TimeRequirement = &recipe.TimeRequirement{Duration: *s.Duration}
		}
		r.Steps = append(r.Steps, st)
	}
	return r
}

// loadRow converts a stored recipe and rejects rows edited outside Save into
// something a session could not run.
func loadRow(row recipeRow) (recipe.Recipe, error) {
	r := toRecipe(row)
	if err := recipe.Validate(r); err != nil {
		return recipe.Recipe{}, fmt.Errorf("stored recipe %q is invalid: %w", row.Name, err)
	}
	return r, nil
}

func fromRecipe(r recipe.Recipe) recipeRow {
	row := recipeRow{Name: r.Name, Steps: make([]stepRow, 0, len(r.Steps))}
	for _, s := range r.Steps {
		sr := stepRow{
			StepNumber:      s.Number,
			Description:     s.Description,
			TargetCondition: s.TargetCondition,
			HeatLevel:       s.HeatLevel,
			IsBlockable:     s.Blockable,
		}
		if s.TimeRequirement != nil {
			d := s.TimeRequirement.Duration
			sr.Duration = &d
		}
		row.Steps = append(row.Steps, sr)
	}
	return row
}
