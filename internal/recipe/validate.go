package recipe

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Normalize fills in missing step numbers (1-based, in order) and returns the
// recipe. It never reorders steps.
func Normalize(r Recipe) Recipe {
	steps := make([]Step, len(r.Steps))
	copy(steps, r.Steps)
	for i := range steps {
		if steps[i].Number == 0 {
			steps[i].Number = i + 1
		}
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Steps = steps
	return r
}

// Validate reports every problem in one recipe.
func Validate(r Recipe) error {
	var err error
	if r.Name == "" {
		err = multierr.Append(err, fmt.Errorf("recipe has no name"))
	}
	if len(r.Steps) == 0 {
		err = multierr.Append(err, fmt.Errorf("recipe %q has no steps", r.Name))
	}
	for i, st := range r.Steps {
		if st.Number != i+1 {
			err = multierr.Append(err, fmt.Errorf("recipe %q: step %d numbered %d", r.Name, i+1, st.Number))
		}
		if strings.TrimSpace(st.Description) == "" {
			err = multierr.Append(err, fmt.Errorf("recipe %q: step %d has no description", r.Name, i+1))
		}
		if st.Blockable {
			if _, derr := st.BlockDuration(); derr != nil {
				err = multierr.Append(err, fmt.Errorf("recipe %q: step %d: %w", r.Name, i+1, derr))
			}
		}
	}
	return err
}

// ValidateAll validates a whole catalog, including name uniqueness.
func ValidateAll(recipes []Recipe) error {
	var err error
	seen := make(map[string]bool, len(recipes))
	for _, r := range recipes {
		if seen[r.Name] {
			err = multierr.Append(err, fmt.Errorf("duplicate recipe %q", r.Name))
		}
		seen[r.Name] = true
		err = multierr.Append(err, Validate(r))
	}
	return err
}
