package recipe

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestNormalize_AssignsMissingNumbers(t *testing.T) {
	r := Normalize(Recipe{
		Name: "  shrimp ",
		Steps: []Step{
			{Description: "rinse"},
			{Description: "steam"},
		},
	})

	require.Equal(t, "shrimp", r.Name)
	require.Equal(t, 1, r.Steps[0].Number)
	require.Equal(t, 2, r.Steps[1].Number)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	r := Recipe{
		Name: "braised pork",
		Steps: []Step{
			{Number: 1, Description: "cut"},
			{Number: 3, Description: "simmer", Blockable: true},
			{Number: 3, Description: ""},
		},
	}

	err := Validate(r)
	require.Error(t, err)
	// wrong number on step 2, missing duration on step 2, empty description on step 3
	require.Len(t, multierr.Errors(err), 3)
}

func TestValidate_AcceptsBlockableWithDuration(t *testing.T) {
	r := Recipe{
		Name: "braised pork",
		Steps: []Step{
			{Number: 1, Description: "cut"},
			{Number: 2, Description: "simmer", Blockable: true, TimeRequirement: &TimeRequirement{Duration: "40分钟"}},
		},
	}
	require.NoError(t, Validate(r))
}

func TestValidateAll_DuplicateNames(t *testing.T) {
	r := Recipe{Name: "rice", Steps: []Step{{Number: 1, Description: "wash"}}}
	err := ValidateAll([]Recipe{r, r})
	require.Error(t, err)
	require.Contains(t, err.Error(), `duplicate recipe "rice"`)
}
