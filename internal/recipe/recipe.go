package recipe

import "time"

type Recipe struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one immutable recipe step. Optional fields are nil when the
// catalog leaves them out.
type Step struct {
	Number          int              `yaml:"stepNumber"`
	Description     string           `yaml:"description"`
	TimeRequirement *TimeRequirement `yaml:"timeRequirement,omitempty"`
	TargetCondition *string          `yaml:"targetCondition,omitempty"`
	HeatLevel       *string          `yaml:"heatLevel,omitempty"`
	Blockable       bool             `yaml:"isBlockable"`
}

type TimeRequirement struct {
	Duration string `yaml:"duration" json:"duration"`
}

// BlockDuration is the unattended wait for a blockable step. Steps are
// validated at load time, so an error here means the catalog was bypassed.
func (s Step) BlockDuration() (time.Duration, error) {
	if s.TimeRequirement == nil {
		return 0, ErrMissingDuration
	}
	return ParseDuration(s.TimeRequirement.Duration)
}
