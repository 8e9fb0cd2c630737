package catalog

import (
	"fmt"
	"os"

	"github.com/DoyleJ11/cooking-backend/internal/recipe"
	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Recipes []recipe.Recipe `yaml:"recipes"`
}

func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Memory, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewMemory(f.Recipes)
}
