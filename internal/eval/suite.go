package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/models"
)

// Suite is the on-disk shape of an evaluation suite file.
type Suite struct {
	Name   string            `yaml:"name,omitempty"`
	Cases  []models.TestCase `yaml:"cases"`
	Scorer string            `yaml:"scorer,omitempty"`
}

// LoadSuite reads a YAML evaluation suite from path.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("read suite %s", path), err)
	}
	return ParseSuite(data)
}

// ParseSuite decodes and validates suite YAML.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, errors.ValidationError("suite is not valid YAML: " + err.Error())
	}
	if len(suite.Cases) == 0 {
		return nil, errors.ValidationError("suite defines no test cases")
	}
	for i, tc := range suite.Cases {
		if tc.Name == "" {
			return nil, errors.ValidationError(fmt.Sprintf("suite case %d has no name", i+1))
		}
		if tc.Weight < 0 {
			return nil, errors.ValidationError(fmt.Sprintf("suite case %q has negative weight", tc.Name))
		}
	}
	return &suite, nil
}
