package resolver

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// overridesFile is the YAML shape for user-supplied resolver overrides:
//
//	overrides:
//	  - module: clamav
//	    controller: url
//	    suffix: url
//	    item: list
type overridesFile struct {
	Overrides []overrideEntry `yaml:"overrides"`
}

type overrideEntry struct {
	Module     string `yaml:"module"`
	Controller string `yaml:"controller"`
	Suffix     string `yaml:"suffix"`
	Item       string `yaml:"item"`
}

// LoadOverrides reads extra endpoint→item overrides from a YAML file. They
// are merged on top of the built-in table by New.
func LoadOverrides(path string) (map[OverrideKey]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read overrides")
	}
	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse overrides")
	}

	overrides := make(map[OverrideKey]string, len(file.Overrides))
	for i, e := range file.Overrides {
		if e.Module == "" || e.Controller == "" || e.Suffix == "" || e.Item == "" {
			return nil, errors.Newf("overrides entry %d: module, controller, suffix, and item are all required", i)
		}
		key := OverrideKey{
			Module:     strings.ToLower(e.Module),
			Controller: strings.ToLower(e.Controller),
			Suffix:     strings.ToLower(e.Suffix),
		}
		overrides[key] = strings.ToLower(e.Item)
	}
	return overrides, nil
}
