package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// triggerFile is the on-disk shape of a schedule file: a flat list of
// triggers, each naming the template it dispatches and the cron expression
// that fires it.
type triggerFile struct {
	Triggers []Trigger `yaml:"triggers"`
}

// LoadTriggers reads trigger definitions from a YAML file. A missing file
// is not an error — an operator who configures no schedule file simply runs
// without any cron triggers.
func LoadTriggers(path string) ([]Trigger, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}

	var tf triggerFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing schedule file: %w", err)
	}
	return tf.Triggers, nil
}
