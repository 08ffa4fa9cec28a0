// Package config loads the YAML files that describe directories, datasets,
// processing chains and flows.
package config

// Dirs maps directory names to paths. Loaded dirs are handed to later
// loads as variables, so a dataset file can refer to ${data}.
type Dirs map[string]string

// Paths locates the files of a dataset.
type Paths struct {
	Data string `yaml:"data"`
	Meta string `yaml:"meta"`
	Feat string `yaml:"feat"`
}

// Split cuts every example of Key into frames of Size Unit.
type Split struct {
	Key        string  `yaml:"key"`
	Size       float64 `yaml:"size"`
	Unit       string  `yaml:"unit"`
	Constraint string  `yaml:"constraint"`
}

// Selector names a registered selector and its parameters.
type Selector struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"parameters"`
}

// XVal describes the cross-validation folds of a dataset.
type XVal struct {
	Folds int `yaml:"folds"`
	// Method is kfold (default) or group.
	Method string `yaml:"method"`
	// GroupKey holds the group index of every example for group folds.
	GroupKey string `yaml:"group_key"`
	Seed     int64  `yaml:"seed"`
}

// Dataset describes a registered dataset and the operations applied to it
// after loading.
type Dataset struct {
	Name     string    `yaml:"name"`
	Paths    Paths     `yaml:"paths"`
	Select   *Selector `yaml:"select"`
	Split    *Split    `yaml:"split"`
	TestOnly bool      `yaml:"test_only"`
	XVal     *XVal     `yaml:"xval"`
}

// Step is one processor of a chain.
type Step struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"parameters"`
}

// Chain is an ordered list of processors.
type Chain struct {
	Steps []Step `yaml:"chain"`
}

// Flow configures a feature extraction run.
type Flow struct {
	Dataset   string `yaml:"dataset"`
	Key       string `yaml:"key"`
	Features  string `yaml:"features"`
	NewKey    string `yaml:"new_key"`
	Dirs      string `yaml:"dir_conf"`
	Overwrite bool   `yaml:"overwrite"`
	Verbose   bool   `yaml:"verbose"`
	Workers   int    `yaml:"workers"`
	BufferLen int    `yaml:"buffer_len"`
}

// DefaultFlow returns the flow used when no file overrides it.
func DefaultFlow() Flow {
	return Flow{
		Dataset:   "EXAMPLE",
		Key:       "data",
		Features:  "EXAMPLE",
		NewKey:    "feat",
		Dirs:      "local_server",
		Verbose:   true,
		Workers:   5,
		BufferLen: 5,
	}
}
