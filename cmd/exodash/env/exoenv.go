package env

import (
	"os"

	"github.com/opst/exodash/pkg/api/types/predictions"
	"github.com/opst/exodash/pkg/api/types/training"
	"gopkg.in/yaml.v3"
)

// ExoEnv is defaults of a project directory.
type ExoEnv struct {
	// Model used when a command does not specify one. Empty means "resolve".
	Model string `yaml:"model,omitempty"`

	// Version used when a command does not specify one. Empty means "resolve".
	Version string `yaml:"version,omitempty"`

	// Hyperparameters for training. Unset fields are the dashboard defaults.
	Train training.Hyperparameters `yaml:"train,omitempty"`
}

func New() *ExoEnv {
	return new(ExoEnv)
}

// LoadExoEnv reads exoenv file.
//
// When the file cannot be read, empty ExoEnv is returned.
func LoadExoEnv(filepath string) (*ExoEnv, error) {
	env := ExoEnv{}

	content, err := os.ReadFile(filepath)
	if err != nil {
		return &env, nil
	}

	if err := yaml.Unmarshal(content, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Params is model selection of the exoenv, overridden by non-empty arguments.
func (e *ExoEnv) Params(modelName string, version string) predictions.Params {
	p := predictions.Params{ModelName: e.Model, Version: e.Version}
	if modelName != "" {
		p.ModelName = modelName
		if version == "" && modelName != e.Model {
			// version of other model is meaningless.
			p.Version = ""
		}
	}
	if version != "" {
		p.Version = version
	}
	return p
}

// TrainDefaults is the dashboard defaults overlaid with train section.
func (e *ExoEnv) TrainDefaults() training.Hyperparameters {
	return training.Defaults().Overlay(e.Train)
}
