package training

// Hyperparameters of the training run.
//
// nil fields are omitted on the wire, and the server decides.
// Values are not validated in client side; the server is the authority.
type Hyperparameters struct {
	LearningRate   *float64 `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`
	MaxLeafNodes   *float64 `json:"max_leaf_nodes,omitempty" yaml:"max_leaf_nodes,omitempty"`
	MinSamplesLeaf *float64 `json:"min_samples_leaf,omitempty" yaml:"min_samples_leaf,omitempty"`
	EarlyStopping  *bool    `json:"early_stopping,omitempty" yaml:"early_stopping,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

// Defaults are values which the dashboard offers before user edits.
func Defaults() Hyperparameters {
	return Hyperparameters{
		LearningRate:   ptr(0.1),
		MaxLeafNodes:   ptr(50.0),
		MinSamplesLeaf: ptr(20.0),
		EarlyStopping:  ptr(true),
	}
}

// Overlay returns hyperparameters where fields set in o replace ones in h.
func (h Hyperparameters) Overlay(o Hyperparameters) Hyperparameters {
	if o.LearningRate != nil {
		h.LearningRate = o.LearningRate
	}
	if o.MaxLeafNodes != nil {
		h.MaxLeafNodes = o.MaxLeafNodes
	}
	if o.MinSamplesLeaf != nil {
		h.MinSamplesLeaf = o.MinSamplesLeaf
	}
	if o.EarlyStopping != nil {
		h.EarlyStopping = o.EarlyStopping
	}
	return h
}

// Result is the response of POST /train .
type Result struct {
	Status       string          `json:"status"`
	ModelVersion string          `json:"model_version"`
	UsedParams   Hyperparameters `json:"used_params"`
	TrainingTime *float64        `json:"training_time,omitempty"`
	Accuracy     *float64        `json:"accuracy,omitempty"`
	Message      string          `json:"message,omitempty"`
}
