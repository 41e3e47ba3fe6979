package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Catalog is the response of GET /model/info .
type Catalog struct {
	// model names, in the order the server returns.
	AvailableModels []string       `json:"available_models"`
	TotalModels     int            `json:"total_models"`
	CurrentModel    CurrentModel   `json:"current_model"`
	ModelsSummary   []CatalogEntry `json:"models_summary"`
}

// Entry looks up summary for the model.
func (c *Catalog) Entry(modelName string) (CatalogEntry, bool) {
	for _, e := range c.ModelsSummary {
		if e.ModelName == modelName {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

type CurrentModel struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	// Datasets which the model has been trained on.
	//
	// Some servers name it "dataset_name". Both are read into here.
	TrainedOn []string `json:"trained_on,omitempty"`
	Classes   []string `json:"classes"`
}

func (cm *CurrentModel) UnmarshalJSON(b []byte) error {
	type plain CurrentModel
	f := new(struct {
		plain
		DatasetName json.RawMessage `json:"dataset_name"`
	})
	if err := json.Unmarshal(b, f); err != nil {
		return err
	}
	*cm = CurrentModel(f.plain)

	if len(cm.TrainedOn) != 0 || len(f.DatasetName) == 0 {
		return nil
	}

	// dataset_name may be a string or a list of strings.
	var one string
	if err := json.Unmarshal(f.DatasetName, &one); err == nil {
		if one != "" {
			cm.TrainedOn = []string{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(f.DatasetName, &many); err != nil {
		return fmt.Errorf(`"dataset_name" should be string or list of strings: %w`, err)
	}
	cm.TrainedOn = many
	return nil
}

type CatalogEntry struct {
	ModelName     string   `json:"model_name"`
	LatestVersion string   `json:"latest_version"`
	TotalVersions int      `json:"total_versions"`
	Versions      []string `json:"versions,omitempty"`
	Accuracy      float64  `json:"accuracy"`
}

// Versions is the response of GET /model-versions/{model} .
type Versions struct {
	ModelName     string   `json:"model_name"`
	Versions      []string `json:"versions"`
	TotalVersions int      `json:"total_versions"`

	// Version which server declares as the latest.
	//
	// Version strings are not sortable in general. This is the only source of "latest".
	LatestVersion string `json:"latest_version"`
}

type Files struct {
	Model   string `json:"model,omitempty"`
	Metrics string `json:"metrics"`
	Matrix  string `json:"matrix"`
}

// VersionDetail is the response of GET /model-info/{model}/{version} .
type VersionDetail struct {
	ModelName string               `json:"model_name"`
	Version   string               `json:"version"`
	Metrics   ClassificationReport `json:"metrics"`

	// rows are actual classes, columns are predicted classes,
	// both in the order of CANDIDATE, CONFIRMED, FALSE POSITIVE.
	ConfusionMatrix [][]int `json:"confusion_matrix"`
	Files           Files   `json:"files"`
	ModelExists     bool    `json:"model_exists"`
}

// Detailed is the response of GET /model-info/{model} .
type Detailed struct {
	ModelName       string               `json:"model_name"`
	ModelPath       string               `json:"model_path"`
	Metrics         ClassificationReport `json:"metrics"`
	ConfusionMatrix [][]int              `json:"confusion_matrix"`
	Files           Files                `json:"files"`
}

// Score is a row of classification report.
//
// Rows for each class and rows for averages have the same shape.
type Score struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   float64 `json:"support"`
}

func (s *Score) UnmarshalJSON(b []byte) error {
	f := new(struct {
		Precision float64  `json:"precision"`
		Recall    float64  `json:"recall"`
		F1Score   *float64 `json:"f1-score"`
		F1        *float64 `json:"f1"`
		Support   float64  `json:"support"`
	})
	if err := json.Unmarshal(b, f); err != nil {
		return err
	}
	s.Precision = f.Precision
	s.Recall = f.Recall
	s.Support = f.Support
	switch {
	case f.F1Score != nil:
		s.F1 = *f.F1Score
	case f.F1 != nil:
		s.F1 = *f.F1
	default:
		s.F1 = 0
	}
	return nil
}

// ClassificationReport is a report of classifier, keyed by class label or average name.
//
// In JSON, it is a flat object like
//
//	{
//	    "accuracy": 0.91,
//	    "CANDIDATE": {"precision": ..., "recall": ..., "f1-score": ..., "support": ...},
//	    "macro avg": {...},
//	    ...
//	}
//
// Keys of non-object values other than "accuracy" are ignored.
type ClassificationReport struct {
	Accuracy float64
	Rows     map[string]Score
}

// Row returns a row for the key as is. No key spelling variants are considered.
func (cr ClassificationReport) Row(key string) (Score, bool) {
	s, ok := cr.Rows[key]
	return s, ok
}

func (cr *ClassificationReport) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	cr.Accuracy = 0
	cr.Rows = map[string]Score{}
	for key, value := range raw {
		if key == "accuracy" {
			if err := json.Unmarshal(value, &cr.Accuracy); err != nil {
				return fmt.Errorf(`"accuracy" should be a number: %w`, err)
			}
			continue
		}
		if !bytes.HasPrefix(bytes.TrimSpace(value), []byte("{")) {
			continue
		}
		var s Score
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf(`row "%s" is broken: %w`, key, err)
		}
		cr.Rows[key] = s
	}
	return nil
}

func (cr ClassificationReport) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(cr.Rows)+1)
	for k, v := range cr.Rows {
		flat[k] = v
	}
	flat["accuracy"] = cr.Accuracy
	return json.Marshal(flat)
}
