package metrics

import (
	"strings"

	"github.com/opst/exodash/pkg/api/types/models"
	xe "github.com/opst/exodash/pkg/errors"
)

// Roles of model artifacts.
const (
	RoleModel   = "model"
	RoleMetrics = "metrics"
	RoleMatrix  = "matrix"
)

// File is an artifact of a model kept by the server.
type File struct {
	Role string `json:"role"`

	// Path as the server tells.
	Path string `json:"path"`

	// Name is the last path segment of Path.
	Name string `json:"name"`

	// What the file is, guessed from its extension.
	Kind string `json:"kind"`
}

// FileName returns the last segment of a slash separated path.
//
// When path ends with "/", path itself is returned.
func FileName(path string) string {
	if i := strings.LastIndex(path, "/"); 0 <= i && i < len(path)-1 {
		return path[i+1:]
	}
	return path
}

// FileKind describes a file by its extension.
func FileKind(name string) string {
	ext := ""
	if i := strings.LastIndex(name, "."); 0 <= i {
		ext = strings.ToLower(name[i+1:])
	}
	switch ext {
	case "pkl":
		return "trained model"
	case "json":
		return "classification metrics"
	case "npy":
		return "confusion matrix"
	case "csv":
		return "training dataset"
	default:
		return "data file"
	}
}

// Overview is what is known about a model family.
type Overview struct {
	ModelName string `json:"model_name"`

	// Current is true when the server uses the model by default.
	Current        bool   `json:"current"`
	CurrentVersion string `json:"current_version,omitempty"`

	LatestVersion string  `json:"latest_version,omitempty"`
	TotalVersions int     `json:"total_versions"`
	Accuracy      float64 `json:"accuracy"`

	// Detailed is false when the server has not told the details.
	// Fields below are empty then.
	Detailed          bool              `json:"detailed"`
	ModelPath         string            `json:"model_path,omitempty"`
	Files             []File            `json:"files,omitempty"`
	Summary           *Summary          `json:"summary,omitempty"`
	ClassDistribution ClassDistribution `json:"class_distribution,omitempty"`
	Total             int               `json:"total,omitempty"`
}

// NewOverview builds Overview of the model from the catalog and, if any, the detail.
//
// # Returns
//
// - Overview
//
// - error: ValidationFailure when the catalog does not have the model,
// or ErrContractViolation when the confusion matrix in the detail is malformed.
func NewOverview(catalog models.Catalog, modelName string, detail *models.Detailed) (Overview, error) {
	known := false
	for _, m := range catalog.AvailableModels {
		if m == modelName {
			known = true
			break
		}
	}
	entry, inSummary := catalog.Entry(modelName)
	if !known && !inSummary {
		return Overview{}, xe.NewValidationFailure("unknown model: "+modelName, "model_name")
	}

	ov := Overview{
		ModelName:     modelName,
		LatestVersion: entry.LatestVersion,
		TotalVersions: entry.TotalVersions,
		Accuracy:      entry.Accuracy,
	}
	if catalog.CurrentModel.Name == modelName {
		ov.Current = true
		ov.CurrentVersion = catalog.CurrentModel.Version
	}
	if detail == nil {
		return ov, nil
	}

	ov.Detailed = true
	ov.ModelPath = detail.ModelPath
	modelFile := detail.Files.Model
	if modelFile == "" {
		modelFile = detail.ModelPath
	}
	for _, f := range []struct{ role, path string }{
		{role: RoleModel, path: modelFile},
		{role: RoleMetrics, path: detail.Files.Metrics},
		{role: RoleMatrix, path: detail.Files.Matrix},
	} {
		if f.path == "" {
			continue
		}
		name := FileName(f.path)
		ov.Files = append(ov.Files, File{Role: f.role, Path: f.path, Name: name, Kind: FileKind(name)})
	}

	summary := Aggregate(detail.Metrics)
	ov.Summary = &summary

	// some servers do not send the matrix for a model family.
	if len(detail.ConfusionMatrix) != 0 {
		_, dist, err := Normalize(detail.ConfusionMatrix)
		if err != nil {
			return Overview{}, err
		}
		ov.ClassDistribution = dist
		ov.Total = dist.Total()
	}
	return ov, nil
}
