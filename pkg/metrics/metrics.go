// Package metrics reshapes classification metrics sent by the server into fixed-shape views.
package metrics

import (
	"github.com/opst/exodash/pkg/api/types/models"
	xe "github.com/opst/exodash/pkg/errors"
)

type Class string

const (
	Candidate     Class = "CANDIDATE"
	Confirmed     Class = "CONFIRMED"
	FalsePositive Class = "FALSE POSITIVE"
)

// Classes in the order of rows and columns of confusion matrices.
var Classes = []Class{Candidate, Confirmed, FalsePositive}

// ConfusionMatrix maps actual class -> predicted class -> count.
type ConfusionMatrix map[Class]map[Class]int

// ClassDistribution maps actual class -> count.
//
// This is always derived from a ConfusionMatrix as its row sums.
type ClassDistribution map[Class]int

// Total is the number of samples.
func (d ClassDistribution) Total() int {
	t := 0
	for _, v := range d {
		t += v
	}
	return t
}

// Normalize converts raw 3x3 matrix into ConfusionMatrix and ClassDistribution.
//
// raw[i][j] is a count of samples of actual class Classes[i] predicted as Classes[j].
//
// # Returns
//
// - ConfusionMatrix, ClassDistribution
//
// - error: ErrContractViolation when raw is not exactly 3x3.
// In that case, both of maps are nil.
func Normalize(raw [][]int) (ConfusionMatrix, ClassDistribution, error) {
	if len(raw) != len(Classes) {
		return nil, nil, xe.Contract(
			"confusion matrix should have %d rows, but has %d", len(Classes), len(raw),
		)
	}
	for i, row := range raw {
		if len(row) != len(Classes) {
			return nil, nil, xe.Contract(
				"row %d of confusion matrix should have %d columns, but has %d",
				i, len(Classes), len(row),
			)
		}
	}

	matrix := make(ConfusionMatrix, len(Classes))
	dist := make(ClassDistribution, len(Classes))
	for i, actual := range Classes {
		row := make(map[Class]int, len(Classes))
		sum := 0
		for j, predicted := range Classes {
			row[predicted] = raw[i][j]
			sum += raw[i][j]
		}
		matrix[actual] = row
		dist[actual] = sum
	}
	return matrix, dist, nil
}

// AggregateKind tells which row of the report an aggregate is taken from.
type AggregateKind string

const (
	MacroAverage    AggregateKind = "macro"
	WeightedAverage AggregateKind = "weighted"
	NoAggregate     AggregateKind = "none"
)

type aggregateKey struct {
	key  string
	kind AggregateKind
}

// Keys tried to find aggregate row, in priority order.
//
// Servers have spelled these keys in two ways historically. Both should be tried.
var aggregateKeys = []aggregateKey{
	{key: "macro avg", kind: MacroAverage},
	{key: "macro_avg", kind: MacroAverage},
	{key: "weighted avg", kind: WeightedAverage},
	{key: "weighted_avg", kind: WeightedAverage},
}

// Summary is the headline numbers of a report.
type Summary struct {
	Accuracy  float64       `json:"accuracy"`
	Precision float64       `json:"precision"`
	Recall    float64       `json:"recall"`
	F1        float64       `json:"f1"`
	Source    AggregateKind `json:"source"`
}

// Aggregate looks up the aggregate row of report.
//
// It takes the first present row of "macro avg", "macro_avg", "weighted avg", "weighted_avg".
// When none of them is present, precision, recall and F1 are 0 and Source is NoAggregate.
func Aggregate(report models.ClassificationReport) Summary {
	for _, k := range aggregateKeys {
		if row, ok := report.Row(k.key); ok {
			return Summary{
				Accuracy:  report.Accuracy,
				Precision: row.Precision,
				Recall:    row.Recall,
				F1:        row.F1,
				Source:    k.kind,
			}
		}
	}
	return Summary{Accuracy: report.Accuracy, Source: NoAggregate}
}

type ClassScore struct {
	Class Class `json:"class"`

	// false if the report has no row for the class. Scores are zero then.
	Present bool `json:"present"`

	Score models.Score `json:"score"`
}

// PerClass returns rows for each class, in the order of Classes.
func PerClass(report models.ClassificationReport) []ClassScore {
	ret := make([]ClassScore, 0, len(Classes))
	for _, c := range Classes {
		row, ok := report.Row(string(c))
		ret = append(ret, ClassScore{Class: c, Present: ok, Score: row})
	}
	return ret
}

// SupportMismatches returns classes whose support in the report differs from
// their count in the distribution.
//
// Classes without a row in the report are not checked.
func SupportMismatches(report models.ClassificationReport, dist ClassDistribution) []Class {
	var ret []Class
	for _, c := range Classes {
		row, ok := report.Row(string(c))
		if !ok {
			continue
		}
		if int(row.Support) != dist[c] || row.Support != float64(int(row.Support)) {
			ret = append(ret, c)
		}
	}
	return ret
}

// View is a normalized dashboard view of a model version.
type View struct {
	ModelName         string            `json:"model_name"`
	Version           string            `json:"version"`
	ModelExists       bool              `json:"model_exists"`
	Summary           Summary           `json:"summary"`
	PerClass          []ClassScore      `json:"per_class"`
	ConfusionMatrix   ConfusionMatrix   `json:"confusion_matrix"`
	ClassDistribution ClassDistribution `json:"class_distribution"`
	Total             int               `json:"total"`
	SupportMismatches []Class           `json:"support_mismatches,omitempty"`
}

// Dashboard builds View of detail.
//
// # Returns
//
// - View
//
// - error: ErrContractViolation when the confusion matrix is malformed.
// Nothing partial is returned then.
func Dashboard(detail models.VersionDetail) (View, error) {
	matrix, dist, err := Normalize(detail.ConfusionMatrix)
	if err != nil {
		return View{}, err
	}
	return View{
		ModelName:         detail.ModelName,
		Version:           detail.Version,
		ModelExists:       detail.ModelExists,
		Summary:           Aggregate(detail.Metrics),
		PerClass:          PerClass(detail.Metrics),
		ConfusionMatrix:   matrix,
		ClassDistribution: dist,
		Total:             dist.Total(),
		SupportMismatches: SupportMismatches(detail.Metrics, dist),
	}, nil
}
