package workflow

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/opst/exodash/pkg/api/types/predictions"
	xe "github.com/opst/exodash/pkg/errors"
)

// ParseFeatures reads a form of KOI features.
//
// Blank values are absent. Values which are not finite numbers are absent, too.
// Optional features are included only when present.
//
// # Returns
//
// - predictions.Features
//
// - error: ValidationFailure naming unknown fields, or required fields which are absent.
func ParseFeatures(form map[string]string) (predictions.Features, error) {
	features := predictions.Features{}
	unknown := []string{}

	for name, raw := range form {
		name = strings.TrimSpace(name)
		if !predictions.IsFeature(name) {
			unknown = append(unknown, name)
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		features[name] = v
	}

	if len(unknown) != 0 {
		slices.Sort(unknown)
		return nil, xe.NewValidationFailure("unknown features", unknown...)
	}

	missing := []string{}
	for _, name := range predictions.RequiredFeatures {
		if _, ok := features[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) != 0 {
		return nil, xe.NewValidationFailure("required features are missing or not numeric", missing...)
	}

	return features, nil
}

type Predictor interface {
	Predict(ctx context.Context, records []predictions.Features, params predictions.Params) (predictions.Response, error)
}

// Prediction is the payload of succeeded Predict.
type Prediction struct {
	Features  predictions.Features   `json:"features"`
	Result    predictions.Result     `json:"result"`
	ModelInfo *predictions.ModelInfo `json:"model_info,omitempty"`
}

// Predict classifies one record given from a form.
type Predict struct {
	client  Predictor
	machine *Machine[Prediction]
}

func NewPredict(client Predictor) *Predict {
	return &Predict{client: client, machine: NewMachine[Prediction]()}
}

func (p *Predict) State() State[Prediction] {
	return p.machine.State()
}

// Start begins prediction in background.
//
// Invalid form is reported before any request, and the workflow is Failed then.
//
// # Returns
//
// - *Pending[Prediction]: the request in flight.
//
// - error: ErrBusy, or ValidationFailure.
func (p *Predict) Start(ctx context.Context, form map[string]string, params predictions.Params) (*Pending[Prediction], error) {
	tok, err := p.machine.Begin("")
	if err != nil {
		return nil, err
	}

	features, err := ParseFeatures(form)
	if err != nil {
		p.machine.Fail(tok, err)
		return nil, err
	}

	return p.machine.spawn(tok, func() (Prediction, error) {
		resp, err := p.client.Predict(ctx, []predictions.Features{features}, params)
		if err != nil {
			return Prediction{}, err
		}
		if len(resp.Predictions) != 1 {
			return Prediction{}, xe.Contract("1 prediction is expected, but got %d", len(resp.Predictions))
		}
		return Prediction{Features: features, Result: resp.Predictions[0], ModelInfo: resp.ModelInfo}, nil
	}, nil, ""), nil
}

// Run is Start and Wait.
func (p *Predict) Run(ctx context.Context, form map[string]string, params predictions.Params) (Prediction, error) {
	pending, err := p.Start(ctx, form, params)
	if err != nil {
		return Prediction{}, err
	}
	return pending.Wait()
}
