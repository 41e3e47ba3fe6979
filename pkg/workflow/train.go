package workflow

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/opst/exodash/pkg/api/types/training"
	xe "github.com/opst/exodash/pkg/errors"
)

const (
	StepStarting  = "Starting training..."
	StepTraining  = "Training model..."
	StepCompleted = "Training completed successfully!"
)

// ParseHyperparameters reads a form of hyperparameters over base.
//
// Blank values leave base as is. Ranges are not checked; the server decides.
//
// # Returns
//
// - training.Hyperparameters
//
// - error: ValidationFailure naming unknown fields, or fields which are not number (or boolean).
func ParseHyperparameters(form map[string]string, base training.Hyperparameters) (training.Hyperparameters, error) {
	ret := base
	invalid := []string{}
	unknown := []string{}

	number := func(name string, raw string, dest **float64) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			invalid = append(invalid, name)
			return
		}
		*dest = &v
	}

	for name, raw := range form {
		name = strings.TrimSpace(name)
		raw = strings.TrimSpace(raw)
		if raw == "" {
			switch name {
			case "learning_rate", "max_leaf_nodes", "min_samples_leaf", "early_stopping":
				continue
			}
		}
		switch name {
		case "learning_rate":
			number(name, raw, &ret.LearningRate)
		case "max_leaf_nodes":
			number(name, raw, &ret.MaxLeafNodes)
		case "min_samples_leaf":
			number(name, raw, &ret.MinSamplesLeaf)
		case "early_stopping":
			b, ok := parseSwitch(raw)
			if !ok {
				invalid = append(invalid, name)
				continue
			}
			ret.EarlyStopping = &b
		default:
			unknown = append(unknown, name)
		}
	}

	if len(unknown) != 0 {
		slices.Sort(unknown)
		return training.Hyperparameters{}, xe.NewValidationFailure("unknown hyperparameters", unknown...)
	}
	if len(invalid) != 0 {
		slices.Sort(invalid)
		return training.Hyperparameters{}, xe.NewValidationFailure("hyperparameters are malformed", invalid...)
	}
	return ret, nil
}

// parseSwitch reads boolean, including checkbox values of html forms.
func parseSwitch(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, true
	case "off", "no":
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	return b, err == nil
}

type Trainer interface {
	Train(ctx context.Context, hyperparameters training.Hyperparameters) (training.Result, error)
}

// Train trains a new model version.
type Train struct {
	client   Trainer
	advisory Advisory
	machine  *Machine[training.Result]
}

func NewTrain(client Trainer, advisory Advisory) *Train {
	return &Train{client: client, advisory: advisory, machine: NewMachine[training.Result]()}
}

func (t *Train) State() State[training.Result] {
	return t.machine.State()
}

// Start begins training in background with hyperparameters given from form over base.
//
// # Returns
//
// - *Pending[training.Result]: the training in flight.
//
// - error: ErrBusy, or ValidationFailure.
func (t *Train) Start(
	ctx context.Context, form map[string]string, base training.Hyperparameters,
) (*Pending[training.Result], error) {
	tok, err := t.machine.Begin(StepStarting)
	if err != nil {
		return nil, err
	}
	hp, err := ParseHyperparameters(form, base)
	if err != nil {
		t.machine.Fail(tok, err)
		return nil, err
	}

	stop := t.advisory.Start(func(progress int, step string) {
		t.machine.Progress(tok, progress, step)
	})
	return t.machine.spawn(tok, func() (training.Result, error) {
		return t.client.Train(ctx, hp)
	}, stop, StepCompleted), nil
}

// Run is Start and Wait.
func (t *Train) Run(
	ctx context.Context, form map[string]string, base training.Hyperparameters,
) (training.Result, error) {
	pending, err := t.Start(ctx, form, base)
	if err != nil {
		return training.Result{}, err
	}
	return pending.Wait()
}
