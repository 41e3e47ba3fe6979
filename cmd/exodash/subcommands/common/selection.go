package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/opst/exodash/pkg/api/types/predictions"
	"github.com/opst/exodash/pkg/resolver"
)

var ErrNothingSelected = errors.New("no model version is available")

// Select resolves a model and its version through the catalog.
//
// Empty ModelName picks the first model of the catalog, and empty Version picks the latest version.
func Select(ctx context.Context, catalog resolver.Catalog, want predictions.Params) (resolver.State, error) {
	r := resolver.New(catalog, nil)
	if err := r.Load(ctx); err != nil {
		return r.State(), err
	}

	if want.ModelName != "" && want.ModelName != r.State().Model {
		if err := r.SelectModel(ctx, want.ModelName); err != nil {
			return r.State(), err
		}
	}

	state := r.State()
	if state.Phase != resolver.Ready {
		if state.Model == "" {
			return state, fmt.Errorf("%w: catalog has no models", ErrNothingSelected)
		}
		return state, fmt.Errorf("%w: model %s has no versions", ErrNothingSelected, state.Model)
	}

	if want.Version != "" {
		if err := r.SelectVersion(want.Version); err != nil {
			return r.State(), err
		}
	}
	return r.State(), nil
}
