package common_test

import (
	"context"
	"errors"
	"testing"

	"github.com/opst/exodash/cmd/exodash/rest/mock"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/opst/exodash/pkg/api/types/models"
	"github.com/opst/exodash/pkg/api/types/predictions"
	xe "github.com/opst/exodash/pkg/errors"
	"github.com/opst/exodash/pkg/resolver"
)

func TestSelect(t *testing.T) {
	type When struct {
		want predictions.Params
	}
	type Then struct {
		selection resolver.Selection
		err       error
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			client := mock.New(t)
			client.Impl.ModelInfo = func(context.Context) (models.Catalog, error) {
				return models.Catalog{AvailableModels: []string{"m1", "m2", "m3"}}, nil
			}
			client.Impl.ModelVersions = func(_ context.Context, modelName string) (models.Versions, error) {
				switch modelName {
				case "m1":
					return models.Versions{ModelName: "m1", Versions: []string{"v1", "v2"}, LatestVersion: "v2"}, nil
				case "m2":
					return models.Versions{ModelName: "m2", Versions: []string{"v9"}, LatestVersion: "v9"}, nil
				default:
					return models.Versions{ModelName: modelName}, nil
				}
			}

			state, err := common.Select(context.Background(), client, when.want)
			if then.err != nil {
				if !errors.Is(err, then.err) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if state.Selection != then.selection {
				t.Errorf("selection = %+v, expected = %+v", state.Selection, then.selection)
			}
		}
	}

	t.Run("without preference, the latest version of the first model", theory(
		When{},
		Then{selection: resolver.Selection{ModelName: "m1", Version: "v2"}},
	))
	t.Run("a version of the first model", theory(
		When{want: predictions.Params{Version: "v1"}},
		Then{selection: resolver.Selection{ModelName: "m1", Version: "v1"}},
	))
	t.Run("the latest version of another model", theory(
		When{want: predictions.Params{ModelName: "m2"}},
		Then{selection: resolver.Selection{ModelName: "m2", Version: "v9"}},
	))
	t.Run("unknown model", theory(
		When{want: predictions.Params{ModelName: "m404"}},
		Then{err: xe.ErrValidation},
	))
	t.Run("unknown version", theory(
		When{want: predictions.Params{ModelName: "m2", Version: "v1"}},
		Then{err: xe.ErrValidation},
	))
	t.Run("model without versions", theory(
		When{want: predictions.Params{ModelName: "m3"}},
		Then{err: common.ErrNothingSelected},
	))
}
