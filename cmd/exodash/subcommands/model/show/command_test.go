package show_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest/mock"
	"github.com/opst/exodash/cmd/exodash/subcommands/internal/commandline"
	"github.com/opst/exodash/cmd/exodash/subcommands/logger"
	"github.com/opst/exodash/cmd/exodash/subcommands/model/show"
	"github.com/opst/exodash/pkg/api/types/models"
	xe "github.com/opst/exodash/pkg/errors"
	"github.com/opst/exodash/pkg/metrics"
)

func TestShow(t *testing.T) {
	type When struct {
		env   env.ExoEnv
		flags show.Flags
		err   error
	}
	type Then struct {
		asked []mock.ModelVersionInfoArgs
		err   error
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			client := mock.New(t)
			client.Impl.ModelInfo = func(context.Context) (models.Catalog, error) {
				return models.Catalog{AvailableModels: []string{"m1", "m2"}}, nil
			}
			client.Impl.ModelVersions = func(_ context.Context, modelName string) (models.Versions, error) {
				return models.Versions{ModelName: modelName, Versions: []string{"v1", "v2"}, LatestVersion: "v2"}, nil
			}
			client.Impl.DashboardMetrics = func(_ context.Context, modelName, version string) (metrics.View, error) {
				if when.err != nil {
					return metrics.View{}, when.err
				}
				return metrics.View{
					ModelName: modelName, Version: version, ModelExists: true,
					ClassDistribution: metrics.ClassDistribution{metrics.Confirmed: 3},
					Total:             3,
				}, nil
			}

			stdout := new(strings.Builder)
			err := show.Task()(
				context.Background(), logger.Null(), when.env, client,
				commandline.MockCommandline[show.Flags]{
					Fullname_: "exodash model show",
					Stdout_:   stdout,
					Flags_:    when.flags,
				},
				[]any{},
			)
			if then.err != nil {
				if !errors.Is(err, then.err) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if !slices.Equal(client.Calls.DashboardMetrics, then.asked) {
				t.Errorf("asked = %+v, expected = %+v", client.Calls.DashboardMetrics, then.asked)
			}
			view := metrics.View{}
			if err := json.Unmarshal([]byte(stdout.String()), &view); err != nil {
				t.Fatal(err)
			}
			if view.ModelName != then.asked[0].ModelName || view.Total != 3 {
				t.Errorf("output = %s", stdout)
			}
		}
	}

	t.Run("resolved selection is shown", theory(
		When{},
		Then{asked: []mock.ModelVersionInfoArgs{{ModelName: "m1", Version: "v2"}}},
	))
	t.Run("flags are used", theory(
		When{flags: show.Flags{Model: "m2", Version: "v1"}},
		Then{asked: []mock.ModelVersionInfoArgs{{ModelName: "m2", Version: "v1"}}},
	))
	t.Run("exoenv is used", theory(
		When{env: env.ExoEnv{Model: "m2", Version: "v1"}},
		Then{asked: []mock.ModelVersionInfoArgs{{ModelName: "m2", Version: "v1"}}},
	))
	t.Run("flag overrides exoenv", theory(
		When{env: env.ExoEnv{Model: "m2", Version: "v1"}, flags: show.Flags{Model: "m1"}},
		Then{asked: []mock.ModelVersionInfoArgs{{ModelName: "m1", Version: "v2"}}},
	))
	t.Run("unknown version is rejected before metrics are requested", theory(
		When{flags: show.Flags{Version: "v404"}},
		Then{err: xe.ErrValidation},
	))
	t.Run("contract violation is passed through", theory(
		When{err: xe.Contract("matrix is not square")},
		Then{err: xe.ErrContractViolation},
	))
}
