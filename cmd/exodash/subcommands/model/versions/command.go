package versions

import (
	"context"
	"encoding/json"
	"log"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/opst/exodash/pkg/api/types/models"
	"github.com/opst/exodash/pkg/api/types/predictions"
	"github.com/youta-t/flarc"
)

const ARG_MODEL = "MODEL"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show versions of a model.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_MODEL, Required: false,
				Help: "model name. If omitted, the model in exoenv, or the first model of the catalog.",
			},
		},
		common.NewTask(Task()),
	)
}

func Task() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		exoEnv env.ExoEnv,
		client rest.ExoClient,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		modelName := exoEnv.Model
		if a := cl.Args()[ARG_MODEL]; len(a) != 0 && a[0] != "" {
			modelName = a[0]
		}

		var versions models.Versions
		if modelName != "" {
			v, err := client.ModelVersions(ctx, modelName)
			if err != nil {
				return err
			}
			versions = v
		} else {
			state, err := common.Select(ctx, client, predictions.Params{})
			if err != nil {
				return err
			}
			logger.Printf("model %s is resolved", state.Model)
			versions = models.Versions{
				ModelName:     state.Model,
				Versions:      state.Versions,
				TotalVersions: len(state.Versions),
				LatestVersion: state.Selection.Version,
			}
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(versions); err != nil {
			logger.Panicf("fail to dump versions")
		}
		return nil
	}
}
