package info

import (
	"context"
	"encoding/json"
	"log"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/youta-t/flarc"
)

const ARG_MODEL = "MODEL"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show an overview of a model: its versions, headline metrics and files.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_MODEL, Required: false,
				Help: "model name. If omitted, the model in exoenv, or the current model of the server.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Show an overview of a model.

Files and metrics are the ones of the version which the server loads for the model.
When the server does not tell them, "detailed" is false and only the catalog entry is shown.
`),
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

		ov, err := rest.ModelOverview(ctx, client, modelName)
		if err != nil {
			return err
		}
		if !ov.Detailed {
			logger.Printf("details of model %s are not available", ov.ModelName)
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(ov); err != nil {
			logger.Panicf("fail to dump model overview")
		}
		return nil
	}
}
