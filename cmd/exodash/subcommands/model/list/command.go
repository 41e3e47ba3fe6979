package list

import (
	"context"
	"encoding/json"
	"log"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show the catalog of models.",
		struct{}{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Show the catalog of models: available models, the current model and the summary of each model.
`),
	)
}

func Task() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		_ env.ExoEnv,
		client rest.ExoClient,
		cl flarc.Commandline[struct{}],
		_ []any,
	) error {
		catalog, err := client.ModelInfo(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(catalog); err != nil {
			logger.Panicf("fail to dump catalog")
		}
		return nil
	}
}
