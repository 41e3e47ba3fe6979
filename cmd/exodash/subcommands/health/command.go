package health

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
		"Check the API is up.",
		struct{}{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Check the API is up.

When the API has no health endpoint, the model catalog is requested instead.
"via" in the output tells which one has answered.
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
		h, err := client.Health(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(h)
	}
}
