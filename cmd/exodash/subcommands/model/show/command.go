package show

import (
	"context"
	"encoding/json"
	"log"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model   string `flag:"model" alias:"m" metavar:"MODEL" help:"model name. If omitted, the model in exoenv, or the first model of the catalog."`
	Version string `flag:"version" alias:"v" metavar:"VERSION" help:"version of the model. If omitted, the version in exoenv, or the latest."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show metrics of a model version.",
		Flags{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Show metrics of a model version, as the dashboard shows:
accuracy and averages, per-class scores, the confusion matrix and the class distribution.

When per-class support in the classification report disagrees with the confusion matrix,
the classes are listed in "support_mismatches" and warned.
`),
	)
}

func Task() common.Task[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		exoEnv env.ExoEnv,
		client rest.ExoClient,
		cl flarc.Commandline[Flags],
		_ []any,
	) error {
		flags := cl.Flags()
		state, err := common.Select(ctx, client, exoEnv.Params(flags.Model, flags.Version))
		if err != nil {
			return err
		}
		sel := state.Selection

		view, err := client.DashboardMetrics(ctx, sel.ModelName, sel.Version)
		if err != nil {
			return err
		}
		for _, c := range view.SupportMismatches {
			logger.Printf("[WARN] support of %s disagrees with the confusion matrix", c)
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(view); err != nil {
			logger.Panicf("fail to dump metrics")
		}
		return nil
	}
}
