package train

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"time"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/opst/exodash/pkg/workflow"
	"github.com/youta-t/flarc"
)

// Flags are strings, so that blank means "default".
type Flags struct {
	LearningRate   string `flag:"learning-rate" metavar:"RATE" help:"learning rate. default: exoenv, or 0.1"`
	MaxLeafNodes   string `flag:"max-leaf-nodes" metavar:"N" help:"max leaf nodes. default: exoenv, or 50"`
	MinSamplesLeaf string `flag:"min-samples-leaf" metavar:"N" help:"min samples per leaf. default: exoenv, or 20"`
	EarlyStopping  string `flag:"early-stopping" metavar:"yes|no" help:"use early stopping. default: exoenv, or yes"`
}

func (f Flags) Form() map[string]string {
	return map[string]string{
		"learning_rate":    f.LearningRate,
		"max_leaf_nodes":   f.MaxLeafNodes,
		"min_samples_leaf": f.MinSamplesLeaf,
		"early_stopping":   f.EarlyStopping,
	}
}

type Option struct {
	progressOut io.Writer
	advisory    workflow.Advisory
	interval    time.Duration
}

func WithProgress(w io.Writer, advisory workflow.Advisory, interval time.Duration) func(*Option) *Option {
	return func(o *Option) *Option {
		o.progressOut = w
		o.advisory = advisory
		o.interval = interval
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{
		progressOut: os.Stderr,
		advisory:    workflow.TrainAdvisory(),
		interval:    250 * time.Millisecond,
	}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"Train a new model version.",
		Flags{},
		flarc.Args{},
		common.NewTask(Task(option.progressOut, option.advisory, option.interval)),
		flarc.WithDescription(`
Train a new model version with hyperparameters.

Hyperparameters not given by flags are taken from the "train" section of exoenv,
and then the defaults (learning rate 0.1, max leaf nodes 50, min samples leaf 20, early stopping).
Ranges are not checked here; the server decides.

The progress bar is an estimate while waiting the server. It completes only when the server responds.
`),
	)
}

func Task(progressOut io.Writer, advisory workflow.Advisory, interval time.Duration) common.Task[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		exoEnv env.ExoEnv,
		client rest.ExoClient,
		cl flarc.Commandline[Flags],
		_ []any,
	) error {
		train := workflow.NewTrain(client, advisory)
		pending, err := train.Start(ctx, cl.Flags().Form(), exoEnv.TrainDefaults())
		if err != nil {
			return err
		}
		common.Follow(progressOut, workflow.StepStarting, interval, train.State, pending.Done())
		result, err := pending.Wait()
		if err != nil {
			return err
		}
		logger.Printf("new version: %s", result.ModelVersion)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(result); err != nil {
			logger.Panicf("fail to dump training result")
		}
		return nil
	}
}
