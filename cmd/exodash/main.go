package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	subhealth "github.com/opst/exodash/cmd/exodash/subcommands/health"
	subinit "github.com/opst/exodash/cmd/exodash/subcommands/init"
	"github.com/opst/exodash/cmd/exodash/subcommands/logger"
	submodel "github.com/opst/exodash/cmd/exodash/subcommands/model"
	subpredict "github.com/opst/exodash/cmd/exodash/subcommands/predict"
	subserve "github.com/opst/exodash/cmd/exodash/subcommands/serve"
	subtrain "github.com/opst/exodash/cmd/exodash/subcommands/train"
	subupload "github.com/opst/exodash/cmd/exodash/subcommands/upload"
	subver "github.com/opst/exodash/cmd/exodash/subcommands/version"
	"github.com/opst/exodash/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	logger := logger.Default()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := try.To(common.Flags(".")).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	model := try.To(submodel.New()).OrFatal(logger)
	predict := try.To(subpredict.New()).OrFatal(logger)
	upload := try.To(subupload.New()).OrFatal(logger)
	train := try.To(subtrain.New()).OrFatal(logger)
	health := try.To(subhealth.New()).OrFatal(logger)
	serve := try.To(subserve.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	exodash := try.To(
		flarc.NewCommandGroup(
			"Exoplanet classification dashboard",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("model", model),
			flarc.WithSubcommand("predict", predict),
			flarc.WithSubcommand("upload", upload),
			flarc.WithSubcommand("train", train),
			flarc.WithSubcommand("health", health),
			flarc.WithSubcommand("serve", serve),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, exodash, flarc.WithHelp(true)))
}
