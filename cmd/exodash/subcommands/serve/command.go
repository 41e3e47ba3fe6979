package serve

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/config/profiles"
	"github.com/opst/exodash/cmd/exodash/dashboard"
	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	kcd "github.com/opst/exodash/pkg/configs/dashboard"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Config string `flag:"config" alias:"c" metavar:"PATH" help:"dashboard config file. Changes of the file stop the server."`
	Port   int    `flag:"port" alias:"p" metavar:"PORT" help:"port to listen. It overrides the config file."`
}

// ServeFunc runs the server until it stops.
type ServeFunc func(ctx context.Context, logger *log.Logger, e *echo.Echo, port int, watch ...string) error

type Option struct {
	getenv func(string) string
	serve  ServeFunc
}

func WithServe(serve ServeFunc) func(*Option) *Option {
	return func(o *Option) *Option {
		o.serve = serve
		return o
	}
}

func WithGetenv(getenv func(string) string) func(*Option) *Option {
	return func(o *Option) *Option {
		o.getenv = getenv
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{getenv: os.Getenv, serve: dashboard.Serve}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"Start the dashboard server.",
		Flags{},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Task(option.getenv, option.serve)),
		flarc.WithDescription(`
Start the dashboard server.

Each browser gets its own session, with its own model selection and workflows.
Sessions are kept in memory; restarting the server drops them.

The remote API is the apiRoot in the config file, or the profile when it is omitted.
Training defaults are read from exoenv.

With --config, the server stops when the config file is modified, so that a supervisor restarts it.
`),
	)
}

func Task(getenv func(string) string, serve ServeFunc) common.TaskWithCommonFlag[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[Flags],
		_ []any,
	) error {
		flags := cl.Flags()

		conf, err := kcd.LoadDashboardConfig(flags.Config)
		if err != nil {
			return fmt.Errorf("cannot load config (%s): %w", flags.Config, err)
		}
		if flags.Port != 0 {
			conf.Port = flags.Port
		}

		prof, err := Profile(conf, cf, getenv)
		if err != nil {
			return err
		}
		exoEnv, err := env.LoadExoEnv(cf.Env)
		if err != nil {
			return fmt.Errorf("cannot load exoenv (%s): %w", cf.Env, err)
		}
		client, err := rest.NewClient(prof)
		if err != nil {
			return err
		}

		e, _, err := dashboard.New(conf, client, dashboard.WithTrainDefaults(exoEnv.TrainDefaults()))
		if err != nil {
			return err
		}
		logger.Printf("remote API: %s", prof.ApiRoot)

		watch := []string{}
		if flags.Config != "" {
			watch = append(watch, flags.Config)
		}
		return serve(ctx, logger, e, conf.Port, watch...)
	}
}

// Profile is where the dashboard server sends requests to.
//
// apiRoot in conf has priority over the profile. Timeout in conf overrides one of the profile if it is positive.
func Profile(conf *kcd.Config, cf common.CommonFlags, getenv func(string) string) (*profiles.Profile, error) {
	if conf.ApiRoot == "" {
		prof, err := common.LoadProfile(cf, getenv)
		if err != nil {
			return nil, err
		}
		if 0 < conf.Timeout {
			prof.Timeout = conf.Timeout
		}
		return prof, nil
	}

	prof, err := (&profiles.Profile{ApiRoot: conf.ApiRoot, Timeout: conf.Timeout}).Resolve(getenv)
	if err != nil {
		return nil, fmt.Errorf("apiRoot in config: %w", err)
	}
	return prof, nil
}
