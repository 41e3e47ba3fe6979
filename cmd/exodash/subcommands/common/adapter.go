package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/opst/exodash/cmd/exodash/config/profiles"
	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/logger"
	xe "github.com/opst/exodash/pkg/errors"
	"github.com/youta-t/flarc"
)

type TaskWithCommonFlag[T any] func(
	ctx context.Context,
	logger *log.Logger,
	commonFlag CommonFlags,
	cl flarc.Commandline[T],
	params []any,
) error

func NewTaskWithCommonFlag[T any](task TaskWithCommonFlag[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		logger := logger.New(cl.Stderr(), cl.Fullname())

		err := task(ctx, logger, commonFlag, cl, newpos)
		if v := xe.Verbose(nil); errors.As(err, &v) {
			logger.Println(v.Verbose())
		}
		return err
	}
}

type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	exoEnv env.ExoEnv,
	client rest.ExoClient,
	cl flarc.Commandline[T],
	params []any,
) error

// LoadProfile picks the profile from the store, and resolves it with environment variables.
//
// When the store does not exist, the default profile is used.
func LoadProfile(commonFlag CommonFlags, getenv func(string) string) (*profiles.Profile, error) {
	var prof *profiles.Profile
	store, err := profiles.LoadProfileStore(commonFlag.ProfileStore)
	switch {
	case errors.Is(err, profiles.ErrProfileStoreNotFound):
		prof = profiles.Default()
	case err != nil:
		return nil, fmt.Errorf("%w: failed to load profile store (%s)", err, commonFlag.ProfileStore)
	default:
		p, ok := store[commonFlag.Profile]
		if !ok {
			return nil, fmt.Errorf(
				"profile '%s' not found in the profile store (%s). Please try `exodash init` first",
				commonFlag.Profile, commonFlag.ProfileStore,
			)
		}
		prof = p
	}

	resolved, err := prof.Resolve(getenv)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: profile %s in %s can be broken. Remove it and try `exodash init` again",
			err, commonFlag.Profile, commonFlag.ProfileStore,
		)
	}
	return resolved, nil
}

func NewTask[T any](task Task[T]) flarc.Task[T] {
	return NewTaskWithCommonFlag(func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag CommonFlags,
		cl flarc.Commandline[T],
		params []any,
	) error {
		prof, err := LoadProfile(commonFlag, os.Getenv)
		if err != nil {
			return err
		}

		e, err := env.LoadExoEnv(commonFlag.Env)
		if err != nil {
			return fmt.Errorf("%w: failed to load exoenv (%s)", err, commonFlag.Env)
		}

		client, err := rest.NewClient(prof)
		if err != nil {
			return fmt.Errorf("%w: failed to create client for %s", err, prof.ApiRoot)
		}
		return task(ctx, logger, *e, client, cl, params)
	})
}
