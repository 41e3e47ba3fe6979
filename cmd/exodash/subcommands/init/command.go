package init

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/opst/exodash/cmd/exodash/config/profiles"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

type Option struct {
	pointerFile string
}

// WithPointerFile changes where the name of the registered profile is written.
func WithPointerFile(path string) func(*Option) *Option {
	return func(o *Option) *Option {
		o.pointerFile = path
		return o
	}
}

const ARG_PROFILE_FILE = "PROFILE_FILE"

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{pointerFile: common.ProfilePointerFile}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"Register the profile of an exoplanet classifier API and use it in this directory.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_PROFILE_FILE, Required: true,
				Help: "filepath to the profile, a YAML file with apiRoot, cert.ca and timeout.",
			},
		},
		common.NewTaskWithCommonFlag(Task(option.pointerFile)),
		flarc.WithDescription(`
Register a new profile into your profile store.

The profile is a YAML file like below:

	apiRoot: https://exoplanet.example.com/api
	cert:
	    ca: (base64 encoded PEM, optional)
	timeout: 30  # seconds, optional. 0 means no timeout.

The name of the profile is given by "--profile" (default: "default").
"{{ .Command }}" also writes the name into .exoprofile in the current directory,
so that commands run under this directory use the profile.
`),
	)
}

func Task(pointerFile string) common.TaskWithCommonFlag[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[struct{}],
		params []any,
	) error {
		profFile := cl.Args()[ARG_PROFILE_FILE][0]

		store, err := profiles.LoadProfileStore(cf.ProfileStore)
		if errors.Is(err, profiles.ErrProfileStoreNotFound) {
			// ok.
			store = profiles.ProfileStore{}
		} else if err != nil {
			return fmt.Errorf("failed to load profile store (%s): %w", cf.ProfileStore, err)
		}

		newProf := new(profiles.Profile)
		{
			content, err := os.ReadFile(profFile)
			if err != nil {
				return fmt.Errorf("failed to read profile file (%s): %w", profFile, err)
			}
			if err := yaml.Unmarshal(content, newProf); err != nil {
				return fmt.Errorf("failed to parse profile file (%s): %w", profFile, err)
			}
		}
		if err := newProf.Verify(); err != nil {
			return fmt.Errorf("%s: %w", profFile, err)
		}

		profName := cf.Profile
		store[profName] = newProf
		if err := store.Save(cf.ProfileStore); err != nil {
			return fmt.Errorf("failed to save profile store (%s): %w", cf.ProfileStore, err)
		}
		logger.Printf("profile %s is saved to %s", profName, cf.ProfileStore)

		f, err := os.OpenFile(pointerFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.FileMode(0600))
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", pointerFile, err)
		}
		defer f.Close()
		if _, err := f.Write([]byte(profName)); err != nil {
			return fmt.Errorf("failed to write %s: %w", pointerFile, err)
		}
		return nil
	}
}
