package common

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// name of the file which tells profile name of the project.
	ProfilePointerFile = ".exoprofile"

	// name of the exoenv file.
	EnvFile = "exoenv"

	// profile used when no .exoprofile is found.
	DefaultProfile = "default"
)

type CommonFlags struct {
	Profile      string `flag:"profile" help:"profile name to use"`
	ProfileStore string `flag:"profile-store" help:"path to profile store file"`
	Env          string `flag:"env" help:"path to exoenv file"`
}

type commonFlagDetection struct {
	home string
}

type CommonFlagDetectionOption func(*commonFlagDetection) *commonFlagDetection

func WithHome(home string) CommonFlagDetectionOption {
	return func(opt *commonFlagDetection) *commonFlagDetection {
		opt.home = home
		return opt
	}
}

// Flags detects default values of CommonFlags.
//
// .exoprofile and exoenv are searched from the directory "from" up to the root.
// The nearest ones are used.
func Flags(from string, opt ...CommonFlagDetectionOption) (CommonFlags, error) {
	detparam := commonFlagDetection{}
	for _, o := range opt {
		detparam = *o(&detparam)
	}

	home := detparam.home
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}

	if abs, err := filepath.Abs(from); err == nil {
		from = abs
	}

	profile := DefaultProfile
	env := filepath.Join(from, EnvFile)
	profileFound := false
	envFound := false
	for searchpath := from; ; {
		if !profileFound {
			candidate := filepath.Join(searchpath, ProfilePointerFile)
			if s, err := os.Stat(candidate); err == nil && s.Mode().IsRegular() {
				content, err := os.ReadFile(candidate)
				if err != nil {
					return CommonFlags{}, err
				}
				profileFound = true
				if name := strings.TrimSpace(strings.SplitN(string(content), "\n", 2)[0]); name != "" {
					profile = name
				}
			}
		}
		if !envFound {
			candidate := filepath.Join(searchpath, EnvFile)
			if s, err := os.Stat(candidate); err == nil && s.Mode().IsRegular() {
				envFound = true
				env = candidate
			}
		}
		if profileFound && envFound {
			break
		}

		next := filepath.Dir(searchpath)
		if next == searchpath {
			break
		}
		searchpath = next
	}

	return CommonFlags{
		Profile:      profile,
		ProfileStore: filepath.Join(home, ".exodash", "profile"),
		Env:          env,
	}, nil
}
