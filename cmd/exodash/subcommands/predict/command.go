package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/opst/exodash/pkg/workflow"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

type Flags struct {
	Model   string   `flag:"model" alias:"m" metavar:"MODEL" help:"model name. If omitted, the model in exoenv, or the server default."`
	Version string   `flag:"version" alias:"v" metavar:"VERSION" help:"version of the model. If omitted, the version in exoenv, or the server default."`
	Feature []string `flag:"feature" alias:"f" metavar:"NAME=VALUE" help:"KOI feature. Repeatable. Overrides FEATURES_FILE."`
}

const ARG_FEATURES_FILE = "FEATURES_FILE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Classify a Kepler Object of Interest.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_FEATURES_FILE, Required: false,
				Help: "YAML or JSON file of features, a mapping from feature name to value.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Classify a Kepler Object of Interest as CONFIRMED, CANDIDATE or FALSE POSITIVE.

Features are given from FEATURES_FILE and --feature flags. These are required:

	koi_period, koi_duration, koi_depth, koi_prad, koi_steff,
	koi_slogg, koi_srad, koi_smass, koi_teq, koi_insol

Other KOI features are optional. When a required feature is missing or not a number,
nothing is sent to the server.

Example:

	{{ .Command }} --model lgbm --version v3 ./koi.yaml
	{{ .Command }} --feature koi_depth=615.8 ./koi.yaml
`),
	)
}

// ReadForm reads features from file (if given) and overrides them with flags.
func ReadForm(file string, flags []string) (map[string]string, error) {
	form := map[string]string{}

	if file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw := map[string]any{}
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		for k, v := range raw {
			switch v := v.(type) {
			case nil:
				form[k] = ""
			case string, int, float64, bool:
				form[k] = fmt.Sprint(v)
			default:
				return nil, fmt.Errorf("%s: %s should be a number, but got %T", file, k, v)
			}
		}
	}

	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("%w: --feature should be NAME=VALUE, but got %s", flarc.ErrUsage, f)
		}
		form[strings.TrimSpace(k)] = v
	}
	return form, nil
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
		file := ""
		if a := cl.Args()[ARG_FEATURES_FILE]; len(a) != 0 {
			file = a[0]
		}
		form, err := ReadForm(file, flags.Feature)
		if err != nil {
			return err
		}

		result, err := workflow.NewPredict(client).Run(ctx, form, exoEnv.Params(flags.Model, flags.Version))
		if err != nil {
			return err
		}
		if mi := result.ModelInfo; mi != nil {
			logger.Printf("classified with %s", mi.UsedModel)
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(result); err != nil {
			logger.Panicf("fail to dump prediction")
		}
		return nil
	}
}
