package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/opst/exodash/cmd/exodash/env"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/opst/exodash/pkg/workflow"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model   string `flag:"model" alias:"m" metavar:"MODEL" help:"model name. If omitted, the model in exoenv, or the server default."`
	Version string `flag:"version" alias:"v" metavar:"VERSION" help:"version of the model. If omitted, the version in exoenv, or the server default."`
	Output  string `flag:"output" alias:"o" metavar:"PATH" help:"download the classified CSV to PATH. \"-\" means stdout."`
}

type Option struct {
	progressOut io.Writer
	advisory    workflow.Advisory
	interval    time.Duration
}

// WithProgress changes where progress bars are drawn, and how progress advances.
func WithProgress(w io.Writer, advisory workflow.Advisory, interval time.Duration) func(*Option) *Option {
	return func(o *Option) *Option {
		o.progressOut = w
		o.advisory = advisory
		o.interval = interval
		return o
	}
}

const ARG_CSV = "CSV"

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{
		progressOut: os.Stderr,
		advisory:    workflow.UploadAdvisory(),
		interval:    100 * time.Millisecond,
	}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"Classify each row of a CSV file of KOI features.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_CSV, Required: true,
				Help: "CSV file with a header row of KOI feature names.",
			},
		},
		common.NewTask(Task(option.progressOut, option.advisory, option.interval)),
		flarc.WithDescription(`
Upload a CSV file and classify each row.

The summary (total planets and class distribution) is written to stdout.
With --output, the CSV file with classes and probabilities appended is downloaded.

The progress bar is an estimate while waiting the server. It completes only when the server responds.
`),
	)
}

// Summary is what upload writes to stdout.
type Summary struct {
	workflow.UploadResult
	Output string `json:"output,omitempty"`
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
		flags := cl.Flags()
		src := cl.Args()[ARG_CSV][0]
		if err := workflow.CheckFilename(src); err != nil {
			return fmt.Errorf("%w: %s", err, src)
		}

		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer f.Close()

		upload := workflow.NewUpload(client, advisory)
		pending, err := upload.Start(ctx, filepath.Base(src), f, exoEnv.Params(flags.Model, flags.Version))
		if err != nil {
			return err
		}
		common.Follow(progressOut, "uploading "+filepath.Base(src), interval, upload.State, pending.Done())
		result, err := pending.Wait()
		if err != nil {
			return err
		}
		summary := Summary{UploadResult: result}

		switch flags.Output {
		case "":
		case "-":
			if err := upload.Download(ctx, func(r io.Reader) error {
				_, err := io.Copy(cl.Stdout(), r)
				return err
			}); err != nil {
				return err
			}
		default:
			dest := flags.Output
			if err := upload.Download(ctx, func(r io.Reader) error {
				if err := os.MkdirAll(filepath.Dir(dest), os.FileMode(0777)); err != nil {
					return err
				}
				out, err := os.OpenFile(dest, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(0666))
				if err != nil {
					return err
				}
				return Save(progressOut, "downloading to "+dest+":", out, r)
			}); err != nil {
				return err
			}
			summary.Output = dest
		}

		buf, err := json.MarshalIndent(summary, "", "    ")
		if err != nil {
			return err
		}
		if flags.Output == "-" {
			logger.Printf("%s", buf)
			return nil
		}
		cl.Stdout().Write(append(buf, '\n'))
		return nil
	}
}

// Save copies r into out with a bar counting bytes, and closes out.
//
// When copying succeeds, an error from closing out is returned.
func Save(progressOut io.Writer, prefix string, out io.WriteCloser, r io.Reader) (err error) {
	w := common.Counting(progressOut, prefix, out)
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(w, r)
	return err
}
