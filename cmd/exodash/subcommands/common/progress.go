package common

import (
	"io"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/opst/exodash/pkg/workflow"
)

const stepBar pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{bar . }} {{percent . }}`

// Follow draws the progress of a workflow on w until done is closed.
//
// The bar reaches the end only when the workflow has succeeded.
func Follow[T any](
	w io.Writer, prefix string, interval time.Duration,
	state func() workflow.State[T], done <-chan struct{},
) workflow.State[T] {
	bar := stepBar.New(100)
	bar.SetWriter(w)
	bar.Set("prefix", prefix)
	bar.Start()

	update := func() workflow.State[T] {
		s := state()
		bar.SetCurrent(int64(s.Progress))
		if s.Step != "" {
			bar.Set("prefix", s.Step)
		}
		return s
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			update()
			continue
		case <-done:
		}
		break
	}
	last := update()
	bar.Finish()
	return last
}

const noBar pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{with string . "suffix"}} {{.}}{{end}}`

// Counting wraps dest with a bar counting bytes written.
//
// Close the returned writer to finish the bar. It closes dest too, if dest is io.Closer.
func Counting(progress io.Writer, prefix string, dest io.Writer) io.WriteCloser {
	bar := noBar.New(-1)
	bar.Set(pb.Bytes, true)
	bar.SetWriter(progress)
	bar.Set("prefix", prefix)
	bar.Start()
	return bar.NewProxyWriter(dest)
}
