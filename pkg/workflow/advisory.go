package workflow

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Advisory is a client-side estimate of progress while waiting a response.
//
// It is never taken as a sign of completion.
type Advisory struct {
	// Interval between steps.
	Interval time.Duration

	// Step returns an increment for each tick.
	Step func() int

	// Cap is the maximum value that Advisory reaches.
	Cap int

	// Steps are messages for each tick, in order. The last one is repeated.
	Steps []string
}

// UploadAdvisory rises by 10 every 200ms up to 90.
func UploadAdvisory() Advisory {
	return Advisory{
		Interval: 200 * time.Millisecond,
		Step:     func() int { return 10 },
		Cap:      90,
	}
}

// TrainAdvisory rises by a random step below 10 every second up to 90.
func TrainAdvisory() Advisory {
	return Advisory{
		Interval: time.Second,
		Step:     func() int { return rand.IntN(10) },
		Cap:      90,
		Steps:    []string{StepTraining},
	}
}

// Start ticks in background, and calls report with progress and message.
//
// Progress starts from 0, never decreases and never exceeds Cap.
//
// # Returns
//
// - func(): stop ticking. After it returns, report is not called anymore.
func (a Advisory) Start(report func(progress int, step string)) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		if a.Interval <= 0 {
			return
		}
		ticker := time.NewTicker(a.Interval)
		defer ticker.Stop()

		progress := 0
		for n := 0; ; n++ {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			if inc := a.Step(); inc > 0 {
				progress += inc
			}
			if progress > a.Cap {
				progress = a.Cap
			}

			step := ""
			if len(a.Steps) != 0 {
				step = a.Steps[min(n, len(a.Steps)-1)]
			}

			// stop may be requested while waiting the tick.
			select {
			case <-done:
				return
			default:
			}
			report(progress, step)
		}
	}()

	once := sync.Once{}
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}
