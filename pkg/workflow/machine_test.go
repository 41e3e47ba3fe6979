package workflow_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	xe "github.com/opst/exodash/pkg/errors"
	"github.com/opst/exodash/pkg/utils/try"
	"github.com/opst/exodash/pkg/workflow"
)

func TestMachine(t *testing.T) {
	t.Run("it starts idle", func(t *testing.T) {
		m := workflow.NewMachine[string]()
		if s := m.State(); s.Status != workflow.Idle || s.Payload != nil {
			t.Errorf("state = %+v", s)
		}
	})

	t.Run("it is busy while running", func(t *testing.T) {
		m := workflow.NewMachine[string]()
		try.To(m.Begin("")).OrFatal(t)
		if _, err := m.Begin(""); !errors.Is(err, workflow.ErrBusy) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("progress never decreases and stays below 100 until success", func(t *testing.T) {
		m := workflow.NewMachine[string]()
		tok := try.To(m.Begin("start")).OrFatal(t)

		for _, p := range []int{10, 30, 20, 150} {
			m.Progress(tok, p, "")
		}
		if s := m.State(); s.Progress != 99 || s.Step != "start" {
			t.Errorf("state = %+v", s)
		}

		m.Succeed(tok, "done", "finished")
		s := m.State()
		if s.Status != workflow.Succeeded || s.Progress != 100 || *s.Payload != "done" || s.Step != "finished" {
			t.Errorf("state = %+v", s)
		}
	})

	t.Run("failure freezes progress and keeps the message", func(t *testing.T) {
		m := workflow.NewMachine[string]()
		tok := try.To(m.Begin("")).OrFatal(t)
		m.Progress(tok, 40, "")
		m.Fail(tok, xe.NewApiError(500, "server error", "training crashed"))

		s := m.State()
		if s.Status != workflow.Failed || s.Progress != 40 || s.Message != "training crashed" || s.Payload != nil {
			t.Errorf("state = %+v", s)
		}
		if m.Progress(tok, 60, "") {
			t.Error("progress is accepted after failure")
		}
		if m.State().Progress != 40 {
			t.Errorf("progress is changed: %+v", m.State())
		}
	})

	t.Run("stale token cannot change the state of newer run", func(t *testing.T) {
		m := workflow.NewMachine[string]()
		old := try.To(m.Begin("")).OrFatal(t)
		m.Fail(old, errors.New("first failed"))

		current := try.To(m.Begin("")).OrFatal(t)
		if m.Succeed(old, "stale", "") || m.Fail(old, errors.New("stale")) || m.Progress(old, 50, "") {
			t.Error("stale token is accepted")
		}
		if s := m.State(); s.Status != workflow.Running || s.Progress != 0 {
			t.Errorf("state = %+v", s)
		}

		m.Succeed(current, "fresh", "")
		if s := m.State(); *s.Payload != "fresh" {
			t.Errorf("state = %+v", s)
		}
	})

	t.Run("contract violation is shown with generic message", func(t *testing.T) {
		m := workflow.NewMachine[string]()
		tok := try.To(m.Begin("")).OrFatal(t)
		m.Fail(tok, xe.Contract("row 2 is short"))
		if s := m.State(); s.Message != "unexpected data from server" || !errors.Is(s.Err, xe.ErrContractViolation) {
			t.Errorf("state = %+v", s)
		}
	})
}

func TestAdvisory(t *testing.T) {
	t.Run("it rises by steps up to the cap, and never decreases", func(t *testing.T) {
		var mu sync.Mutex
		reported := []int{}
		steps := []string{}
		enough := make(chan struct{})

		adv := workflow.Advisory{
			Interval: time.Millisecond,
			Step:     func() int { return 7 },
			Cap:      30,
			Steps:    []string{"first", "rest"},
		}
		stop := adv.Start(func(p int, step string) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, p)
			steps = append(steps, step)
			if len(reported) == 8 {
				close(enough)
			}
		})
		<-enough
		stop()

		mu.Lock()
		defer mu.Unlock()
		for i, p := range reported {
			if p > 30 {
				t.Errorf("#%d: %d exceeds cap", i, p)
			}
			if i > 0 && p < reported[i-1] {
				t.Errorf("#%d: %d < %d", i, p, reported[i-1])
			}
		}
		if reported[0] != 7 || reported[len(reported)-1] != 30 {
			t.Errorf("reported = %v", reported)
		}
		if steps[0] != "first" || steps[1] != "rest" || steps[len(steps)-1] != "rest" {
			t.Errorf("steps = %v", steps)
		}
	})

	t.Run("after stop returns, it does not report", func(t *testing.T) {
		var mu sync.Mutex
		count := 0
		adv := workflow.Advisory{Interval: time.Millisecond, Step: func() int { return 1 }, Cap: 90}
		stop := adv.Start(func(int, string) {
			mu.Lock()
			defer mu.Unlock()
			count += 1
		})
		time.Sleep(10 * time.Millisecond)
		stop()

		mu.Lock()
		before := count
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		after := count
		mu.Unlock()

		if before != after {
			t.Errorf("reported after stop: %d -> %d", before, after)
		}
		stop() // calling twice is safe
	})

	t.Run("presets", func(t *testing.T) {
		up := workflow.UploadAdvisory()
		if up.Interval != 200*time.Millisecond || up.Cap != 90 || up.Step() != 10 {
			t.Errorf("upload advisory = %+v", up)
		}
		tr := workflow.TrainAdvisory()
		if tr.Interval != time.Second || tr.Cap != 90 {
			t.Errorf("train advisory = %+v", tr)
		}
		for range 100 {
			if s := tr.Step(); s < 0 || 10 <= s {
				t.Fatalf("train step = %d", s)
			}
		}
	})
}
