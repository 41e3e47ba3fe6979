// Package workflow drives asynchronous user tasks: predict, batch upload and train.
//
// Each task is a Machine over idle, running, succeeded and failed.
// A Machine hands out a token on Begin; updates with other tokens are ignored,
// so that a late completion of superseded work never overwrites newer state.
package workflow

import (
	"errors"
	"sync"

	xe "github.com/opst/exodash/pkg/errors"
)

// ErrBusy is returned when a task is submitted while the previous one is running.
var ErrBusy = errors.New("workflow is already running")

type Status string

const (
	Idle      Status = "idle"
	Running   Status = "running"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
)

// State of a workflow. It is replaced wholesale on every transition.
type State[T any] struct {
	Status Status `json:"status"`

	// Progress in percent. Only Succeeded has 100.
	Progress int `json:"progress"`

	// What is going on, for users.
	Step string `json:"step,omitempty"`

	// Result of the task. Set only when Succeeded.
	Payload *T `json:"payload,omitempty"`

	// Why it has failed. Set only when Failed.
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// Token identifies a run begun by Machine.Begin.
type Token uint64

type Machine[T any] struct {
	mu      sync.Mutex
	current Token
	state   State[T]
}

func NewMachine[T any]() *Machine[T] {
	return &Machine[T]{state: State[T]{Status: Idle}}
}

// State returns a snapshot.
func (m *Machine[T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Begin moves to Running, and supersedes tokens issued before.
//
// # Returns
//
// - Token: token of the new run.
//
// - error: ErrBusy if it is Running.
func (m *Machine[T]) Begin(step string) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status == Running {
		return 0, ErrBusy
	}
	m.current += 1
	m.state = State[T]{Status: Running, Step: step}
	return m.current, nil
}

// Progress updates progress of the run.
//
// Progress never decreases, and is kept below 100 until Succeed.
// It returns false when the token is stale or the run has been finished.
func (m *Machine[T]) Progress(tok Token, percent int, step string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok != m.current || m.state.Status != Running {
		return false
	}

	next := m.state
	if percent > 99 {
		percent = 99
	}
	if percent > next.Progress {
		next.Progress = percent
	}
	if step != "" {
		next.Step = step
	}
	m.state = next
	return true
}

// Succeed finishes the run with payload.
//
// It returns false when the token is stale or the run has been finished.
func (m *Machine[T]) Succeed(tok Token, payload T, step string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok != m.current || m.state.Status != Running {
		return false
	}
	m.state = State[T]{Status: Succeeded, Progress: 100, Step: step, Payload: &payload}
	return true
}

// Fail finishes the run with err. Progress is frozen.
//
// It returns false when the token is stale or the run has been finished.
func (m *Machine[T]) Fail(tok Token, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok != m.current || m.state.Status != Running {
		return false
	}
	m.state = State[T]{
		Status:   Failed,
		Progress: m.state.Progress,
		Step:     m.state.Step,
		Message:  xe.Message(err),
		Err:      err,
	}
	return true
}

// Pending is a run in background.
type Pending[T any] struct {
	done    chan struct{}
	payload T
	err     error
}

// Done is closed when the run is finished.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the run is finished, and returns its result.
func (p *Pending[T]) Wait() (T, error) {
	<-p.done
	return p.payload, p.err
}

// spawn calls task in background, and applies its result to the run of tok.
//
// beforeFinish is called after task returns and before the result is applied.
func (m *Machine[T]) spawn(tok Token, task func() (T, error), beforeFinish func(), step string) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		payload, err := task()
		if beforeFinish != nil {
			beforeFinish()
		}
		if err != nil {
			m.Fail(tok, err)
			p.err = err
			return
		}
		m.Succeed(tok, payload, step)
		p.payload = payload
	}()
	return p
}
