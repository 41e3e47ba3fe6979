// Package resolver discovers models and their versions, and keeps the selected pair.
//
// A Resolver owns the selection. Dependents learn changes only through the callback given to New.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/opst/exodash/pkg/api/types/models"
	xe "github.com/opst/exodash/pkg/errors"
)

var (
	// ErrSuperseded is returned when a newer request is issued while waiting for a response.
	// The response is discarded.
	ErrSuperseded = errors.New("superseded by newer request")

	// ErrNotReady is returned when a version is selected before versions are resolved.
	ErrNotReady = errors.New("selection is not ready")
)

type Phase int

const (
	Unselected Phase = iota
	ModelsLoading
	ModelsLoaded
	VersionsLoading
	VersionsLoaded
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Unselected:
		return "unselected"
	case ModelsLoading:
		return "models-loading"
	case ModelsLoaded:
		return "models-loaded"
	case VersionsLoading:
		return "versions-loading"
	case VersionsLoaded:
		return "versions-loaded"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("unknown (%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Selection is a pair of model and version.
type Selection struct {
	ModelName string `json:"model_name"`
	Version   string `json:"version"`
}

func (s Selection) IsZero() bool {
	return s.ModelName == "" && s.Version == ""
}

// State is a snapshot of Resolver.
type State struct {
	Phase Phase `json:"phase"`

	// Models in the order the server returns. nil before the catalog is loaded.
	Models []string `json:"models"`

	// Model which versions are (being) resolved for.
	Model string `json:"model"`

	// Versions of Model, in the order the server returns.
	Versions []string `json:"versions"`

	// Last resolved selection. It is kept even if later resolution fails.
	Selection Selection `json:"selection"`

	// Message tells why resolution failed. Empty unless Phase is Failed.
	Message string `json:"message,omitempty"`
}

// Catalog is where models and versions are discovered.
type Catalog interface {
	ModelInfo(ctx context.Context) (models.Catalog, error)
	ModelVersions(ctx context.Context, modelName string) (models.Versions, error)
}

type Resolver struct {
	catalog Catalog

	mu         sync.Mutex
	generation uint64
	applied    uint64
	state      State

	notifyMu sync.Mutex
	notified uint64
	onChange func(Selection)
}

// New creates Resolver in Unselected phase.
//
// onChange is called with each new selection, one call at a time.
// It can be nil. It should not call methods of the Resolver which change the selection.
func New(catalog Catalog, onChange func(Selection)) *Resolver {
	return &Resolver{catalog: catalog, onChange: onChange}
}

// State returns a snapshot.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Models = slices.Clone(s.Models)
	s.Versions = slices.Clone(s.Versions)
	return s
}

// begin starts new request. Requests begun before are superseded.
func (r *Resolver) begin(phase Phase, model string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation += 1
	r.state.Phase = phase
	r.state.Message = ""
	if phase == VersionsLoading {
		r.state.Model = model
		r.state.Versions = nil
	}
	return r.generation
}

// update applies f to state if generation is still current.
func (r *Resolver) update(generation uint64, f func(*State)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if generation != r.generation {
		return ErrSuperseded
	}
	f(&r.state)
	return nil
}

// fail moves to Failed if generation is still current. Selection is kept.
func (r *Resolver) fail(generation uint64, err error) error {
	if uerr := r.update(generation, func(s *State) {
		s.Phase = Failed
		s.Message = xe.Message(err)
	}); uerr != nil {
		return uerr
	}
	return err
}

// settle records new selection, and notifies it unless it is the same as before.
func (r *Resolver) settle(generation uint64, sel Selection) error {
	var seq uint64
	changed := false
	if err := r.update(generation, func(s *State) {
		s.Phase = Ready
		if s.Selection == sel {
			return
		}
		changed = true
		s.Selection = sel
		r.applied += 1
		seq = r.applied
	}); err != nil {
		return err
	}
	if changed {
		r.notify(seq, sel)
	}
	return nil
}

func (r *Resolver) notify(seq uint64, sel Selection) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	// a newer selection may have been notified while waiting the lock.
	if seq <= r.notified {
		return
	}
	r.notified = seq
	if r.onChange != nil {
		r.onChange(sel)
	}
}

// Load fetches the catalog, selects its first model and then the latest version of it.
//
// When the catalog has no models, the Resolver stays in ModelsLoaded without selection.
//
// # Returns
//
// - error: an error from the catalog, or ErrSuperseded.
// The Resolver is Failed for the former.
func (r *Resolver) Load(ctx context.Context) error {
	gen := r.begin(ModelsLoading, "")

	catalog, err := r.catalog.ModelInfo(ctx)
	if err != nil {
		return r.fail(gen, err)
	}

	var first string
	if err := r.update(gen, func(s *State) {
		s.Phase = ModelsLoaded
		s.Models = slices.Clone(catalog.AvailableModels)
		if s.Models == nil {
			s.Models = []string{}
		}
		if len(s.Models) != 0 {
			first = s.Models[0]
			s.Phase = VersionsLoading
			s.Model = first
			s.Versions = nil
		}
	}); err != nil {
		return err
	}
	if first == "" {
		return nil
	}

	return r.resolveVersions(ctx, gen, first)
}

// SelectModel changes the model, and selects its latest version.
//
// # Returns
//
// - error: ValidationFailure when the catalog is loaded and does not have the model.
// Otherwise, an error from the catalog, or ErrSuperseded.
func (r *Resolver) SelectModel(ctx context.Context, modelName string) error {
	if modelName == "" {
		return xe.NewValidationFailure("model is not specified", "model_name")
	}
	if s := r.State(); s.Models != nil && !slices.Contains(s.Models, modelName) {
		return xe.NewValidationFailure("unknown model: "+modelName, "model_name")
	}

	gen := r.begin(VersionsLoading, modelName)
	return r.resolveVersions(ctx, gen, modelName)
}

func (r *Resolver) resolveVersions(ctx context.Context, gen uint64, modelName string) error {
	versions, err := r.catalog.ModelVersions(ctx, modelName)
	if err != nil {
		return r.fail(gen, err)
	}

	latest := versions.LatestVersion
	if err := r.update(gen, func(s *State) {
		s.Phase = VersionsLoaded
		s.Model = modelName
		s.Versions = slices.Clone(versions.Versions)
	}); err != nil {
		return err
	}
	if latest == "" {
		// no version to be selected. Dependents keep the previous selection.
		return nil
	}

	return r.settle(gen, Selection{ModelName: modelName, Version: latest})
}

// SelectVersion changes version of the selected model.
//
// # Returns
//
// - error: ErrNotReady unless the Resolver is Ready,
// or ValidationFailure when the version is not one of known versions.
func (r *Resolver) SelectVersion(version string) error {
	r.mu.Lock()
	if r.state.Phase != Ready {
		r.mu.Unlock()
		return ErrNotReady
	}
	if !slices.Contains(r.state.Versions, version) {
		r.mu.Unlock()
		return xe.NewValidationFailure(
			fmt.Sprintf("unknown version of %s: %s", r.state.Model, version), "version",
		)
	}
	if r.state.Selection.Version == version {
		r.mu.Unlock()
		return nil
	}
	r.generation += 1
	gen := r.generation
	sel := Selection{ModelName: r.state.Model, Version: version}
	r.mu.Unlock()

	return r.settle(gen, sel)
}
