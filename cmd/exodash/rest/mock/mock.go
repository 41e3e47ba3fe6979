package mock

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/pkg/api/types/models"
	"github.com/opst/exodash/pkg/api/types/predictions"
	"github.com/opst/exodash/pkg/api/types/training"
	"github.com/opst/exodash/pkg/metrics"
)

// ErrNotReady is returned by mocked methods without implementation.
var ErrNotReady = errors.New("mock is not ready to be called")

type ModelVersionInfoArgs struct {
	ModelName string
	Version   string
}

type PredictArgs struct {
	Records []predictions.Features
	Params  predictions.Params
}

type UploadArgs struct {
	Filename string
	Params   predictions.Params
}

func New(t *testing.T) *mockExoClient {
	return &mockExoClient{t: t}
}

type mockExoClient struct {
	t  *testing.T
	mu sync.Mutex

	Impl struct {
		ModelInfo         func(ctx context.Context) (models.Catalog, error)
		ModelVersions     func(ctx context.Context, modelName string) (models.Versions, error)
		ModelVersionInfo  func(ctx context.Context, modelName string, version string) (models.VersionDetail, error)
		ModelInfoDetailed func(ctx context.Context, modelName string) (models.Detailed, error)
		Predict           func(ctx context.Context, records []predictions.Features, params predictions.Params) (predictions.Response, error)
		Upload            func(ctx context.Context, filename string, body io.Reader, params predictions.Params) (predictions.UploadSummary, error)
		Download          func(ctx context.Context, filename string, handler func(io.Reader) error) error
		Train             func(ctx context.Context, hyperparameters training.Hyperparameters) (training.Result, error)
		Health            func(ctx context.Context) (rest.Health, error)
		DashboardMetrics  func(ctx context.Context, modelName string, version string) (metrics.View, error)
	}

	Calls struct {
		ModelInfo         int
		ModelVersions     []string
		ModelVersionInfo  []ModelVersionInfoArgs
		ModelInfoDetailed []string
		Predict           []PredictArgs
		Upload            []UploadArgs
		Download          []string
		Train             []training.Hyperparameters
		Health            int
		DashboardMetrics  []ModelVersionInfoArgs
	}
}

var _ rest.ExoClient = &mockExoClient{}

// Count returns a snapshot of the number of calls for each method.
//
// Use this instead of reading Calls while calls can be in flight.
func (m *mockExoClient) Count() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"ModelInfo":         m.Calls.ModelInfo,
		"ModelVersions":     len(m.Calls.ModelVersions),
		"ModelVersionInfo":  len(m.Calls.ModelVersionInfo),
		"ModelInfoDetailed": len(m.Calls.ModelInfoDetailed),
		"Predict":           len(m.Calls.Predict),
		"Upload":            len(m.Calls.Upload),
		"Download":          len(m.Calls.Download),
		"Train":             len(m.Calls.Train),
		"Health":            m.Calls.Health,
		"DashboardMetrics":  len(m.Calls.DashboardMetrics),
	}
}

// Total is the number of all calls.
func (m *mockExoClient) Total() int {
	n := 0
	for _, c := range m.Count() {
		n += c
	}
	return n
}

func (m *mockExoClient) notReady(name string) error {
	m.t.Errorf("%s is not ready to be called", name)
	return ErrNotReady
}

func (m *mockExoClient) ModelInfo(ctx context.Context) (models.Catalog, error) {
	m.mu.Lock()
	m.Calls.ModelInfo += 1
	impl := m.Impl.ModelInfo
	m.mu.Unlock()

	if impl == nil {
		return models.Catalog{}, m.notReady("ModelInfo")
	}
	return impl(ctx)
}

func (m *mockExoClient) ModelVersions(ctx context.Context, modelName string) (models.Versions, error) {
	m.mu.Lock()
	m.Calls.ModelVersions = append(m.Calls.ModelVersions, modelName)
	impl := m.Impl.ModelVersions
	m.mu.Unlock()

	if impl == nil {
		return models.Versions{}, m.notReady("ModelVersions")
	}
	return impl(ctx, modelName)
}

func (m *mockExoClient) ModelVersionInfo(ctx context.Context, modelName string, version string) (models.VersionDetail, error) {
	m.mu.Lock()
	m.Calls.ModelVersionInfo = append(
		m.Calls.ModelVersionInfo, ModelVersionInfoArgs{ModelName: modelName, Version: version},
	)
	impl := m.Impl.ModelVersionInfo
	m.mu.Unlock()

	if impl == nil {
		return models.VersionDetail{}, m.notReady("ModelVersionInfo")
	}
	return impl(ctx, modelName, version)
}

func (m *mockExoClient) ModelInfoDetailed(ctx context.Context, modelName string) (models.Detailed, error) {
	m.mu.Lock()
	m.Calls.ModelInfoDetailed = append(m.Calls.ModelInfoDetailed, modelName)
	impl := m.Impl.ModelInfoDetailed
	m.mu.Unlock()

	if impl == nil {
		return models.Detailed{}, m.notReady("ModelInfoDetailed")
	}
	return impl(ctx, modelName)
}

func (m *mockExoClient) Predict(ctx context.Context, records []predictions.Features, params predictions.Params) (predictions.Response, error) {
	m.mu.Lock()
	m.Calls.Predict = append(m.Calls.Predict, PredictArgs{Records: records, Params: params})
	impl := m.Impl.Predict
	m.mu.Unlock()

	if impl == nil {
		return predictions.Response{}, m.notReady("Predict")
	}
	return impl(ctx, records, params)
}

func (m *mockExoClient) Upload(ctx context.Context, filename string, body io.Reader, params predictions.Params) (predictions.UploadSummary, error) {
	m.mu.Lock()
	m.Calls.Upload = append(m.Calls.Upload, UploadArgs{Filename: filename, Params: params})
	impl := m.Impl.Upload
	m.mu.Unlock()

	if impl == nil {
		return predictions.UploadSummary{}, m.notReady("Upload")
	}
	return impl(ctx, filename, body, params)
}

func (m *mockExoClient) Download(ctx context.Context, filename string, handler func(io.Reader) error) error {
	m.mu.Lock()
	m.Calls.Download = append(m.Calls.Download, filename)
	impl := m.Impl.Download
	m.mu.Unlock()

	if impl == nil {
		return m.notReady("Download")
	}
	return impl(ctx, filename, handler)
}

func (m *mockExoClient) Train(ctx context.Context, hyperparameters training.Hyperparameters) (training.Result, error) {
	m.mu.Lock()
	m.Calls.Train = append(m.Calls.Train, hyperparameters)
	impl := m.Impl.Train
	m.mu.Unlock()

	if impl == nil {
		return training.Result{}, m.notReady("Train")
	}
	return impl(ctx, hyperparameters)
}

func (m *mockExoClient) Health(ctx context.Context) (rest.Health, error) {
	m.mu.Lock()
	m.Calls.Health += 1
	impl := m.Impl.Health
	m.mu.Unlock()

	if impl == nil {
		return rest.Health{}, m.notReady("Health")
	}
	return impl(ctx)
}

func (m *mockExoClient) DashboardMetrics(ctx context.Context, modelName string, version string) (metrics.View, error) {
	m.mu.Lock()
	m.Calls.DashboardMetrics = append(
		m.Calls.DashboardMetrics, ModelVersionInfoArgs{ModelName: modelName, Version: version},
	)
	impl := m.Impl.DashboardMetrics
	m.mu.Unlock()

	if impl == nil {
		return metrics.View{}, m.notReady("DashboardMetrics")
	}
	return impl(ctx, modelName, version)
}
