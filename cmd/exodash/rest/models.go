package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/opst/exodash/pkg/api/types/models"
	xe "github.com/opst/exodash/pkg/errors"
	"github.com/opst/exodash/pkg/metrics"
)

func (c *client) ModelInfo(ctx context.Context) (models.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("model", "info"), nil)
	if err != nil {
		return models.Catalog{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return models.Catalog{}, err
	}
	defer resp.Body.Close()

	var catalog models.Catalog
	if err := unmarshalJsonResponse(
		resp, &catalog,
		MessageFor{
			Status4xx: "cannot get model catalog",
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return models.Catalog{}, err
	}
	return catalog, nil
}

func (c *client) ModelVersions(ctx context.Context, modelName string) (models.Versions, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("model-versions", modelName), nil,
	)
	if err != nil {
		return models.Versions{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return models.Versions{}, err
	}
	defer resp.Body.Close()

	var versions models.Versions
	if err := unmarshalJsonResponse(
		resp, &versions,
		MessageFor{
			Status4xx: fmt.Sprintf("model %s is not found", modelName),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return models.Versions{}, err
	}
	return versions, nil
}

func (c *client) ModelVersionInfo(ctx context.Context, modelName string, version string) (models.VersionDetail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("model-info", modelName, version), nil,
	)
	if err != nil {
		return models.VersionDetail{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return models.VersionDetail{}, err
	}
	defer resp.Body.Close()

	var detail models.VersionDetail
	if err := unmarshalJsonResponse(
		resp, &detail,
		MessageFor{
			Status4xx: fmt.Sprintf("model %s version %s is not found", modelName, version),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return models.VersionDetail{}, err
	}
	return detail, nil
}

func (c *client) ModelInfoDetailed(ctx context.Context, modelName string) (models.Detailed, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("model-info", modelName), nil,
	)
	if err != nil {
		return models.Detailed{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return models.Detailed{}, err
	}
	defer resp.Body.Close()

	var detail models.Detailed
	if err := unmarshalJsonResponse(
		resp, &detail,
		MessageFor{
			Status4xx: fmt.Sprintf("model %s is not found", modelName),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return models.Detailed{}, err
	}
	return detail, nil
}

func (c *client) DashboardMetrics(ctx context.Context, modelName string, version string) (metrics.View, error) {
	detail, err := c.ModelVersionInfo(ctx, modelName, version)
	if err != nil {
		return metrics.View{}, err
	}
	return metrics.Dashboard(detail)
}

// DefaultModel is the model which the server uses when no model is specified.
//
// It is the current model of the catalog, or the first available model if the server has no current one.
// It is empty when the catalog has no models.
func DefaultModel(catalog models.Catalog) string {
	if catalog.CurrentModel.Name != "" {
		return catalog.CurrentModel.Name
	}
	if len(catalog.AvailableModels) != 0 {
		return catalog.AvailableModels[0]
	}
	return ""
}

// ModelOverview tells what is known about a model family.
//
// # Args
//
// - context.Context
//
// - ExoClient
//
// - string: model name. If empty, DefaultModel of the catalog is used.
//
// # Returns
//
// - metrics.Overview: When the server refuses to tell the details of the model,
// the overview is built from the catalog only.
//
// - error: RequestFailed from getting the catalog, or failures of metrics.NewOverview.
// When the catalog has no models, it is a ValidationFailure.
func ModelOverview(ctx context.Context, client ExoClient, modelName string) (metrics.Overview, error) {
	catalog, err := client.ModelInfo(ctx)
	if err != nil {
		return metrics.Overview{}, err
	}
	if modelName == "" {
		modelName = DefaultModel(catalog)
	}
	if modelName == "" {
		return metrics.Overview{}, xe.NewValidationFailure("no models are available", "model_name")
	}
	if _, ok := catalog.Entry(modelName); !ok && !slices.Contains(catalog.AvailableModels, modelName) {
		return metrics.Overview{}, xe.NewValidationFailure("unknown model: "+modelName, "model_name")
	}

	var detail *models.Detailed
	switch d, err := client.ModelInfoDetailed(ctx, modelName); {
	case err == nil:
		detail = &d
	case errors.Is(err, xe.ErrApi):
		// details are optional.
	default:
		return metrics.Overview{}, err
	}
	return metrics.NewOverview(catalog, modelName, detail)
}
