package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/dashboard/session"
	"github.com/opst/exodash/cmd/exodash/rest"
	binderr "github.com/opst/exodash/pkg/api-types-binding/errors"
	"github.com/opst/exodash/pkg/resolver"
)

// GetMetricsHandler responds the dashboard view of the selected model version.
func GetMetricsHandler(client rest.ExoClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		sel := s.Selection()
		if sel.ModelName == "" || sel.Version == "" {
			return binderr.FromError(resolver.ErrNotReady)
		}

		view, err := client.DashboardMetrics(c.Request().Context(), sel.ModelName, sel.Version)
		if err != nil {
			return binderr.FromError(err)
		}
		for _, cls := range view.SupportMismatches {
			c.Logger().Warnf(
				"%s/%s: support of %s disagrees with the confusion matrix",
				sel.ModelName, sel.Version, cls,
			)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func GetHealthHandler(client rest.ExoClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		h, err := client.Health(c.Request().Context())
		if err != nil {
			return binderr.FromError(err)
		}
		return c.JSON(http.StatusOK, h)
	}
}

// GetModelHandler responds the overview of a model.
//
// The model is the query "model_name", or the model selected in the session,
// or the current model of the server, in this order.
func GetModelHandler(client rest.ExoClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		modelName := c.QueryParam("model_name")
		if modelName == "" {
			if s := session.From(c); s != nil {
				modelName = s.Selection().ModelName
			}
		}

		ov, err := rest.ModelOverview(c.Request().Context(), client, modelName)
		if err != nil {
			return binderr.FromError(err)
		}
		return c.JSON(http.StatusOK, ov)
	}
}
