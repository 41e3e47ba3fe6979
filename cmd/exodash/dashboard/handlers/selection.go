package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	binderr "github.com/opst/exodash/pkg/api-types-binding/errors"
	"github.com/opst/exodash/pkg/resolver"
)

// GetSelectionHandler responds the state of the model selection.
//
// The catalog is loaded on the first access, and again after the catalog has failed to load.
func GetSelectionHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}

		state := s.Resolver.State()
		if state.Phase == resolver.Unselected || (state.Phase == resolver.Failed && state.Models == nil) {
			if err := s.Resolver.Load(background(c)); err != nil {
				return binderr.FromError(err)
			}
		}
		return c.JSON(http.StatusOK, s.Resolver.State())
	}
}

type ModelRequest struct {
	ModelName string `json:"model_name"`
}

func PutModelHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		req := new(ModelRequest)
		if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
			return binderr.BadRequest("can not understand the request", err)
		}
		if err := s.Resolver.SelectModel(background(c), req.ModelName); err != nil {
			return binderr.FromError(err)
		}
		return c.JSON(http.StatusOK, s.Resolver.State())
	}
}

type VersionRequest struct {
	Version string `json:"version"`
}

func PutVersionHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		req := new(VersionRequest)
		if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
			return binderr.BadRequest("can not understand the request", err)
		}
		if err := s.Resolver.SelectVersion(req.Version); err != nil {
			return binderr.FromError(err)
		}
		return c.JSON(http.StatusOK, s.Resolver.State())
	}
}
