package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/pkg/api/types/training"
	binderr "github.com/opst/exodash/pkg/api-types-binding/errors"
	xe "github.com/opst/exodash/pkg/errors"
	"github.com/opst/exodash/pkg/workflow"
)

// PostPredictHandler classifies the submitted form with the current selection.
//
// It responds after the prediction is done.
func PostPredictHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		form, err := readForm(c)
		if err != nil {
			return err
		}
		if _, err := s.Predict.Run(background(c), form, s.Params()); err != nil {
			return binderr.FromError(err)
		}
		return c.JSON(http.StatusOK, s.Predict.State())
	}
}

func GetPredictHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, s.Predict.State())
	}
}

// PostUploadHandler starts classification of the uploaded CSV file ("file" in multipart form).
//
// It responds 202 as soon as the upload is started. Poll GetUploadHandler for the progress.
func PostUploadHandler(maxBytes int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return binderr.BadRequest("file is required", xe.NewValidationFailure("file is required", "file"))
		}
		if err := workflow.CheckFilename(fh.Filename); err != nil {
			return binderr.FromError(err)
		}
		if 0 < maxBytes && maxBytes < fh.Size {
			return binderr.BadRequest(
				fmt.Sprintf("file is too large (> %d bytes)", maxBytes),
				xe.NewValidationFailure("file is too large", "file"),
			)
		}

		f, err := fh.Open()
		if err != nil {
			return binderr.InternalServerError(err)
		}
		defer f.Close()
		// the request body is gone after responding.
		content, err := io.ReadAll(f)
		if err != nil {
			return binderr.InternalServerError(err)
		}

		if _, err := s.Upload.Start(background(c), fh.Filename, bytes.NewReader(content), s.Params()); err != nil {
			return binderr.FromError(err)
		}
		return c.JSON(http.StatusAccepted, s.Upload.State())
	}
}

func GetUploadHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, s.Upload.State())
	}
}

// GetUploadResultHandler streams the classified CSV of the last succeeded upload.
func GetUploadResultHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		state := s.Upload.State()
		if state.Status != workflow.Succeeded || state.Payload == nil {
			return binderr.FromError(workflow.ErrNoResult)
		}

		streamed := false
		err = s.Upload.Download(c.Request().Context(), func(r io.Reader) error {
			streamed = true
			c.Response().Header().Set(
				echo.HeaderContentDisposition,
				mime.FormatMediaType("attachment", map[string]string{"filename": state.Payload.Handle}),
			)
			return c.Stream(http.StatusOK, "text/csv", r)
		})
		if err != nil && !streamed {
			return binderr.FromError(err)
		}
		return err
	}
}

// PostTrainHandler starts training with the submitted hyperparameters over defaults.
//
// When the training succeeds, the selection is refreshed to pick up the new version.
//
// It responds 202 as soon as the training is started. Poll GetTrainHandler for the progress.
func PostTrainHandler(defaults training.Hyperparameters) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		form, err := readForm(c)
		if err != nil {
			return err
		}
		ctx := background(c)
		pending, err := s.Train.Start(ctx, form, defaults)
		if err != nil {
			return binderr.FromError(err)
		}
		logger := c.Logger()
		go func() {
			if _, err := pending.Wait(); err != nil {
				return
			}
			if err := s.Refresh(ctx); err != nil {
				logger.Warnf("session %s: cannot refresh selection after training: %s", s.Id, err)
			}
		}()
		return c.JSON(http.StatusAccepted, s.Train.State())
	}
}

func GetTrainHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := currentSession(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, s.Train.State())
	}
}
