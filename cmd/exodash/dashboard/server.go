// Package dashboard is the web server of the dashboard.
//
// It keeps orchestration state (model selection and workflows) for each browser session,
// and talks to the remote API on behalf of browsers.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/dashboard/handlers"
	"github.com/opst/exodash/cmd/exodash/dashboard/session"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/pkg/api/types/training"
	kcd "github.com/opst/exodash/pkg/configs/dashboard"
	"github.com/opst/exodash/pkg/utils/echoutil"
	"github.com/opst/exodash/pkg/utils/filewatch"
)

// MaxUploadBytes limits the size of CSV files to be uploaded.
const MaxUploadBytes = 64 << 20

type Option struct {
	advisories   session.Advisories
	trainDefault training.Hyperparameters
}

func WithAdvisories(a session.Advisories) func(*Option) *Option {
	return func(o *Option) *Option {
		o.advisories = a
		return o
	}
}

func WithTrainDefaults(hp training.Hyperparameters) func(*Option) *Option {
	return func(o *Option) *Option {
		o.trainDefault = hp
		return o
	}
}

// New builds the server.
func New(conf *kcd.Config, client rest.ExoClient, options ...func(*Option) *Option) (*echo.Echo, *session.Store, error) {
	option := &Option{
		advisories:   session.DefaultAdvisories(),
		trainDefault: training.Defaults(),
	}
	for _, opt := range options {
		option = opt(option)
	}

	store, err := session.NewStore(
		[]byte(conf.SessionSecret), conf.SessionTTL,
		func(id string) *session.Session { return session.New(id, client, option.advisories) },
	)
	if err != nil {
		return nil, nil, err
	}

	e := echo.New()
	e.HideBanner = true
	echoutil.SetLevel(e, conf.LogLevel)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		if he := new(echo.HTTPError); errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			c.Logger().Info(err)
			return
		}
		c.Logger().Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	d := e.Group("/dashboard", store.Middleware)
	d.GET("/selection", handlers.GetSelectionHandler())
	d.PUT("/selection/model", handlers.PutModelHandler())
	d.PUT("/selection/version", handlers.PutVersionHandler())
	d.GET("/metrics", handlers.GetMetricsHandler(client))
	d.GET("/model", handlers.GetModelHandler(client))
	d.POST("/predict", handlers.PostPredictHandler())
	d.GET("/predict", handlers.GetPredictHandler())
	d.POST("/upload", handlers.PostUploadHandler(MaxUploadBytes))
	d.GET("/upload", handlers.GetUploadHandler())
	d.GET("/upload/result", handlers.GetUploadResultHandler())
	d.POST("/train", handlers.PostTrainHandler(option.trainDefault))
	d.GET("/train", handlers.GetTrainHandler())
	d.GET("/health", handlers.GetHealthHandler(client))

	return e, store, nil
}

// Serve runs e until ctx is done, or one of watched files is modified.
//
// Modification of watched files is reported as an error, so that the caller exits and is restarted.
func Serve(ctx context.Context, logger *log.Logger, e *echo.Echo, port int, watch ...string) error {
	if len(watch) != 0 {
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, watch...)
		if err != nil {
			return fmt.Errorf("can not watch configration: %w", err)
		}
		defer cancel()
		ctx = wctx
	}

	stop := context.AfterFunc(ctx, func() {
		logger.Printf("shutting down: %v", context.Cause(ctx))
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			logger.Printf("error on shutdown: %s", err)
		}
	})
	defer stop()

	logger.Printf("listening :%d", port)
	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
