package dashboard_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/dashboard"
	"github.com/opst/exodash/cmd/exodash/dashboard/session"
	"github.com/opst/exodash/cmd/exodash/rest/mock"
	ctxutil "github.com/opst/exodash/internal/testutils/context"
	httptestutil "github.com/opst/exodash/internal/testutils/http"
	"github.com/opst/exodash/pkg/api/types/models"
	"github.com/opst/exodash/pkg/api/types/predictions"
	"github.com/opst/exodash/pkg/api/types/training"
	kcd "github.com/opst/exodash/pkg/configs/dashboard"
	"github.com/opst/exodash/pkg/metrics"
	"github.com/opst/exodash/pkg/resolver"
	"github.com/opst/exodash/pkg/utils/try"
	"github.com/opst/exodash/pkg/workflow"
)

type phaseOnly struct {
	Phase     string             `json:"phase"`
	Models    []string           `json:"models"`
	Versions  []string           `json:"versions"`
	Selection resolver.Selection `json:"selection"`
}

type errorBody struct {
	Detail string   `json:"detail"`
	Kind   string   `json:"kind"`
	Fields []string `json:"fields"`
}

func fastAdvisories() session.Advisories {
	adv := workflow.Advisory{Interval: time.Millisecond, Step: func() int { return 10 }, Cap: 90}
	return session.Advisories{Upload: adv, Train: adv}
}

func decode[T any](t *testing.T, resp io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func sessionCookie(t *testing.T, header http.Header) *http.Cookie {
	t.Helper()
	resp := http.Response{Header: header}
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", header)
	return nil
}

func waitFor[T any](ctx context.Context, t *testing.T, e *echo.Echo, cookie *http.Cookie, target string) workflow.State[T] {
	t.Helper()
	for ctx.Err() == nil {
		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodGet, target, nil, httptestutil.WithCookies(cookie), httptestutil.WithContext(ctx),
		))
		state := decode[workflow.State[T]](t, resp.Body)
		if state.Status != workflow.Running {
			return state
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%s does not settle", target)
	return workflow.State[T]{}
}

func TestServer(t *testing.T) {
	ctx, cancel := ctxutil.WithTest(context.Background(), t)
	defer cancel()

	client := mock.New(t)
	client.Impl.ModelInfo = func(context.Context) (models.Catalog, error) {
		return models.Catalog{AvailableModels: []string{"gb", "rf"}, TotalModels: 2}, nil
	}
	latest := new(atomic.Value)
	latest.Store("v2")
	client.Impl.ModelVersions = func(_ context.Context, modelName string) (models.Versions, error) {
		l := latest.Load().(string)
		vs := []string{"v1", "v2"}
		if l == "v3" {
			vs = append(vs, "v3")
		}
		return models.Versions{ModelName: modelName, Versions: vs, LatestVersion: l}, nil
	}
	client.Impl.DashboardMetrics = func(_ context.Context, modelName string, version string) (metrics.View, error) {
		return metrics.View{ModelName: modelName, Version: version, ModelExists: true, Total: 10}, nil
	}
	client.Impl.Predict = func(context.Context, []predictions.Features, predictions.Params) (predictions.Response, error) {
		return predictions.Response{Predictions: []predictions.Result{{Class: "CANDIDATE"}}}, nil
	}
	client.Impl.Upload = func(context.Context, string, io.Reader, predictions.Params) (predictions.UploadSummary, error) {
		return predictions.UploadSummary{TotalPlanets: 1, DownloadURL: "/download/out_1.csv"}, nil
	}
	client.Impl.Download = func(_ context.Context, _ string, handler func(io.Reader) error) error {
		return handler(strings.NewReader("koi_period,class\n1,CANDIDATE\n"))
	}
	client.Impl.Train = func(context.Context, training.Hyperparameters) (training.Result, error) {
		latest.Store("v3")
		return training.Result{Status: "success", ModelVersion: "v3"}, nil
	}

	conf := kcd.Default()
	conf.SessionSecret = "test-secret"
	e, store, err := dashboard.New(conf, client, dashboard.WithAdvisories(fastAdvisories()))
	if err != nil {
		t.Fatal(err)
	}

	// first access starts a session and loads the catalog.
	resp := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/dashboard/selection", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body)
	}
	cookie := sessionCookie(t, resp.Header())
	sel := decode[phaseOnly](t, resp.Body)
	if sel.Phase != "ready" || sel.Selection != (resolver.Selection{ModelName: "gb", Version: "v2"}) {
		t.Errorf("selection = %+v", sel)
	}
	with := httptestutil.WithCookies(cookie)

	t.Run("metrics of the selection", func(t *testing.T) {
		resp := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/dashboard/metrics", nil, with))
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		view := decode[metrics.View](t, resp.Body)
		if view.ModelName != "gb" || view.Version != "v2" {
			t.Errorf("view = %+v", view)
		}
	})

	t.Run("another browser has its own selection", func(t *testing.T) {
		resp := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/dashboard/metrics", nil))
		if resp.Code != http.StatusConflict {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		if body := decode[errorBody](t, resp.Body); body.Kind != "not_ready" {
			t.Errorf("body = %+v", body)
		}
		if store.Len() != 2 {
			t.Errorf("sessions = %d", store.Len())
		}
	})

	t.Run("version can be changed", func(t *testing.T) {
		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodPut, "/dashboard/selection/version", strings.NewReader(`{"version": "v1"}`),
			with, httptestutil.ContentType(echo.MIMEApplicationJSON),
		))
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		if sel := decode[phaseOnly](t, resp.Body); sel.Selection.Version != "v1" {
			t.Errorf("selection = %+v", sel)
		}

		resp = httptestutil.Serve(e, httptestutil.Request(
			http.MethodPut, "/dashboard/selection/version", strings.NewReader(`{"version": "v9"}`),
			with, httptestutil.ContentType(echo.MIMEApplicationJSON),
		))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		if body := decode[errorBody](t, resp.Body); !slices.Equal(body.Fields, []string{"version"}) {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("predict with the selection", func(t *testing.T) {
		form := `{
			"koi_period": 9.48803557, "koi_duration": 2.9575, "koi_depth": 615.8, "koi_prad": 2.26,
			"koi_steff": 5455, "koi_slogg": 4.467, "koi_srad": 0.927, "koi_smass": 0.919,
			"koi_teq": 793, "koi_insol": 93.59
		}`
		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodPost, "/dashboard/predict", strings.NewReader(form),
			with, httptestutil.ContentType(echo.MIMEApplicationJSON),
		))
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		state := decode[workflow.State[workflow.Prediction]](t, resp.Body)
		if state.Status != workflow.Succeeded || state.Payload.Result.Class != "CANDIDATE" {
			t.Errorf("state = %+v", state)
		}
		if p := client.Calls.Predict[0].Params; p != (predictions.Params{ModelName: "gb", Version: "v1"}) {
			t.Errorf("params = %+v", p)
		}
	})

	t.Run("predict without required features", func(t *testing.T) {
		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodPost, "/dashboard/predict", strings.NewReader(`{"koi_period": "1"}`),
			with, httptestutil.ContentType(echo.MIMEApplicationJSON),
		))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		body := decode[errorBody](t, resp.Body)
		if body.Kind != "validation" || !slices.Contains(body.Fields, "koi_depth") {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("upload and download", func(t *testing.T) {
		buf := new(bytes.Buffer)
		mw := multipart.NewWriter(buf)
		fw := try.To(mw.CreateFormFile("file", "koi.csv")).OrFatal(t)
		fw.Write([]byte("koi_period\n1\n"))
		mw.Close()

		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodPost, "/dashboard/upload", buf, with, httptestutil.ContentType(mw.FormDataContentType()),
		))
		if resp.Code != http.StatusAccepted {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		state := waitFor[workflow.UploadResult](ctx, t, e, cookie, "/dashboard/upload")
		if state.Status != workflow.Succeeded || state.Payload.Handle != "out_1.csv" {
			t.Fatalf("state = %+v", state)
		}

		resp = httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/dashboard/upload/result", nil, with))
		if resp.Code != http.StatusOK || !strings.HasPrefix(resp.Body.String(), "koi_period,class") {
			t.Errorf("status = %d: %s", resp.Code, resp.Body)
		}
		if cd := resp.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "out_1.csv") {
			t.Errorf("content disposition = %s", cd)
		}
	})

	t.Run("non-CSV upload is rejected", func(t *testing.T) {
		buf := new(bytes.Buffer)
		mw := multipart.NewWriter(buf)
		fw := try.To(mw.CreateFormFile("file", "koi.xlsx")).OrFatal(t)
		fw.Write([]byte("..."))
		mw.Close()

		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodPost, "/dashboard/upload", buf, with, httptestutil.ContentType(mw.FormDataContentType()),
		))
		if resp.Code != http.StatusBadRequest {
			t.Errorf("status = %d: %s", resp.Code, resp.Body)
		}
	})

	t.Run("training refreshes the selection", func(t *testing.T) {
		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodPost, "/dashboard/train", strings.NewReader(`{"learning_rate": 0.05}`),
			with, httptestutil.ContentType(echo.MIMEApplicationJSON),
		))
		if resp.Code != http.StatusAccepted {
			t.Fatalf("status = %d: %s", resp.Code, resp.Body)
		}
		state := waitFor[training.Result](ctx, t, e, cookie, "/dashboard/train")
		if state.Status != workflow.Succeeded || state.Payload.ModelVersion != "v3" {
			t.Fatalf("state = %+v", state)
		}

		for ctx.Err() == nil {
			resp := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/dashboard/selection", nil, with))
			if sel := decode[phaseOnly](t, resp.Body); sel.Selection.Version == "v3" {
				return
			}
			time.Sleep(time.Millisecond)
		}
		t.Error("selection is not refreshed")
	})
}
