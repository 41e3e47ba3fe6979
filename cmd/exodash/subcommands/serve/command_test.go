package serve_test

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/config/profiles"
	"github.com/opst/exodash/cmd/exodash/subcommands/common"
	"github.com/opst/exodash/cmd/exodash/subcommands/internal/commandline"
	"github.com/opst/exodash/cmd/exodash/subcommands/logger"
	"github.com/opst/exodash/cmd/exodash/subcommands/serve"
	kcd "github.com/opst/exodash/pkg/configs/dashboard"
	"github.com/opst/exodash/pkg/utils/try"
)

func noEnv(string) string { return "" }

func TestServe(t *testing.T) {
	type served struct {
		e     *echo.Echo
		port  int
		watch []string
	}
	fake := func(dest *served) serve.ServeFunc {
		return func(_ context.Context, _ *log.Logger, e *echo.Echo, port int, watch ...string) error {
			*dest = served{e: e, port: port, watch: watch}
			return nil
		}
	}

	t.Run("it serves with the config file, and watches it", func(t *testing.T) {
		dir := t.TempDir()
		conf := filepath.Join(dir, "dashboard.yaml")
		if err := os.WriteFile(conf, []byte(`
port: 9090
apiRoot: https://exoplanet.invalid/api
loglevel: debug
`), 0600); err != nil {
			t.Fatal(err)
		}

		actual := served{}
		err := serve.Task(noEnv, fake(&actual))(
			context.Background(), logger.Null(),
			common.CommonFlags{ProfileStore: filepath.Join(dir, "no-store"), Env: filepath.Join(dir, "no-env")},
			commandline.MockCommandline[serve.Flags]{Flags_: serve.Flags{Config: conf}},
			[]any{},
		)
		if err != nil {
			t.Fatal(err)
		}
		if actual.port != 9090 || !slices.Equal(actual.watch, []string{conf}) {
			t.Errorf("served = %+v", actual)
		}

		paths := []string{}
		for _, r := range actual.e.Routes() {
			paths = append(paths, r.Method+" "+r.Path)
		}
		for _, want := range []string{
			"GET /dashboard/selection", "PUT /dashboard/selection/model", "PUT /dashboard/selection/version",
			"GET /dashboard/metrics", "GET /dashboard/model", "POST /dashboard/predict", "POST /dashboard/upload",
			"GET /dashboard/upload/result", "POST /dashboard/train", "GET /dashboard/health",
		} {
			if !slices.Contains(paths, want) {
				t.Errorf("route %s is missing in %v", want, paths)
			}
		}
	})

	t.Run("port flag overrides, and nothing is watched without config", func(t *testing.T) {
		dir := t.TempDir()
		actual := served{}
		err := serve.Task(noEnv, fake(&actual))(
			context.Background(), logger.Null(),
			common.CommonFlags{ProfileStore: filepath.Join(dir, "no-store"), Env: filepath.Join(dir, "no-env")},
			commandline.MockCommandline[serve.Flags]{Flags_: serve.Flags{Port: 18080}},
			[]any{},
		)
		if err != nil {
			t.Fatal(err)
		}
		if actual.port != 18080 || len(actual.watch) != 0 {
			t.Errorf("served = %+v", actual)
		}
	})

	t.Run("broken config is an error", func(t *testing.T) {
		dir := t.TempDir()
		conf := filepath.Join(dir, "dashboard.yaml")
		if err := os.WriteFile(conf, []byte("port: 0\n"), 0600); err != nil {
			t.Fatal(err)
		}
		actual := served{}
		err := serve.Task(noEnv, fake(&actual))(
			context.Background(), logger.Null(),
			common.CommonFlags{ProfileStore: filepath.Join(dir, "no-store"), Env: filepath.Join(dir, "no-env")},
			commandline.MockCommandline[serve.Flags]{Flags_: serve.Flags{Config: conf}},
			[]any{},
		)
		if !errors.Is(err, kcd.ErrInvalidConfig) {
			t.Errorf("unexpected error: %v", err)
		}
		if actual.e != nil {
			t.Error("server is started")
		}
	})
}

func TestProfile(t *testing.T) {
	dir := t.TempDir()
	cf := common.CommonFlags{Profile: "default", ProfileStore: filepath.Join(dir, "no-store")}

	t.Run("without apiRoot in config, the profile is used", func(t *testing.T) {
		conf := kcd.Default()
		conf.Timeout = 7
		prof := try.To(serve.Profile(conf, cf, noEnv)).OrFatal(t)
		if prof.ApiRoot != "http://127.0.0.1:8000/api" || prof.Timeout != 7 {
			t.Errorf("profile = %+v", prof)
		}
	})

	t.Run("apiRoot in config is used", func(t *testing.T) {
		conf := kcd.Default()
		conf.ApiRoot = "https://exoplanet.invalid/api"
		prof := try.To(serve.Profile(conf, cf, noEnv)).OrFatal(t)
		if prof.ApiRoot != "https://exoplanet.invalid/api" {
			t.Errorf("profile = %+v", prof)
		}
	})

	t.Run("environment variable overrides", func(t *testing.T) {
		conf := kcd.Default()
		conf.ApiRoot = "https://exoplanet.invalid/api"
		prof := try.To(serve.Profile(conf, cf, func(key string) string {
			if key == profiles.EnvApiUrl {
				return "https://override.invalid/api"
			}
			return ""
		})).OrFatal(t)
		if prof.ApiRoot != "https://override.invalid/api" {
			t.Errorf("profile = %+v", prof)
		}
	})
}
