package session_test

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/dashboard/session"
	"github.com/opst/exodash/cmd/exodash/rest/mock"
	httptestutil "github.com/opst/exodash/internal/testutils/http"
	"github.com/opst/exodash/pkg/utils/try"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T, secret string, clk *clock) (*echo.Echo, *session.Store) {
	client := mock.New(t)
	store := try.To(session.NewStore(
		[]byte(secret), time.Hour,
		func(id string) *session.Session { return session.New(id, client, session.DefaultAdvisories()) },
		session.WithClock(clk.Now),
	)).OrFatal(t)

	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, session.From(c).Id)
	}, store.Middleware)
	return e, store
}

func sessionCookie(t *testing.T, resp interface{ Result() *http.Response }) *http.Cookie {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestMiddleware(t *testing.T) {
	t.Run("the cookie brings the browser back to its session", func(t *testing.T) {
		clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
		e, store := setup(t, "secret", clk)

		first := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/whoami", nil))
		cookie := sessionCookie(t, first)
		if !cookie.HttpOnly {
			t.Error("cookie is not HttpOnly")
		}

		clk.Advance(30 * time.Minute)
		second := httptestutil.Serve(e, httptestutil.Request(
			http.MethodGet, "/whoami", nil, httptestutil.WithCookies(cookie),
		))
		if first.Body.String() == "" || second.Body.String() != first.Body.String() {
			t.Errorf("sessions: %q -> %q", first.Body.String(), second.Body.String())
		}
		if store.Len() != 1 {
			t.Errorf("sessions = %d", store.Len())
		}

		// the renewed token lives longer than the first one.
		clk.Advance(45 * time.Minute)
		third := httptestutil.Serve(e, httptestutil.Request(
			http.MethodGet, "/whoami", nil, httptestutil.WithCookies(sessionCookie(t, second)),
		))
		if third.Body.String() != first.Body.String() {
			t.Errorf("sessions: %q -> %q", first.Body.String(), third.Body.String())
		}
	})

	t.Run("without cookie, each browser has its own session", func(t *testing.T) {
		clk := &clock{now: time.Now()}
		e, store := setup(t, "secret", clk)

		a := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/whoami", nil))
		b := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/whoami", nil))
		if a.Body.String() == b.Body.String() {
			t.Errorf("sessions are shared: %s", a.Body.String())
		}
		if store.Len() != 2 {
			t.Errorf("sessions = %d", store.Len())
		}
	})

	t.Run("token signed by other key is not accepted", func(t *testing.T) {
		clk := &clock{now: time.Now()}
		e, _ := setup(t, "secret", clk)
		other, _ := setup(t, "other secret", clk)

		forged := sessionCookie(t, httptestutil.Serve(other, httptestutil.Request(http.MethodGet, "/whoami", nil)))
		resp := httptestutil.Serve(e, httptestutil.Request(
			http.MethodGet, "/whoami", nil, httptestutil.WithCookies(forged),
		))
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d", resp.Code)
		}
		if sessionCookie(t, resp).Value == forged.Value {
			t.Error("forged token is kept")
		}
	})

	t.Run("idle session expires", func(t *testing.T) {
		clk := &clock{now: time.Now()}
		e, store := setup(t, "secret", clk)

		first := httptestutil.Serve(e, httptestutil.Request(http.MethodGet, "/whoami", nil))
		clk.Advance(2 * time.Hour)
		second := httptestutil.Serve(e, httptestutil.Request(
			http.MethodGet, "/whoami", nil, httptestutil.WithCookies(sessionCookie(t, first)),
		))
		if first.Body.String() == second.Body.String() {
			t.Error("expired session is reused")
		}
		if store.Len() != 1 {
			t.Errorf("expired session is kept: %d", store.Len())
		}
	})
}

func TestVerify(t *testing.T) {
	clk := &clock{now: time.Now()}
	_, store := setup(t, "secret", clk)

	token := try.To(store.Sign("session-1")).OrFatal(t)
	if id := try.To(store.Verify(token)).OrFatal(t); id != "session-1" {
		t.Errorf("id = %s", id)
	}

	for name, token := range map[string]string{
		"empty":     "",
		"malformed": "not.a.jwt",
		"tampered":  token + "x",
	} {
		t.Run(name+" token is invalid", func(t *testing.T) {
			if _, err := store.Verify(token); !errors.Is(err, session.ErrInvalidToken) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	clk.Advance(2 * time.Hour)
	if _, err := store.Verify(token); !errors.Is(err, session.ErrInvalidToken) {
		t.Errorf("expired token: unexpected error: %v", err)
	}
}
