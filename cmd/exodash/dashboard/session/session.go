// Package session keeps orchestration state for each browser.
//
// A browser is told its session by a cookie carrying an HS256-signed JWT,
// whose "jti" claim is the session id.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/rest"
	"github.com/opst/exodash/pkg/api/types/predictions"
	"github.com/opst/exodash/pkg/resolver"
	"github.com/opst/exodash/pkg/workflow"
)

const CookieName = "exodash-session"

const contextKey = "exodash/session"

var ErrInvalidToken = errors.New("invalid session token")

// Session owns one Resolver and the workflows of a browser.
type Session struct {
	Id string

	Resolver *resolver.Resolver
	Predict  *workflow.Predict
	Upload   *workflow.Upload
	Train    *workflow.Train

	mu        sync.Mutex
	selection resolver.Selection
	lastSeen  time.Time
}

type Advisories struct {
	Upload workflow.Advisory
	Train  workflow.Advisory
}

func DefaultAdvisories() Advisories {
	return Advisories{Upload: workflow.UploadAdvisory(), Train: workflow.TrainAdvisory()}
}

func New(id string, client rest.ExoClient, advisories Advisories) *Session {
	s := &Session{
		Id:      id,
		Predict: workflow.NewPredict(client),
		Upload:  workflow.NewUpload(client, advisories.Upload),
		Train:   workflow.NewTrain(client, advisories.Train),
	}
	s.Resolver = resolver.New(client, func(sel resolver.Selection) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.selection = sel
	})
	return s
}

// Selection is the last selection resolved.
func (s *Session) Selection() resolver.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Params for prediction with the current selection.
func (s *Session) Params() predictions.Params {
	sel := s.Selection()
	return predictions.Params{ModelName: sel.ModelName, Version: sel.Version}
}

// Refresh resolves the selected model again, to pick up new versions.
func (s *Session) Refresh(ctx context.Context) error {
	sel := s.Selection()
	if sel.ModelName == "" {
		return s.Resolver.Load(ctx)
	}
	return s.Resolver.SelectModel(ctx, sel.ModelName)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Store holds sessions in memory.
type Store struct {
	secret []byte
	ttl    time.Duration
	create func(id string) *Session
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

type StoreOption func(*Store) *Store

// WithClock replaces the clock of Store.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) *Store {
		s.now = now
		return s
	}
}

// NewStore creates Store.
//
// # Args
//
// - secret: key to sign tokens. When it is empty, a random key is used.
//
// - ttl: sessions idle longer than this are discarded, and so are their tokens.
//
// - create: builds a new Session with the given id.
func NewStore(secret []byte, ttl time.Duration, create func(id string) *Session, options ...StoreOption) (*Store, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	st := &Store{
		secret:   secret,
		ttl:      ttl,
		create:   create,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
	for _, opt := range options {
		st = opt(st)
	}
	return st, nil
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sign issues a token for the session id.
func (st *Store) Sign(id string) (string, error) {
	now := st.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(st.ttl)),
	})
	return tok.SignedString(st.secret)
}

// Verify returns the session id in token.
//
// # Returns
//
// - string: session id
//
// - error: ErrInvalidToken when the token is malformed, forged or expired.
func (st *Store) Verify(token string) (string, error) {
	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(
		token, claims,
		func(*jwt.Token) (any, error) { return st.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(st.now),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: no session id", ErrInvalidToken)
	}
	return claims.ID, nil
}

// get returns the live session, or starts a new one.
func (st *Store) get(id string) (*Session, bool) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	for k, s := range st.sessions {
		if st.ttl < s.idleSince(now) {
			delete(st.sessions, k)
		}
	}

	if s, ok := st.sessions[id]; ok && id != "" {
		s.touch(now)
		return s, false
	}

	s := st.create(uuid.NewString())
	s.touch(now)
	st.sessions[s.Id] = s
	return s, true
}

// Middleware binds the session of the request to echo.Context.
//
// Requests without a valid token get a new session. Tokens are renewed on every response.
func (st *Store) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := ""
		if cookie, err := c.Cookie(CookieName); err == nil {
			if verified, err := st.Verify(cookie.Value); err == nil {
				id = verified
			} else {
				c.Logger().Debugf("session token is dropped: %s", err)
			}
		}

		s, created := st.get(id)
		if created {
			c.Logger().Infof("new session: %s", s.Id)
		}

		token, err := st.Sign(s.Id)
		if err != nil {
			return err
		}
		c.SetCookie(&http.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			Expires:  st.now().Add(st.ttl),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		c.Set(contextKey, s)
		return next(c)
	}
}

// From returns the session bound by Middleware.
func From(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}

// Bind binds s to c, without Middleware.
func Bind(c echo.Context, s *Session) {
	c.Set(contextKey, s)
}
