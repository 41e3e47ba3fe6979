package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/opst/exodash/cmd/exodash/dashboard/session"
	binderr "github.com/opst/exodash/pkg/api-types-binding/errors"
)

func currentSession(c echo.Context) (*session.Session, error) {
	s := session.From(c)
	if s == nil {
		return nil, binderr.InternalServerError(errors.New("no session is bound"))
	}
	return s, nil
}

// background is the context for work outliving the request.
func background(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

// readForm reads a flat form from JSON object or url-encoded/multipart form.
func readForm(c echo.Context) (map[string]string, error) {
	req := c.Request()
	form := map[string]string{}

	if strings.HasPrefix(strings.ToLower(req.Header.Get(echo.HeaderContentType)), echo.MIMEApplicationJSON) {
		raw := map[string]any{}
		dec := json.NewDecoder(req.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, binderr.BadRequest("can not understand the requested json", err)
		}
		for k, v := range raw {
			switch v := v.(type) {
			case nil:
				form[k] = ""
			case string, json.Number, bool:
				form[k] = fmt.Sprint(v)
			default:
				return nil, binderr.BadRequest(fmt.Sprintf("%s should be a scalar", k), nil)
			}
		}
		return form, nil
	}

	params, err := c.FormParams()
	if err != nil {
		return nil, binderr.BadRequest("can not understand the requested form", err)
	}
	for k, vs := range params {
		if len(vs) != 0 {
			form[k] = vs[0]
		}
	}
	return form, nil
}
