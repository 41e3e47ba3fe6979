package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs each request and its response.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		begin := time.Now()
		c.Logger().Infof("< request %s %s", meth, path)

		err := next(c)

		elapsed := time.Since(begin)
		if err != nil {
			c.Logger().Infof("> response for %s %s in %v / error = %+v", meth, path, elapsed, err)
		} else {
			c.Logger().Infof("> response for %s %s: status = %d in %v", meth, path, c.Response().Status, elapsed)
		}
		return err
	}
}

// ParseLevel reads a log level: debug, info, warn, error or off.
//
// Empty is warn. The second value is false for unknown level, and warn is returned then.
func ParseLevel(loglevel string) (log.Lvl, bool) {
	switch strings.ToLower(strings.TrimSpace(loglevel)) {
	case "debug":
		return log.DEBUG, true
	case "info":
		return log.INFO, true
	case "warn", "":
		return log.WARN, true
	case "error":
		return log.ERROR, true
	case "off":
		return log.OFF, true
	default:
		return log.WARN, false
	}
}

func SetLevel(e *echo.Echo, loglevel string) {
	lvl, ok := ParseLevel(loglevel)
	e.Logger.SetLevel(lvl)
	if !ok {
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}
