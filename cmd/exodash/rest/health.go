package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Health is the result of health check.
type Health struct {
	// Status reported by the server. "ok" when it is told by fallback.
	Status string `json:"status"`

	// Endpoint which answered: "health", or "model/info" for fallback.
	Via string `json:"via"`
}

const (
	ViaHealth    = "health"
	ViaModelInfo = "model/info"
)

func (c *client) Health(ctx context.Context) (Health, error) {
	h, err := c.health(ctx)
	if err == nil {
		return h, nil
	}
	if ctx.Err() != nil {
		return Health{}, err
	}

	if _, ferr := c.ModelInfo(ctx); ferr != nil {
		return Health{}, ferr
	}
	return Health{Status: "ok", Via: ViaModelInfo}, nil
}

func (c *client) health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("health"), nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return Health{}, err
	}
	defer resp.Body.Close()

	body := map[string]json.RawMessage{}
	if err := unmarshalJsonResponse(
		resp, &body,
		MessageFor{
			Status4xx: "health check is not available",
			Status5xx: fmt.Sprintf("server is unhealthy (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return Health{}, err
	}

	h := Health{Status: "ok", Via: ViaHealth}
	if raw, ok := body["status"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			h.Status = s
		}
	}
	return h, nil
}
