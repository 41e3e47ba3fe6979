package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opst/exodash/pkg/api/types/training"
	xe "github.com/opst/exodash/pkg/errors"
)

func (c *client) Train(ctx context.Context, hyperparameters training.Hyperparameters) (training.Result, error) {
	body, err := json.Marshal(hyperparameters)
	if err != nil {
		return training.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apipath("train"), bytes.NewReader(body))
	if err != nil {
		return training.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return training.Result{}, err
	}
	defer resp.Body.Close()

	var result training.Result
	if err := unmarshalJsonResponse(
		resp, &result,
		MessageFor{
			Status4xx: "training is rejected",
			Status5xx: fmt.Sprintf("training failed (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return training.Result{}, err
	}
	if result.ModelVersion == "" {
		return training.Result{}, xe.Contract("training result does not tell the new model version")
	}
	return result, nil
}
