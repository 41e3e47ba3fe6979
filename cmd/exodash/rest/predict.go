package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"

	"github.com/opst/exodash/pkg/api/types/predictions"
	xe "github.com/opst/exodash/pkg/errors"
)

// Tolerance of sum of probabilities in a prediction.
const ProbabilityTolerance = 1e-3

func (c *client) Predict(
	ctx context.Context, records []predictions.Features, params predictions.Params,
) (predictions.Response, error) {
	body, err := json.Marshal(predictions.Request{Data: records})
	if err != nil {
		return predictions.Response{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apiquery(params.Query(), "predict"), bytes.NewReader(body),
	)
	if err != nil {
		return predictions.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return predictions.Response{}, err
	}
	defer resp.Body.Close()

	var result predictions.Response
	if err := unmarshalJsonResponse(
		resp, &result,
		MessageFor{
			Status4xx: "prediction is rejected",
			Status5xx: fmt.Sprintf("prediction failed (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return predictions.Response{}, err
	}

	if len(result.Predictions) != len(records) {
		return predictions.Response{}, xe.Contract(
			"%d records are sent, but %d predictions are returned",
			len(records), len(result.Predictions),
		)
	}
	for i, p := range result.Predictions {
		if err := verifyPrediction(p); err != nil {
			return predictions.Response{}, fmt.Errorf("prediction #%d: %w", i, err)
		}
	}
	return result, nil
}

func verifyPrediction(p predictions.Result) error {
	if p.Class == "" {
		return xe.Contract("class is missing")
	}
	sum := 0.0
	for _, v := range p.Probabilities {
		sum += v
	}
	if math.Abs(sum-1) > ProbabilityTolerance {
		return xe.Contract("probabilities sum to %f, not 1", sum)
	}
	return nil
}

func (c *client) Upload(
	ctx context.Context, filename string, body io.Reader, params predictions.Params,
) (predictions.UploadSummary, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apiquery(params.Query(), "predict", "upload"), pr,
	)
	if err != nil {
		pr.CloseWithError(err)
		return predictions.UploadSummary{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		pr.CloseWithError(err)
		return predictions.UploadSummary{}, err
	}
	defer resp.Body.Close()

	var summary predictions.UploadSummary
	if err := unmarshalJsonResponse(
		resp, &summary,
		MessageFor{
			Status4xx: fmt.Sprintf("%s is rejected", filename),
			Status5xx: fmt.Sprintf("prediction failed (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return predictions.UploadSummary{}, err
	}
	return summary, nil
}

func (c *client) Download(ctx context.Context, filename string, handler func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("download", filename), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := unmarshalStreamResponse(
		resp,
		MessageFor{
			Status4xx: fmt.Sprintf("result file %s is not found", filename),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	)
	if err != nil {
		return err
	}

	return handler(body)
}
