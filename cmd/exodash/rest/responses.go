package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apierr "github.com/opst/exodash/pkg/api/types/errors"
	xe "github.com/opst/exodash/pkg/errors"
)

// MessageFor is summary of error for each status code range.
//
// It is shown when the server does not send "detail".
type MessageFor map[StatusCodeRange]string

// send request, and classify transport error as network failure.
func (c *client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, xe.NewNetworkFailure(err)
	}
	return resp, nil
}

// unmarshal http response which has json content.
//
// # Args
//
// - resp: http response to be processed.
//
// - v: value which response should be.
//
// - messageFor: summary of error message for HTTP status code range.
//
// # Returns
//
// error if...
//
// - status code is not 2xx: RequestFailed of kind Api.
//
// - response body is not shaped of v: contract violation.
func unmarshalJsonResponse[T any](resp *http.Response, v *T, messageFor MessageFor) error {
	if err := checkStatus(resp, messageFor); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return xe.Contract("response of %s: %s", resp.Request.URL.Path, err)
	}
	return nil
}

// unmarshalStreamResponse returns body of successful response as is.
//
// Caller should close returned body.
func unmarshalStreamResponse(resp *http.Response, messageFor MessageFor) (io.ReadCloser, error) {
	if err := checkStatus(resp, messageFor); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response, messageFor MessageFor) error {
	scr := StatusCodeRangeOf(resp)
	if scr == Status2xx {
		return nil
	}

	message, ok := messageFor[scr]
	if !ok {
		message = fmt.Sprintf("%s (status code = %d)", scr, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		rf := xe.NewApiError(resp.StatusCode, message, "")
		rf.Cause = err
		return rf
	}

	return xe.NewApiError(resp.StatusCode, message, parseErrorMessage(body))
}

// parseErrorMessage extracts "detail" from body. It returns "" if no detail is there.
func parseErrorMessage(body []byte) string {
	em := new(apierr.ErrorMessage)
	if err := json.Unmarshal(body, em); err != nil {
		return ""
	}
	return em.Detail
}
