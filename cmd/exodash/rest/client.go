package rest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	prof "github.com/opst/exodash/cmd/exodash/config/profiles"
	"github.com/opst/exodash/pkg/api/types/models"
	"github.com/opst/exodash/pkg/api/types/predictions"
	"github.com/opst/exodash/pkg/api/types/training"
	"github.com/opst/exodash/pkg/metrics"
)

// ExoClient is the gateway to the prediction API.
//
// Every failure is reported as one of kinds in pkg/errors:
// RequestFailed (network or api), or a contract violation for responses of unexpected shape.
// Nothing is retried or cached.
type ExoClient interface {
	// ModelInfo gets the model catalog.
	ModelInfo(ctx context.Context) (models.Catalog, error)

	// ModelVersions gets versions of a model.
	ModelVersions(ctx context.Context, modelName string) (models.Versions, error)

	// ModelVersionInfo gets metrics and files of a model version.
	ModelVersionInfo(ctx context.Context, modelName string, version string) (models.VersionDetail, error)

	// ModelInfoDetailed gets metrics of the model version which the server loads currently.
	ModelInfoDetailed(ctx context.Context, modelName string) (models.Detailed, error)

	// Predict classifies records.
	//
	// # Args
	//
	// - context.Context
	//
	// - []predictions.Features: records to be classified. They are sent as they are.
	//
	// - predictions.Params: model to be used. Empty fields are not sent.
	//
	// # Returns
	//
	// - predictions.Response: one prediction for each record, in the same order.
	//
	// - error
	Predict(ctx context.Context, records []predictions.Features, params predictions.Params) (predictions.Response, error)

	// Upload sends a CSV file and classifies each of its rows.
	//
	// body is streamed as multipart field "file". It is read until EOF.
	Upload(ctx context.Context, filename string, body io.Reader, params predictions.Params) (predictions.UploadSummary, error)

	// Download gets a result file of Upload.
	//
	// # Args
	//
	// - context.Context
	//
	// - filename: handle of the result file. See predictions.UploadSummary.DownloadHandle.
	//
	// - handler: function to be called with the raw stream.
	// If handler returns an error, downloading is stopped and the error is returned.
	Download(ctx context.Context, filename string, handler func(io.Reader) error) error

	// Train starts training of a new model version and waits for it.
	Train(ctx context.Context, hyperparameters training.Hyperparameters) (training.Result, error)

	// Health checks the server.
	//
	// When /health is not available, success of /model/info is taken as healthy.
	Health(ctx context.Context) (Health, error)

	// DashboardMetrics gets a model version and normalizes its metrics.
	DashboardMetrics(ctx context.Context, modelName string, version string) (metrics.View, error)
}

type client struct {
	httpclient *http.Client
	api        string
}

// NewClient creates a client for the profile.
//
// # Args
//
// - *prof.Profile: it should be resolved already (see Profile.Resolve).
//
// # Return
//
// - ExoClient: created client
//
// - error: If given profile is invalid, ErrProfileInvalid is returned.
func NewClient(p *prof.Profile) (ExoClient, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	httpclient := &http.Client{Timeout: p.RequestTimeout()}

	if p.Cert.CA != "" {
		hc, err := trustCa(httpclient, []string{p.Cert.CA})
		if err != nil {
			return nil, err
		}
		httpclient = hc
	}

	return &client{
		httpclient: httpclient,
		api:        strings.TrimSuffix(p.ApiRoot, "/"),
	}, nil
}

// build URL with path segments. Each segment is escaped.
func (c *client) apipath(path ...string) string {
	segments := make([]string, 0, len(path)+1)
	segments = append(segments, c.api)
	for _, p := range path {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

// build URL with path segments and query. Empty query is omitted.
func (c *client) apiquery(query url.Values, path ...string) string {
	u := c.apipath(path...)
	if q := query.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

func trustCa(hc *http.Client, cacerts []string) (*http.Client, error) {
	if len(cacerts) <= 0 {
		return hc, nil
	}

	if hc.Transport == nil {
		hc.Transport = http.DefaultTransport
	}

	tran, ok := hc.Transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("failed to add ca cert")
	}
	tran = tran.Clone()

	tcc := tran.TLSClientConfig.Clone()
	if tcc == nil {
		tcc = &tls.Config{}
	}

	rootcas := tcc.RootCAs
	if rootcas == nil {
		rootcas = x509.NewCertPool()
		tcc.RootCAs = rootcas
	}
	for _, ca := range cacerts {
		bin, err := base64.StdEncoding.DecodeString(ca)
		if err != nil {
			return nil, err
		}
		if !rootcas.AppendCertsFromPEM(bin) {
			return nil, fmt.Errorf("failed to add cert")
		}
	}

	tran.TLSClientConfig = tcc
	hc.Transport = tran
	return hc, nil
}
