package predictions

import (
	"net/url"
	"path"
	"strings"
)

// Names of KOI features the classifier accepts, in the order of the training dataset.
var FeatureNames = []string{
	"koi_period",
	"koi_duration",
	"koi_depth",
	"koi_prad",
	"koi_steff",
	"koi_slogg",
	"koi_srad",
	"koi_smass",
	"koi_teq",
	"koi_insol",
	"koi_dor",
	"koi_limbdark_mod",
	"koi_ldm_coeff4",
	"koi_ldm_coeff3",
	"koi_ldm_coeff2",
	"koi_ldm_coeff1",
	"koi_ldm_coeff0",
	"koi_impact",
	"koi_dor_err1",
	"koi_dor_err2",
	"koi_ror",
	"koi_ror_err1",
	"koi_ror_err2",
	"koi_impact_err1",
	"koi_impact_err2",
	"koi_duration_err1",
	"koi_duration_err2",
	"koi_period_err1",
	"koi_period_err2",
	"koi_time0bk",
	"koi_time0bk_err1",
	"koi_time0bk_err2",
	"koi_depth_err1",
	"koi_depth_err2",
	"koi_ingress",
	"koi_ingress_err1",
	"koi_ingress_err2",
	"koi_steff_err1",
	"koi_steff_err2",
	"koi_slogg_err1",
	"koi_slogg_err2",
	"koi_srad_err1",
	"koi_srad_err2",
	"koi_smass_err1",
	"koi_smass_err2",
	"koi_teq_err1",
	"koi_teq_err2",
	"koi_insol_err1",
	"koi_insol_err2",
}

// Features which should be given to make a prediction.
var RequiredFeatures = []string{
	"koi_period",
	"koi_duration",
	"koi_depth",
	"koi_prad",
	"koi_steff",
	"koi_slogg",
	"koi_srad",
	"koi_smass",
	"koi_teq",
	"koi_insol",
}

// IsFeature tells whether name is one of FeatureNames.
func IsFeature(name string) bool {
	for _, f := range FeatureNames {
		if f == name {
			return true
		}
	}
	return false
}

// Features is a record of KOI features, keyed by feature name.
type Features map[string]float64

type Request struct {
	Data []Features `json:"data"`
}

// Params selects a model used for prediction.
//
// Empty fields mean "server default".
type Params struct {
	ModelName string `json:"model_name,omitempty"`
	Version   string `json:"version,omitempty"`
}

// Query builds query parameters. Empty fields are omitted, not sent as empty values.
func (p Params) Query() url.Values {
	q := url.Values{}
	if p.ModelName != "" {
		q.Add("model_name", p.ModelName)
	}
	if p.Version != "" {
		q.Add("version", p.Version)
	}
	return q
}

type Result struct {
	Class         string             `json:"class"`
	Probabilities map[string]float64 `json:"probabilities"`
}

type ModelInfo struct {
	ModelName string `json:"model_name"`
	Version   string `json:"version"`
	UsedModel string `json:"used_model"`
}

type Response struct {
	Predictions []Result   `json:"predictions"`
	ModelInfo   *ModelInfo `json:"model_info,omitempty"`
}

// UploadSummary is the response of POST /predict/upload .
type UploadSummary struct {
	TotalPlanets      int            `json:"total_planets"`
	ClassDistribution map[string]int `json:"class_distribution"`
	DownloadURL       string         `json:"download_url"`
}

const DefaultResultFilename = "predictions.csv"

// DownloadHandle is the filename to be passed to GET /download/{filename} .
//
// It is the last path segment of DownloadURL.
func (us UploadSummary) DownloadHandle() string {
	u := strings.TrimSpace(us.DownloadURL)
	if parsed, err := url.Parse(u); err == nil {
		u = parsed.Path
	}
	base := path.Base(u)
	if base == "." || base == "/" || base == "" {
		return DefaultResultFilename
	}
	return base
}
