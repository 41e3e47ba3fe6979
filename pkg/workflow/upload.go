package workflow

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/opst/exodash/pkg/api/types/predictions"
	xe "github.com/opst/exodash/pkg/errors"
)

// ErrNoResult is returned when result is downloaded before any upload succeeds.
var ErrNoResult = errors.New("no result to be downloaded")

type Uploader interface {
	Upload(ctx context.Context, filename string, body io.Reader, params predictions.Params) (predictions.UploadSummary, error)
	Download(ctx context.Context, filename string, handler func(io.Reader) error) error
}

// UploadResult is the payload of succeeded Upload.
type UploadResult struct {
	Filename string                    `json:"filename"`
	Summary  predictions.UploadSummary `json:"summary"`

	// Handle to download the result file.
	Handle string `json:"handle"`
}

// Upload classifies each row of a CSV file.
type Upload struct {
	client   Uploader
	advisory Advisory
	machine  *Machine[UploadResult]
}

func NewUpload(client Uploader, advisory Advisory) *Upload {
	return &Upload{client: client, advisory: advisory, machine: NewMachine[UploadResult]()}
}

func (u *Upload) State() State[UploadResult] {
	return u.machine.State()
}

// CheckFilename accepts only CSV files.
func CheckFilename(filename string) error {
	if !strings.EqualFold(path.Ext(filename), ".csv") {
		return xe.NewValidationFailure("only CSV files are accepted", "file")
	}
	return nil
}

// Start uploads body in background.
//
// body should be readable until the returned Pending is done.
//
// # Returns
//
// - *Pending[UploadResult]: the upload in flight.
//
// - error: ErrBusy, or ValidationFailure.
func (u *Upload) Start(
	ctx context.Context, filename string, body io.Reader, params predictions.Params,
) (*Pending[UploadResult], error) {
	tok, err := u.machine.Begin("")
	if err != nil {
		return nil, err
	}
	if err := CheckFilename(filename); err != nil {
		u.machine.Fail(tok, err)
		return nil, err
	}

	stop := u.advisory.Start(func(progress int, step string) {
		u.machine.Progress(tok, progress, step)
	})

	return u.machine.spawn(tok, func() (UploadResult, error) {
		summary, err := u.client.Upload(ctx, path.Base(filename), body, params)
		if err != nil {
			return UploadResult{}, err
		}
		return UploadResult{
			Filename: path.Base(filename),
			Summary:  summary,
			Handle:   summary.DownloadHandle(),
		}, nil
	}, stop, ""), nil
}

// Run is Start and Wait.
func (u *Upload) Run(
	ctx context.Context, filename string, body io.Reader, params predictions.Params,
) (UploadResult, error) {
	pending, err := u.Start(ctx, filename, body, params)
	if err != nil {
		return UploadResult{}, err
	}
	return pending.Wait()
}

// Download gets the result file of the last succeeded upload.
//
// # Returns
//
// - error: ErrNoResult unless the last upload has succeeded, or an error from the server or handler.
func (u *Upload) Download(ctx context.Context, handler func(io.Reader) error) error {
	state := u.machine.State()
	if state.Status != Succeeded || state.Payload == nil {
		return ErrNoResult
	}
	return u.client.Download(ctx, state.Payload.Handle, handler)
}
