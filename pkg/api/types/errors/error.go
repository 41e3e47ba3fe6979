package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorMessage is the body of non-2xx responses.
type ErrorMessage struct {
	Detail string `json:"detail"`

	// Kind of error. The remote API does not send it; the dashboard server does.
	Kind string `json:"kind,omitempty"`

	// Fields rejected by validation. The dashboard server sends it.
	Fields []string `json:"fields,omitempty"`
}

func (em *ErrorMessage) UnmarshalJSON(bytes []byte) error {
	f := new(struct {
		Detail *json.RawMessage `json:"detail"`
		Kind   string           `json:"kind"`
		Fields []string         `json:"fields"`
	})
	if err := json.Unmarshal(bytes, f); err != nil {
		return err
	}
	if f.Detail == nil {
		return fmt.Errorf(`required field missing: "detail"`)
	}

	// "detail" is a string usually, but validation errors of some servers send a list.
	var s string
	if err := json.Unmarshal(*f.Detail, &s); err == nil {
		em.Detail = s
	} else {
		em.Detail = string(*f.Detail)
	}
	em.Kind = f.Kind
	em.Fields = f.Fields
	return nil
}

// MarshalJSON writes fields as they are.
//
// ErrorMessage is also an error, and echo would reduce it into {"message": ...} without this.
func (em ErrorMessage) MarshalJSON() ([]byte, error) {
	type plain ErrorMessage
	return json.Marshal(plain(em))
}

func (e ErrorMessage) Error() string {
	return e.Detail
}
