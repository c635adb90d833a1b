package device

import (
	"bytes"
	"encoding/json"

	"trio-driver/internal/telemetry"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Request is one device API call. Path is relative to the api/v1 base.
type Request struct {
	Method string
	Path   string
	// Body is sent as JSON when non-nil.
	Body any
}

func Get(path string) Request { return Request{Method: MethodGet, Path: path} }

func Post(path string, body any) Request {
	return Request{Method: MethodPost, Path: path, Body: body}
}

// Envelope is a decoded response: the status code plus the untouched data
// member, whose shape depends on the endpoint.
type Envelope struct {
	Status Status          `json:"Status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// message wraps a request payload the way the phone expects it.
type message struct {
	Data any `json:"data"`
}

// Object decodes data as a JSON object; any other shape yields nil.
func (e Envelope) Object() telemetry.Object {
	return telemetry.AsObject(e.decode())
}

// Objects decodes data as a JSON array of objects.
func (e Envelope) Objects() []telemetry.Object {
	return telemetry.AsObjects(e.decode())
}

func (e Envelope) decode() any {
	if len(bytes.TrimSpace(e.Data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(e.Data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
