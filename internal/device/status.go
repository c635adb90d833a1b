package device

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status is the device-defined result code carried in every response body.
// The phone sends it as a JSON string ("2000") on most endpoints and as a
// number on a few.
type Status string

const (
	StatusSuccess           Status = "2000"
	StatusInvalidParams     Status = "4000"
	StatusBusy              Status = "4001"
	StatusLineUnregistered  Status = "4002"
	StatusNotAllowed        Status = "4003"
	StatusUnsupported       Status = "4004"
	StatusLineMissing       Status = "4005"
	StatusURLsNotConfigured Status = "4006"
	StatusCallDoesNotExist  Status = "4007"
	StatusExportFailed      Status = "4008"
	StatusInputLimit        Status = "4009"
	StatusDefaultPassword   Status = "4010"
	StatusProcessingFailed  Status = "5000"
)

var statusText = map[Status]string{
	StatusSuccess:           "success",
	StatusInvalidParams:     "invalid input parameters",
	StatusBusy:              "device busy",
	StatusLineUnregistered:  "line not registered",
	StatusNotAllowed:        "operation not allowed",
	StatusUnsupported:       "operation not supported",
	StatusLineMissing:       "line does not exist",
	StatusURLsNotConfigured: "URLs not configured",
	StatusCallDoesNotExist:  "call does not exist",
	StatusExportFailed:      "configuration export failed",
	StatusInputLimit:        "input size limit exceeded",
	StatusDefaultPassword:   "default password not allowed",
	StatusProcessingFailed:  "failed to process request",
}

// Text describes the status code.
func (s Status) Text() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "unknown status"
}

func (s Status) String() string {
	return fmt.Sprintf("%s (%s)", string(s), s.Text())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Status(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("device: status is neither string nor number: %s", b)
	}
	*s = Status(n.String())
	return nil
}
