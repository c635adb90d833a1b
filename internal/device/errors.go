package device

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every network, TLS, timeout, HTTP or decoding
	// failure talking to the phone.
	ErrTransport = errors.New("device: transport failure")
	// ErrCommand matches every non-success, non-ignorable device status.
	ErrCommand = errors.New("device: command failed")
)

// TransportError is an I/O level failure. It is never retried.
type TransportError struct {
	Host string
	Path string
	// HTTPStatus is set when the phone answered with a non-2xx code.
	HTTPStatus int
	Err        error
}

func (e *TransportError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("device %s: %s: http status %d", e.Host, e.Path, e.HTTPStatus)
	}
	return fmt.Sprintf("device %s: %s: %v", e.Host, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// CommandError reports a device status that is neither success nor
// ignorable for the request that produced it.
type CommandError struct {
	Host   string
	Path   string
	Status Status
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device %s: %s: status %s", e.Host, e.Path, e.Status)
}

func (e *CommandError) Is(target error) bool { return target == ErrCommand }
