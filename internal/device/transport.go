package device

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icholy/digest"
)

// BasePath is prepended to every endpoint path.
const BasePath = "api/v1/"

const maxResponseBytes = 4 << 20

type AuthScheme string

const (
	AuthBasic  AuthScheme = "basic"
	AuthDigest AuthScheme = "digest"
)

// Doer performs one request against the phone. Implementations do not retry.
type Doer interface {
	Do(ctx context.Context, req Request) (Envelope, error)
}

type TransportConfig struct {
	// BaseURL is scheme://host[:port] of the phone.
	BaseURL  string
	Username string
	Password string
	Auth     AuthScheme
	// InsecureTLS skips certificate verification; the phones ship self-signed.
	InsecureTLS bool
	Timeout     time.Duration
	// HTTPClient overrides the client built from the fields above. Auth is
	// still applied on top of it.
	HTTPClient *http.Client
}

// HTTPTransport talks JSON over HTTP(S) to the phone's REST API.
type HTTPTransport struct {
	base     *url.URL
	client   *http.Client
	username string
	password string
	auth     AuthScheme
}

func NewHTTPTransport(cfg TransportConfig) (*HTTPTransport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("device: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/" + BasePath)
	if err != nil {
		return nil, fmt.Errorf("device: parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("device: base url %q has no host", cfg.BaseURL)
	}
	auth := cfg.Auth
	if auth == "" {
		auth = AuthBasic
	}
	if auth != AuthBasic && auth != AuthDigest {
		return nil, fmt.Errorf("device: unsupported auth scheme %q", auth)
	}

	var client http.Client
	if cfg.HTTPClient != nil {
		client = *cfg.HTTPClient
	} else {
		rt := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureTLS {
			rt.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed device certs
		}
		client.Transport = rt
		client.Timeout = cfg.Timeout
	}
	if auth == AuthDigest {
		client.Transport = &digest.Transport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: client.Transport,
		}
	}

	return &HTTPTransport{
		base:     base,
		client:   &client,
		username: cfg.Username,
		password: cfg.Password,
		auth:     auth,
	}, nil
}

// Host is the device address used in errors and logs.
func (t *HTTPTransport) Host() string { return t.base.Host }

func (t *HTTPTransport) Do(ctx context.Context, r Request) (Envelope, error) {
	fail := func(err error, code int) (Envelope, error) {
		return Envelope{}, &TransportError{Host: t.base.Host, Path: r.Path, HTTPStatus: code, Err: err}
	}

	target, err := t.base.Parse(strings.TrimLeft(r.Path, "/"))
	if err != nil {
		return fail(err, 0)
	}

	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return fail(fmt.Errorf("encode body: %w", err), 0)
		}
		body = bytes.NewReader(b)
	}

	method := r.Method
	if method == "" {
		method = MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fail(err, 0)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.auth == AuthBasic && t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fail(err, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fail(fmt.Errorf("unexpected http status %s", resp.Status), resp.StatusCode)
	}

	var env Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return fail(fmt.Errorf("decode response: %w", err), 0)
	}
	return env, nil
}
