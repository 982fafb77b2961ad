// Package speculos drives the Speculos hardware-device emulator as a
// subprocess and controls it over its local HTTP API, for integration
// testing of apps targeting Ledger devices.
package speculos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultBinary       = "speculos"
	defaultReadyTimeout = 30 * time.Second
	defaultHTTPTimeout  = 10 * time.Second
)

type options struct {
	binary       string
	readyTimeout time.Duration
	httpTimeout  time.Duration
	extraArgs    []string
}

// Option configures a Client at construction time.
type Option func(*options)

// WithBinary overrides the emulator executable path. The default is
// "speculos" from PATH, or the SPECULOS_BIN environment variable if set.
func WithBinary(path string) Option {
	return func(o *options) { o.binary = path }
}

// WithReadyTimeout bounds the wait for the emulator readiness marker.
func WithReadyTimeout(d time.Duration) Option {
	return func(o *options) { o.readyTimeout = d }
}

// WithHTTPTimeout overrides the per-request API timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) { o.httpTimeout = d }
}

// WithArgs appends extra emulator arguments before the app path.
func WithArgs(args ...string) Option {
	return func(o *options) { o.extraArgs = args }
}

// Client is a live connection to one running emulator instance. It is the
// sole owner of the subprocess; Close terminates it. One Client supports
// concurrent calls, no ordering is imposed between them.
type Client struct {
	proc *emuProcess
	port int
	http *http.Client
	id   string

	closeOnce sync.Once
}

// New launches the emulator for the given model and app, waits for it to
// signal readiness on stderr and returns a usable handle. Construction fails
// if the process cannot be spawned, exits before signaling readiness, or the
// readiness wait times out; no partially initialized client is returned.
//
// Use distinct port values when launching multiple instances.
func New(model DeviceModel, port int, app string, opts ...Option) (*Client, error) {
	o := options{
		binary:       getenv("SPECULOS_BIN", defaultBinary),
		readyTimeout: defaultReadyTimeout,
		httpTimeout:  defaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	proc, err := startEmulator(o.binary, emulatorArgs(port, model, app, o.extraArgs)...)
	if err != nil {
		return nil, err
	}
	if err := proc.waitReady(readyMarker, o.readyTimeout); err != nil {
		log.Error().Err(err).Msg("[New] emulator not ready")
		proc.kill()
		return nil, err
	}

	c := &Client{
		proc: proc,
		port: port,
		http: &http.Client{Timeout: o.httpTimeout},
		id:   uuid.New().String(),
	}
	log.Info().Str("client", c.id).Int("port", port).Str("model", model.Slug()).Msg("emulator ready")
	return c, nil
}

// Port returns the API port this client speaks to.
func (c *Client) Port() int {
	return c.port
}

// Apdu sends one APDU command and returns the device's response bytes. Both
// sides are opaque here, parsing is the caller's concern.
func (c *Client) Apdu(ctx context.Context, data []byte) ([]byte, error) {
	body, err := encodeAPDU(data)
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, "/apdu", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read apdu response: %w", ErrTransport, err)
	}
	return decodeAPDU(respBody)
}

// Automation installs the given automation rules on the emulator. Unlike
// Apdu, the HTTP status is checked: the endpoint rejects malformed rule sets
// with a non-2xx status and an empty body.
func (c *Client) Automation(ctx context.Context, rules []Rule) error {
	body, err := encodeAutomation(rules)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, "/automation", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: automation rejected: %s", ErrTransport, resp.Status)
	}
	return nil
}

// Close terminates the owned emulator subprocess. It is idempotent and never
// fails; in-flight calls error out once the process and its port disappear.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		log.Debug().Str("client", c.id).Msg("[Close] killing emulator")
		c.proc.kill()
	})
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	url := fmt.Sprintf("http://localhost:%d%s", c.port, path)
	log.Debug().Str("client", c.id).Str("url", url).Str("body", string(body)).Msg("[post] request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, path, err)
	}
	return resp, nil
}

func getenv(k, d string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return d
}
