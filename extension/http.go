package extension

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/justapithecus/panelrt/iox"
	"github.com/justapithecus/panelrt/value"
)

// HTTPExtension exposes a minimal HTTP client as ext:http, backed by
// the standard library net/http — the distilled spec's own S4
// scenario names `ext.http.get` verbatim, so the extension name and
// method shape are preserved exactly rather than reached for a
// third-party client.
type HTTPExtension struct {
	client *http.Client
}

// NewHTTPExtension builds an HTTPExtension with the given timeout.
func NewHTTPExtension(timeout time.Duration) *HTTPExtension {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPExtension{client: &http.Client{Timeout: timeout}}
}

// Methods implements Extension.
func (h *HTTPExtension) Methods() []string {
	return []string{"get", "post"}
}

// Call implements Extension. Arguments are positional: get(url),
// post(url, body).
func (h *HTTPExtension) Call(ctx context.Context, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "get":
		return h.do(ctx, http.MethodGet, args, "")
	case "post":
		body := ""
		if len(args) > 1 {
			if s, ok := args[1].AsString(); ok {
				body = s
			}
		}
		return h.do(ctx, http.MethodPost, args, body)
	default:
		return value.Null, fmt.Errorf("%w: http.%s", ErrMethodNotFound, method)
	}
}

func (h *HTTPExtension) do(ctx context.Context, method string, args []value.Value, body string) (value.Value, error) {
	if len(args) == 0 {
		return value.Null, fmt.Errorf("ext:http %s requires a url argument", method)
	}
	url, ok := args[0].AsString()
	if !ok {
		return value.Null, fmt.Errorf("ext:http %s url argument must be a string", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
	if err != nil {
		return value.Null, fmt.Errorf("ext:http: build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return value.Null, fmt.Errorf("ext:http: request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Null, fmt.Errorf("ext:http: read response: %w", err)
	}

	return value.MapFrom(map[string]value.Value{
		"status": value.Number(float64(resp.StatusCode)),
		"body":   value.String(string(data)),
	}), nil
}
