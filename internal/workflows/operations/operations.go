// Package operations holds the built-in step implementations registered
// under the Step Registry (taskloom/internal/workflows.Registry). A template
// step whose pipeline_key names none of these falls through to the
// prompt-based executor instead.
package operations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"taskloom/internal/workflows"
)

// RegisterBuiltins adds every built-in operation to reg.
func RegisterBuiltins(reg *workflows.Registry) {
	reg.Register("echo", func() workflows.Operation { return echoOp{} })
	reg.Register("uppercase", func() workflows.Operation { return uppercaseOp{} })
	reg.Register("concat", func() workflows.Operation { return concatOp{} })
	reg.Register("http-fetch", func() workflows.Operation { return httpFetchOp{client: &http.Client{Timeout: 15 * time.Second}} })
}

// echoOp returns its inputs unchanged, useful for wiring tests and templates
// that just need a pass-through dependency node.
type echoOp struct{}

func (echoOp) Execute(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
	return inputs, nil
}

// uppercaseOp upper-cases every string-valued input.
type uppercaseOp struct{}

func (uppercaseOp) Execute(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
	out := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		if s, ok := v.(string); ok {
			out[k] = strings.ToUpper(s)
			continue
		}
		out[k] = v
	}
	return out, nil
}

// concatOp joins every string-valued input (sorted by key, for determinism)
// into a single string, separated by a single space.
type concatOp struct{}

func (concatOp) Execute(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if s, ok := inputs[k].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

// httpFetchOp performs a GET against inputs["url"] and returns the response
// body as a string, demonstrating a built-in step that talks to an external
// HTTP endpoint the way the webhook notifier does.
type httpFetchOp struct {
	client *http.Client
}

func (o httpFetchOp) Execute(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
	url, _ := inputs["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http-fetch: missing required input %q", "url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http-fetch: %s returned status %d", url, resp.StatusCode)
	}

	return string(body), nil
}
