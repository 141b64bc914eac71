package operations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskloom/internal/workflows"
)

func TestRegisterBuiltins(t *testing.T) {
	reg := workflows.NewRegistry()
	RegisterBuiltins(reg)

	for _, key := range []string{"echo", "uppercase", "concat", "http-fetch"} {
		assert.True(t, reg.Has(key), "expected %q to be registered", key)
	}
}

func TestUppercaseOp(t *testing.T) {
	result, err := uppercaseOp{}.Execute(context.Background(), map[string]interface{}{
		"greeting": "hello", "count": 3,
	})
	require.NoError(t, err)

	out := result.(map[string]interface{})
	assert.Equal(t, "HELLO", out["greeting"])
	assert.Equal(t, 3, out["count"])
}

func TestConcatOp_SortsByKey(t *testing.T) {
	result, err := concatOp{}.Execute(context.Background(), map[string]interface{}{
		"b": "world", "a": "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestHTTPFetchOp_MissingURL(t *testing.T) {
	op := httpFetchOp{client: http.DefaultClient}
	_, err := op.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestHTTPFetchOp_FetchesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello from server"))
	}))
	defer srv.Close()

	op := httpFetchOp{client: srv.Client()}
	result, err := op.Execute(context.Background(), map[string]interface{}{"url": srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "hello from server", result)
}

func TestHTTPFetchOp_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	op := httpFetchOp{client: srv.Client()}
	_, err := op.Execute(context.Background(), map[string]interface{}{"url": srv.URL})
	assert.Error(t, err)
}
