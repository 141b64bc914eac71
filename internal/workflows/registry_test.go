package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOp struct{}

func (fakeOp) Execute(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
	return "ok", nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register("echo", func() Operation { return fakeOp{} })

	assert.True(t, reg.Has("echo"))
	assert.False(t, reg.Has("unknown"))

	op, err := reg.Get("echo")
	require.NoError(t, err)

	result, err := op.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRegistry_GetUnknownKey(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrOperationNotFound)
}
