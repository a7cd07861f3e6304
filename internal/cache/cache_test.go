package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]*Cache{"nil": nil, "empty": New(nil)} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Enabled())

			var dest map[string]string
			found, err := c.GetObject(ctx, "k", &dest)
			require.NoError(t, err)
			assert.False(t, found)

			assert.NoError(t, c.SetObject(ctx, "k", map[string]string{"a": "b"}, time.Minute))
			assert.NoError(t, c.Remove(ctx, "k"))

			release, err := c.Lock(ctx, "lock:k")
			require.NoError(t, err)
			release()
		})
	}
}
