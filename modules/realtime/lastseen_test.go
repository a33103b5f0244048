package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	module "github.com/storekit/storekit/modules/realtime"
	"github.com/storekit/storekit/pkg/kv"
)

func TestLastSeen_TouchAndGet(t *testing.T) {
	t.Parallel()

	ls := module.NewLastSeen(kv.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	_, ok, err := ls.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	before := time.Now().Add(-time.Second)
	ls.Touch(ctx, "u1")

	at, ok, err := ls.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.After(before))

	// Anonymous identities are never stamped.
	ls.Touch(ctx, "")
	_, ok, err = ls.Get(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastSeen_ExpiredRecordIsUnknown(t *testing.T) {
	t.Parallel()

	store := kv.NewMemoryStore()
	ls := module.NewLastSeen(store, time.Millisecond, nil)
	ctx := context.Background()

	ls.Touch(ctx, "u1")
	time.Sleep(5 * time.Millisecond)

	_, ok, err := ls.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}
