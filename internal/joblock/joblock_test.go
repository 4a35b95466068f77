package joblock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/treasury/internal/errs"
)

func exerciseLocker(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()
	key := Key("TEST-" + uuid.NewString())

	release, err := l.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, errs.ErrImportInProgress)

	other, err := l.Acquire(ctx, key+"-other")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	again()
}

func TestLocal(t *testing.T) {
	exerciseLocker(t, NewLocal())
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer rdb.Close()
	exerciseLocker(t, NewRedis(rdb, time.Minute, nil))
}
