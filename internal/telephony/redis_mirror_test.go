package telephony

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisMirror_Put(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mirror := NewRedisMirror(client, "")
	require.NoError(t, mirror.Put(context.Background(), "BUSINESS_HOURS", "START", "09:00"))
	require.NoError(t, mirror.Put(context.Background(), "BUSINESS_HOURS", "ACTIVE", "1"))

	assert.Equal(t, "09:00", mr.HGet("astdb:BUSINESS_HOURS", "START"))
	assert.Equal(t, "1", mr.HGet("astdb:BUSINESS_HOURS", "ACTIVE"))
}

func TestRedisMirror_PutFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	err := NewRedisMirror(client, "pbx:").Put(context.Background(), "BUSINESS_HOURS", "START", "09:00")
	assert.Error(t, err)
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Put(context.Context, string, string, string) error {
	s.calls++
	return s.err
}

func TestMulti_PutReachesEveryNotifier(t *testing.T) {
	failing := &stubNotifier{err: errors.New("ami down")}
	healthy := &stubNotifier{}

	err := Multi{failing, healthy}.Put(context.Background(), "F", "K", "V")
	assert.ErrorContains(t, err, "ami down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, healthy.calls)

	assert.NoError(t, Nop{}.Put(context.Background(), "F", "K", "V"))
}
