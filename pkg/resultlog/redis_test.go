package resultlog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/mssql-typeload/pkg/harness"
)

func newTestPublisher(t *testing.T, cfg Config) (*RedisPublisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.Address = mr.Addr()
	p := NewRedisPublisher(cfg)
	t.Cleanup(func() { p.Close() })
	return p, mr
}

func sampleResult() harness.Result {
	return harness.Result{
		Name:         "bit",
		Mode:         harness.ModeBulk,
		Table:        "random_bit",
		Expected:     100000,
		RowsSent:     100000,
		RowsAffected: 100000,
		StartedAt:    time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC),
		Duration:     1500 * time.Millisecond,
		Verified:     true,
		Digest:       "00000000000186a0deadbeefdeadbeef",
		Match:        true,
	}
}

func TestPublish_StoresStateWithTTL(t *testing.T) {
	p, mr := newTestPublisher(t, Config{TTL: 60})

	require.NoError(t, p.Publish(context.Background(), sampleResult()))

	key := "typeload:case:bit:state"
	require.True(t, mr.Exists(key))
	assert.Equal(t, 60*time.Second, mr.TTL(key))

	raw, err := mr.Get(key)
	require.NoError(t, err)

	var got CaseResult
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "bit", got.Case)
	assert.Equal(t, "bulk", got.Mode)
	assert.Equal(t, "success", got.Status)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, int64(100000), got.RowsAffected)
	assert.True(t, got.Verified)
	assert.Nil(t, got.Error)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 1, 500_000_000, time.UTC), got.FinishedAt.UTC())
}

func TestPublish_NoTTL(t *testing.T) {
	p, mr := newTestPublisher(t, Config{Prefix: "ci"})

	require.NoError(t, p.Publish(context.Background(), sampleResult()))

	assert.True(t, mr.Exists("ci:case:bit:state"))
	assert.Equal(t, time.Duration(0), mr.TTL("ci:case:bit:state"))
}

func TestPublish_SendsEvent(t *testing.T) {
	p, mr := newTestPublisher(t, Config{})
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()

	ps := sub.Subscribe(ctx, p.Channel("money"))
	defer ps.Close()
	_, err := ps.Receive(ctx)
	require.NoError(t, err)

	res := sampleResult()
	res.Name = "money"
	res.Mode = harness.ModeExec
	res.Err = errors.New("execute: transport error: connection reset")
	require.NoError(t, p.Publish(ctx, res))

	select {
	case msg := <-ps.Channel():
		var got CaseResult
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "failed", got.Status)
		require.NotNil(t, got.Error)
		assert.Contains(t, *got.Error, "connection reset")
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestPublish_RedisDown(t *testing.T) {
	p, mr := newTestPublisher(t, Config{})
	mr.Close()

	err := p.Publish(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis SET failed")
}

func TestKeys(t *testing.T) {
	p := NewRedisPublisher(Config{Address: "localhost:0"})
	defer p.Close()

	assert.Equal(t, "typeload:case:xml:state", p.StateKey("xml"))
	assert.Equal(t, "typeload:case:xml", p.Channel("xml"))
}
