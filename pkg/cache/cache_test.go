package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8, time.Minute)

	var got payload
	ok, err := GetJSON(ctx, m, "search:kalki", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, m, "search:kalki", payload{Query: "kalki", Count: 3}, time.Hour))
	ok, err = GetJSON(ctx, m, "search:kalki", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Query: "kalki", Count: 3}, got)
}

func TestRedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	r := NewRedis(client, "scraper:")

	require.NoError(t, r.Set(ctx, "search:kalki", []byte(`{"query":"kalki"}`), time.Hour))
	assert.True(t, mr.Exists("scraper:search:kalki"))

	v, ok, err := r.Get(ctx, "search:kalki")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"query":"kalki"}`, string(v))

	mr.FastForward(2 * time.Hour)
	_, ok, err = r.Get(ctx, "search:kalki")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDialRedisFailsFast(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = DialRedis(ctx, addr, "", 0)
	assert.Error(t, err)
}
