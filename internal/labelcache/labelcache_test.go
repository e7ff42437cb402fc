package labelcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"geojson2xml/internal/labels"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	data   map[string]string
	ttl    map[string]time.Duration
	getErr error
}

func newFake() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	fc := newFake()
	c := New(fc, time.Hour)

	_, ok, err := c.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "fp", labels.LabelOrder{"Stroma", "Tumor"}))
	assert.Equal(t, time.Hour, fc.ttl[keyPrefix+"fp"])

	order, ok, err := c.Get(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, labels.LabelOrder{"Stroma", "Tumor"}, order)
}

func TestPutEmptyOrder(t *testing.T) {
	ctx := context.Background()
	c := New(newFake(), 0)
	require.NoError(t, c.Put(ctx, "fp", nil))
	order, ok, err := c.Get(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, order)
}

func TestGetErrors(t *testing.T) {
	ctx := context.Background()
	fc := newFake()
	fc.getErr = errors.New("connection refused")
	_, ok, err := New(fc, 0).Get(ctx, "fp")
	assert.Error(t, err)
	assert.False(t, ok)

	fc = newFake()
	fc.data[keyPrefix+"fp"] = "not json"
	_, _, err = New(fc, 0).Get(ctx, "fp")
	assert.ErrorContains(t, err, "decode cached labels")
}

func TestGetRejectsMalformedOrder(t *testing.T) {
	ctx := context.Background()
	for _, stored := range []string{`["Tumor","Stroma"]`, `["Tumor","Tumor"]`, `["","Tumor"]`} {
		fc := newFake()
		fc.data[keyPrefix+"fp"] = stored
		order, ok, err := New(fc, 0).Get(ctx, "fp")
		require.NoError(t, err, stored)
		assert.False(t, ok, stored)
		assert.Nil(t, order, stored)
	}
}

func TestFingerprint(t *testing.T) {
	mt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := []Entry{{Name: "a.geojson", Size: 10, ModTime: mt}, {Name: "b.geojson", Size: 20, ModTime: mt}}
	b := []Entry{a[1], a[0]}

	assert.Equal(t, Fingerprint(".geojson", a), Fingerprint(".geojson", b), "order independent")
	assert.Len(t, Fingerprint(".geojson", a), 64)

	touched := []Entry{a[0], {Name: "b.geojson", Size: 20, ModTime: mt.Add(time.Second)}}
	assert.NotEqual(t, Fingerprint(".geojson", a), Fingerprint(".geojson", touched))
	assert.NotEqual(t, Fingerprint(".geojson", a), Fingerprint(".json", a))
	assert.NotEqual(t, Fingerprint(".geojson", a), Fingerprint(".geojson", a[:1]))
}
