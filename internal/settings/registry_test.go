package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
	err    error
	reads  int
}

func newFakeStore() *fakeStore { return &fakeStore{values: make(map[string]string)} }

func (f *fakeStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	f.reads++
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) SetSetting(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

func TestRateDefaultsWhenUnset(t *testing.T) {
	r := NewRegistry(newFakeStore())
	assert.Equal(t, DefaultRateBDT, r.Rate(context.Background()))
}

func TestRateReadsStoredValue(t *testing.T) {
	store := newFakeStore()
	store.values[KeyElectricityRate] = "9.5"
	r := NewRegistry(store)
	assert.Equal(t, 9.5, r.Rate(context.Background()))
}

func TestGarbledValueFallsBack(t *testing.T) {
	store := newFakeStore()
	store.values[KeyHighUsageWatts] = "not-a-number"
	r := NewRegistry(store)
	assert.Equal(t, DefaultHighUsageWatts, r.Thresholds(context.Background()).HighUsageWatts)
}

func TestStoreErrorFallsBack(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	r := NewRegistry(store)
	assert.Equal(t, DefaultRateBDT, r.Rate(context.Background()))
	assert.True(t, r.MasterEnabled(context.Background()))
}

func TestSetInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	store.values[KeyElectricityRate] = "8"
	r := NewRegistry(store)
	ctx := context.Background()

	require.Equal(t, 8.0, r.Rate(ctx))
	require.NoError(t, r.SetRate(ctx, 12))
	assert.Equal(t, 12.0, r.Rate(ctx))
}

func TestCachedReadSkipsStore(t *testing.T) {
	store := newFakeStore()
	store.values[KeyElectricityRate] = "8"
	r := NewRegistry(store)
	ctx := context.Background()

	r.Rate(ctx)
	before := store.reads
	r.Rate(ctx)
	assert.Equal(t, before, store.reads)
}

func TestMasterEnabled(t *testing.T) {
	store := newFakeStore()
	r := NewRegistry(store)
	ctx := context.Background()

	assert.True(t, r.MasterEnabled(ctx))
	require.NoError(t, r.Set(ctx, KeyMasterEnabled, "false"))
	assert.False(t, r.MasterEnabled(ctx))
}

func TestLimitsDefaults(t *testing.T) {
	r := NewRegistry(newFakeStore())
	limits := r.Limits(context.Background())
	assert.Equal(t, DefaultMaxVoltage, limits.MaxVoltage)
	assert.Equal(t, DefaultMaxCurrent, limits.MaxCurrent)
	assert.Equal(t, DefaultMaxPower, limits.MaxPower)
}
