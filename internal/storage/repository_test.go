package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryRegisterAndNew(t *testing.T) {
	repo := newFakeRepo()
	Register("fake-factory-test", func(ctx context.Context, cfg Config) (Repository, error) {
		assert.Equal(t, "dsn://x", cfg.DSN)
		return repo, nil
	})

	got, err := New(context.Background(), Config{Kind: "fake-factory-test", DSN: "dsn://x"})
	require.NoError(t, err)
	assert.Same(t, Repository(repo), got)

	assert.Contains(t, ListKinds(), "fake-factory-test")
}

func TestFactoryUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "no-such-kind"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-kind")
}

func TestFactoryDuplicateRegisterPanics(t *testing.T) {
	Register("fake-dup-test", func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, nil
	})
	assert.Panics(t, func() {
		Register("fake-dup-test", func(ctx context.Context, cfg Config) (Repository, error) {
			return nil, nil
		})
	})
}

func TestTransientError(t *testing.T) {
	base := errors.New("broken pipe")

	assert.Nil(t, Transient(nil))

	wrapped := Transient(base)
	assert.True(t, IsTransient(wrapped))
	assert.True(t, IsTransient(fmt.Errorf("load customers: %w", wrapped)))
	assert.ErrorIs(t, wrapped, base)

	assert.False(t, IsTransient(base))
	assert.False(t, IsTransient(nil))
}

func TestUpsertStatsAdd(t *testing.T) {
	s := UpsertStats{Inserted: 1, Updated: 2}
	s.Add(UpsertStats{Inserted: 3, Skipped: 4})
	assert.Equal(t, UpsertStats{Inserted: 4, Updated: 2, Skipped: 4}, s)
	assert.Equal(t, 10, s.Total())
}
