package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	ID    string `json:"id"`
	Group string `json:"group"`
	Stock int    `json:"stock"`
}

var parts = NewTable(Components,
	func(p *part) string { return p.ID },
	func(p *part) string { return p.Group },
)

func TestTable_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := parts.Add(ctx, s, part{ID: "p1", Group: "ICs", Stock: 3})
	require.NoError(t, err)

	got, err := parts.Get(ctx, s, "p1")
	require.NoError(t, err)
	assert.Equal(t, part{ID: "p1", Group: "ICs", Stock: 3}, got)

	raw, err := s.Get(ctx, Components, "p1")
	require.NoError(t, err)
	assert.Equal(t, "ICs", raw.Index)
}

func TestTable_PutAndByIndex(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := parts.Put(ctx, s, part{ID: "p1", Group: "ICs", Stock: 1})
	require.NoError(t, err)
	_, err = parts.Put(ctx, s, part{ID: "p2", Group: "Motors", Stock: 1})
	require.NoError(t, err)
	_, err = parts.Put(ctx, s, part{ID: "p1", Group: "Motors", Stock: 9})
	require.NoError(t, err)

	motors, err := parts.ByIndex(ctx, s, "Motors")
	require.NoError(t, err)
	require.Len(t, motors, 2)
	assert.Equal(t, "p1", motors[0].ID)
	assert.Equal(t, 9, motors[0].Stock)

	ics, err := parts.ByIndex(ctx, s, "ICs")
	require.NoError(t, err)
	assert.Empty(t, ics)
}

func TestTable_ReplaceInTx(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := parts.Add(ctx, s, part{ID: "old"})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx *Tx) error {
		return parts.Replace(ctx, tx, []part{{ID: "a"}, {ID: "b"}})
	})
	require.NoError(t, err)

	all, err := parts.All(ctx, s)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}

func TestTable_ReplaceDuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := parts.Add(ctx, s, part{ID: "old"})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx *Tx) error {
		return parts.Replace(ctx, tx, []part{{ID: "a"}, {ID: "a"}})
	})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	all, err := parts.All(ctx, s)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "old", all[0].ID)
}

func TestTable_GetNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := parts.Get(context.Background(), s, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
