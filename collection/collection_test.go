package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tetrad-server/game"
	"tetrad-server/matcherrors"
)

func TestAdjustForLevel(t *testing.T) {
	base := game.Powers{Top: 6, Right: 4, Bottom: 2, Left: 3}

	assert.Equal(t, base, AdjustForLevel(base, 1))
	assert.Equal(t, base, AdjustForLevel(base, 0))
	assert.Equal(t, game.Powers{Top: 7, Right: 5, Bottom: 3, Left: 4}, AdjustForLevel(base, 2))
	assert.Equal(t, game.Powers{Top: 8, Right: 6, Bottom: 4, Left: 5}, AdjustForLevel(base, 3))

	high := game.Powers{Top: 9, Right: 10, Bottom: 8, Left: 10}
	assert.Equal(t, game.Powers{Top: 10, Right: 10, Bottom: 10, Left: 10}, AdjustForLevel(high, 4), "powers clamp at the maximum")
}

func TestDemoDeckIsDeterministic(t *testing.T) {
	d := NewDemo()
	ctx := context.Background()

	first, err := d.LoadDeck(ctx, "alice", "deck-a")
	require.NoError(t, err)
	assert.Len(t, first, demoDeckSize)

	again, err := d.LoadDeck(ctx, "alice", "deck-a")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	other, err := d.LoadDeck(ctx, "alice", "deck-b")
	require.NoError(t, err)
	assert.NotEqual(t, first, other, "instance ids are scoped to the deck reference")
}

func TestDemoDecksScopedByUser(t *testing.T) {
	d := NewDemo()
	ctx := context.Background()

	alice, err := d.LoadDeck(ctx, "alice", "deck-a")
	require.NoError(t, err)
	bob, err := d.LoadDeck(ctx, "bob", "deck-a")
	require.NoError(t, err)

	seen := make(map[string]bool, len(alice))
	for _, id := range alice {
		seen[id] = true
	}
	for _, id := range bob {
		assert.False(t, seen[id], "two users picking the same reference must not share instance %s", id)
	}

	// Both sides of the shared reference stay hydratable.
	_, err = d.Resolve(ctx, alice[0], "")
	assert.NoError(t, err)
	_, err = d.Resolve(ctx, bob[0], "")
	assert.NoError(t, err)
}

func TestDemoResolve(t *testing.T) {
	d := NewDemo()
	ctx := context.Background()

	ids, err := d.LoadDeck(ctx, "alice", "deck-a")
	require.NoError(t, err)

	card, err := d.Resolve(ctx, ids[0], "anyone")
	require.NoError(t, err)
	assert.Equal(t, "Stone Sentinel", card.Name)
	assert.Equal(t, 1, card.Level)
	assert.Equal(t, card.BasePowers, card.Powers, "level 1 keeps base powers")

	leveled, err := d.Resolve(ctx, ids[1], "")
	require.NoError(t, err)
	assert.Equal(t, 2, leveled.Level)
	assert.Equal(t, AdjustForLevel(leveled.BasePowers, 2), leveled.Powers)

	_, err = d.Resolve(ctx, "deck-z#0", "")
	assert.ErrorIs(t, err, matcherrors.ErrCardNotFound)
}

func TestDemoCatalogCarriesAbilities(t *testing.T) {
	d := NewDemo()
	ids, err := d.LoadDeck(context.Background(), "alice", "deck-a")
	require.NoError(t, err)

	var withAbility int
	for _, id := range ids {
		card, err := d.Resolve(context.Background(), id, "")
		require.NoError(t, err)
		if card.Ability != nil {
			withAbility++
			assert.NotEmpty(t, card.Ability.Trigger)
			assert.NotEmpty(t, card.Ability.Effect.Kind)
		}
	}
	assert.Greater(t, withAbility, 0, "the demo catalog must exercise the ability registry")
}
