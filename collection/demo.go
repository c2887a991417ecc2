package collection

import (
	"context"
	"fmt"
	"sync"

	"tetrad-server/game"
	"tetrad-server/matcherrors"
)

// demoDeckSize is how many instances a demo deck holds: an opening hand
// plus enough of a draw pile to fill half the board.
const demoDeckSize = 12

// demoTemplates is the built-in catalog used when no database is
// configured. Powers read clockwise from top.
var demoTemplates = []game.InGameCard{
	{Name: "Stone Sentinel", Rarity: "common", BasePowers: game.Powers{Top: 6, Right: 4, Bottom: 2, Left: 3}},
	{Name: "River Sprite", Rarity: "common", BasePowers: game.Powers{Top: 2, Right: 5, Bottom: 5, Left: 2}},
	{Name: "Ember Fox", Rarity: "common", BasePowers: game.Powers{Top: 4, Right: 3, Bottom: 4, Left: 4}, Tags: []string{"beast"}},
	{Name: "Gale Harpy", Rarity: "uncommon", BasePowers: game.Powers{Top: 5, Right: 2, Bottom: 3, Left: 6}, Tags: []string{"flying"}},
	{
		Name: "Bramble Shaman", Rarity: "uncommon",
		BasePowers: game.Powers{Top: 3, Right: 6, Bottom: 3, Left: 2},
		Ability: &game.AbilityDescriptor{
			Trigger: game.OnPlace,
			Effect:  game.EffectParams{Kind: "buff", Magnitude: 1, Scope: game.ScopeAdjacentAllies},
		},
	},
	{
		Name: "Hex Widow", Rarity: "rare",
		BasePowers: game.Powers{Top: 4, Right: 4, Bottom: 4, Left: 4},
		Ability: &game.AbilityDescriptor{
			Trigger: game.OnPlace,
			Effect:  game.EffectParams{Kind: "curse", Magnitude: 1, Duration: 2, Scope: game.ScopeAdjacentEnemies},
		},
	},
	{
		Name: "Aegis Tortoise", Rarity: "rare",
		BasePowers: game.Powers{Top: 2, Right: 2, Bottom: 7, Left: 7},
		Ability: &game.AbilityDescriptor{
			Trigger: game.OnPlace,
			Effect:  game.EffectParams{Kind: "ward", Duration: 2, Scope: game.ScopeSelf},
		},
	},
	{
		Name: "Grave Sovereign", Rarity: "epic",
		BasePowers: game.Powers{Top: 7, Right: 5, Bottom: 5, Left: 3},
		Ability: &game.AbilityDescriptor{
			Trigger: game.OnFlipped,
			Effect:  game.EffectParams{Kind: "debuff", Magnitude: 1, Scope: game.ScopeAdjacentEnemies},
		},
	},
}

// Demo is an in-memory collection for development without a database and
// for tests. Any deck reference resolves to a deterministic deck cycled
// from the built-in catalog.
type Demo struct {
	mu        sync.Mutex
	instances map[string]*game.InGameCard
}

// NewDemo creates an empty demo collection.
func NewDemo() *Demo {
	return &Demo{instances: make(map[string]*game.InGameCard)}
}

// LoadDeck materializes a deterministic demo deck for the user and
// reference and registers its instances for later hydration. Instance ids
// are scoped by user so two players picking the same reference never share
// card instances.
func (d *Demo) LoadDeck(ctx context.Context, userID, deckRef string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, demoDeckSize)
	for i := 0; i < demoDeckSize; i++ {
		id := fmt.Sprintf("%s/%s#%d", userID, deckRef, i)
		if _, ok := d.instances[id]; !ok {
			tmpl := demoTemplates[i%len(demoTemplates)]
			level := i%3 + 1
			card := tmpl // copy
			card.InstanceID = id
			card.Level = level
			card.Powers = AdjustForLevel(card.BasePowers, level)
			d.instances[id] = &card
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Resolve hydrates a previously materialized demo instance.
func (d *Demo) Resolve(ctx context.Context, cardInstanceID, ownerUserID string) (*game.InGameCard, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	card, ok := d.instances[cardInstanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", matcherrors.ErrCardNotFound, cardInstanceID)
	}
	return card, nil
}
