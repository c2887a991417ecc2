package game

// MinPower and MaxPower bound every directional power value after level
// adjustment and ability effects.
const (
	MinPower = 1
	MaxPower = 10
)

// Powers holds a card's four directional power values.
type Powers struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Side returns the power facing direction d.
func (p Powers) Side(d Direction) int {
	switch d {
	case DirUp:
		return p.Top
	case DirRight:
		return p.Right
	case DirDown:
		return p.Bottom
	default:
		return p.Left
	}
}

// Sum returns the total of all four sides (used by the AI heuristic).
func (p Powers) Sum() int { return p.Top + p.Right + p.Bottom + p.Left }

// Shift returns a copy with delta added to every side, clamped to
// [MinPower, MaxPower].
func (p Powers) Shift(delta int) Powers {
	return Powers{
		Top:    ClampPower(p.Top + delta),
		Right:  ClampPower(p.Right + delta),
		Bottom: ClampPower(p.Bottom + delta),
		Left:   ClampPower(p.Left + delta),
	}
}

// ClampPower bounds v to [MinPower, MaxPower].
func ClampPower(v int) int {
	if v < MinPower {
		return MinPower
	}
	if v > MaxPower {
		return MaxPower
	}
	return v
}

// Opposite returns the direction facing d (the side a neighbor defends
// with: a card placed below attacks up with Top against the neighbor's
// Bottom).
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirRight:
		return DirLeft
	case DirDown:
		return DirUp
	default:
		return DirRight
	}
}

// Moment is a named point in the turn lifecycle at which registered ability
// effects may run. Moments are open string tags: cards may declare
// situational moments unknown to the engine, and the registry dispatches on
// the tag without any engine change.
type Moment string

const (
	OnPlace     Moment = "on_place"
	OnFlip      Moment = "on_flip"
	OnFlipped   Moment = "on_flipped"
	OnTurnStart Moment = "on_turn_start"
	OnTurnEnd   Moment = "on_turn_end"
)

// TargetScope names the set of cells an effect applies to, relative to the
// cell whose card carries the ability.
type TargetScope string

const (
	ScopeSelf            TargetScope = "self"
	ScopeAdjacentAllies  TargetScope = "adjacent_allies"
	ScopeAdjacentEnemies TargetScope = "adjacent_enemies"
	ScopeAllAllies       TargetScope = "all_allies"
	ScopeAllEnemies      TargetScope = "all_enemies"
)

// EffectParams is the structured payload parameterizing an ability. Adding
// a new ability is data plus one handler registration, never an engine
// change.
type EffectParams struct {
	// Kind selects the registered handler (e.g. "buff", "curse", "claim").
	Kind string `json:"kind"`
	// Magnitude is the power delta (buff/debuff/curse drain); unused by
	// kinds without one.
	Magnitude int `json:"magnitude,omitempty"`
	// Duration is the tile-status countdown in turns; 0 means permanent.
	Duration int `json:"duration,omitempty"`
	// Scope selects the target cells.
	Scope TargetScope `json:"scope,omitempty"`
	// RequiresTag gates the effect on the triggering card carrying a tag.
	RequiresTag string `json:"requiresTag,omitempty"`
	// MinTurn gates the effect on the turn counter.
	MinTurn int `json:"minTurn,omitempty"`
}

// AbilityDescriptor binds a trigger moment to a parameterized effect.
type AbilityDescriptor struct {
	Trigger Moment       `json:"trigger"`
	Effect  EffectParams `json:"effect"`
}

// InGameCard is the immutable, match-lifetime, battle-ready view of a card
// instance: its level-adjusted attributes as resolved by the hydrator. It
// is owned by the game state's hydration cache and only ever looked up,
// never mutated.
type InGameCard struct {
	InstanceID string             `json:"instanceId"`
	Name       string             `json:"name"`
	Rarity     string             `json:"rarity"`
	Level      int                `json:"level"`
	BasePowers Powers             `json:"basePowers"`
	Powers     Powers             `json:"powers"`
	Tags       []string           `json:"tags,omitempty"`
	Ability    *AbilityDescriptor `json:"ability,omitempty"`
}

// HasTag reports whether the card carries the given tag.
func (c *InGameCard) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
