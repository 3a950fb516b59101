package service

import (
	"fmt"
	"math"

	"leveler/models"
)

// LevelingEngine implements the XP state machine. It is pure: it never touches
// the store, so callers persist the returned progress themselves.
type LevelingEngine struct {
	multiplier int64
}

// NewLevelingEngine creates an engine where reaching level+1 costs level*multiplier XP
func NewLevelingEngine(multiplier int64) (*LevelingEngine, error) {
	if multiplier <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMultiplier, multiplier)
	}
	return &LevelingEngine{multiplier: multiplier}, nil
}

// Threshold returns the XP needed to advance past level
func (e *LevelingEngine) Threshold(level int64) int64 {
	return level * e.multiplier
}

// Grant adds amount XP and carries any overflow into as many levels as it covers.
// The returned progress always satisfies xp < Threshold(level).
func (e *LevelingEngine) Grant(p models.UserProgress, amount int64) (models.UserProgress, bool, error) {
	if amount < 0 {
		return p, false, ErrNegativeAmount
	}

	if p.Level < models.DefaultLevel {
		p.Level = models.DefaultLevel
	}
	if p.XP > math.MaxInt64-amount {
		return p, false, ErrXPOverflow
	}
	startLevel := p.Level

	p.XP += amount
	for p.XP >= e.Threshold(p.Level) {
		p.XP -= e.Threshold(p.Level)
		p.Level++
	}

	return p, p.Level > startLevel, nil
}

// Reduce removes up to amount XP from the current level; it never lowers the level
func (e *LevelingEngine) Reduce(p models.UserProgress, amount int64) (models.UserProgress, error) {
	if amount < 0 {
		return p, ErrNegativeAmount
	}

	p.XP -= amount
	if p.XP < 0 {
		p.XP = 0
	}
	return p, nil
}
