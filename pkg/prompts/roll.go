package prompts

import (
	"math/rand/v2"

	"github.com/storyweave/adventure/pkg/scene"
)

// Roller draws the uniform integer in [1,100] used to resolve a skill
// check. Injected so tests can fix the draw.
type Roller interface {
	Roll() int
}

// RollerFunc adapts a function to the Roller interface.
type RollerFunc func() int

func (f RollerFunc) Roll() int { return f() }

// NewRoller returns the default pseudo-random percentile roller.
func NewRoller() Roller {
	return RollerFunc(func() int { return rand.IntN(100) + 1 })
}

// CheckResult is a resolved skill check. The roll happens exactly once,
// before the network call, so a retry of the same request never re-rolls.
type CheckResult struct {
	Roll    int  `json:"roll"`
	Success bool `json:"success"`
}

// ResolveCheck draws once from the roller and compares against the
// choice's success chance. Given a fixed draw the outcome is
// deterministic: roll <= successChance passes.
func ResolveCheck(c scene.Choice, r Roller) CheckResult {
	roll := r.Roll()
	return CheckResult{
		Roll:    roll,
		Success: roll <= c.SuccessChance,
	}
}
