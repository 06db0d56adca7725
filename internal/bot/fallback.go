// Package bot holds the local move-selection heuristics and pacing used
// when a room plays against the computer. The suggestion service is the
// primary source of bot moves; everything here is the recovery path and
// the simulated thinking delay.
package bot

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/hyeon-dev/chessroom/internal/rules"
)

// Skill is the bot strength requested at room creation.
type Skill string

const (
	SkillEasy   Skill = "easy"
	SkillMedium Skill = "medium"
	SkillHard   Skill = "hard"
)

// ParseSkill normalizes a client-supplied skill string.
func ParseSkill(s string) Skill {
	switch Skill(s) {
	case SkillEasy, SkillMedium, SkillHard:
		return Skill(s)
	default:
		return SkillMedium
	}
}

// ErrNoLegalMoves is returned when the position offers nothing to play.
// The caller treats it as "game already decided" and performs no move.
var ErrNoLegalMoves = errors.New("no legal moves available")

// SelectFallback picks a move locally when the suggestion service failed
// or returned garbage. Selection is skill-keyed:
//
//	easy:   mostly uniform random, 30% chance of a capture or check
//	medium: prefer captures, checks and minor-piece development
//	hard:   mate > check > highest-value capture > random
//
// It never fails while at least one legal move exists.
func SelectFallback(moves []rules.MoveDescriptor, skill Skill, r *rand.Rand) (rules.MoveDescriptor, error) {
	if len(moves) == 0 {
		return rules.MoveDescriptor{}, ErrNoLegalMoves
	}

	switch skill {
	case SkillEasy:
		good := filter(moves, func(d rules.MoveDescriptor) bool { return d.Capture || d.Check })
		if len(good) > 0 && r.Float64() < 0.3 {
			return good[r.Intn(len(good))], nil
		}
		return moves[r.Intn(len(moves))], nil

	case SkillHard:
		if mates := filter(moves, func(d rules.MoveDescriptor) bool { return d.Mate }); len(mates) > 0 {
			return mates[0], nil
		}
		if checks := filter(moves, func(d rules.MoveDescriptor) bool { return d.Check }); len(checks) > 0 {
			return checks[r.Intn(len(checks))], nil
		}
		if caps := filter(moves, func(d rules.MoveDescriptor) bool { return d.Capture }); len(caps) > 0 {
			sort.SliceStable(caps, func(i, j int) bool { return caps[i].CaptureValue > caps[j].CaptureValue })
			return caps[0], nil
		}
		return moves[r.Intn(len(moves))], nil

	default: // medium
		tactical := filter(moves, func(d rules.MoveDescriptor) bool {
			return d.Capture || d.Check || d.Develops
		})
		if len(tactical) > 0 {
			return tactical[r.Intn(len(tactical))], nil
		}
		return moves[r.Intn(len(moves))], nil
	}
}

func filter(moves []rules.MoveDescriptor, keep func(rules.MoveDescriptor) bool) []rules.MoveDescriptor {
	var out []rules.MoveDescriptor
	for _, d := range moves {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
