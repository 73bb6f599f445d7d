package puzzle

import (
	"fmt"
	"strconv"
	"strings"
)

// GoalKind tags the variant held by a Goal.
type GoalKind uint8

const (
	GoalWin GoalKind = iota + 1
	GoalDraw
	GoalMate
)

// Goal is the objective a puzzle claims: win, draw, or mate in a number of plies.
// The zero Goal is invalid; build one with Win, Draw or MateIn.
type Goal struct {
	kind  GoalKind
	plies int
}

// Win is the goal of puzzles whose solution forces a won position.
func Win() Goal { return Goal{kind: GoalWin} }

// Draw is the goal of equality puzzles.
func Draw() Goal { return Goal{kind: GoalDraw} }

// MateIn is the goal of mate puzzles; plies counts both sides' moves.
func MateIn(plies int) Goal { return Goal{kind: GoalMate, plies: plies} }

// Kind returns the variant tag.
func (g Goal) Kind() GoalKind { return g.kind }

// MatePlies returns the mate length in plies for GoalMate goals.
func (g Goal) MatePlies() (int, bool) {
	if g.kind != GoalMate {
		return 0, false
	}
	return g.plies, true
}

// Valid reports whether g was built by one of the constructors.
func (g Goal) Valid() bool {
	switch g.kind {
	case GoalWin, GoalDraw:
		return true
	case GoalMate:
		return g.plies > 0
	}
	return false
}

func (g Goal) String() string {
	switch g.kind {
	case GoalWin:
		return "win"
	case GoalDraw:
		return "draw"
	case GoalMate:
		return fmt.Sprintf("mateIn(%d plies)", g.plies)
	}
	return "invalid"
}

// GoalFromThemes derives the goal from space-separated theme tags. Any tag
// containing "mate" makes it a mate puzzle whose length comes from a mateInN
// tag; otherwise a tag containing "equality" makes it a draw; otherwise a win.
func GoalFromThemes(themes string) (Goal, error) {
	tags := strings.Fields(themes)

	mate, equality := false, false
	for _, tag := range tags {
		if strings.Contains(tag, "mate") {
			mate = true
		}
		if strings.Contains(tag, "equality") {
			equality = true
		}
	}

	if mate {
		for _, tag := range tags {
			rest, ok := strings.CutPrefix(tag, "mateIn")
			if !ok {
				continue
			}
			n, err := strconv.Atoi(rest)
			if err != nil || n <= 0 {
				return Goal{}, fmt.Errorf("bad mate length tag %q", tag)
			}
			return MateIn(2 * n), nil
		}
		return Goal{}, fmt.Errorf("mate themes without mateInN tag: %q", themes)
	}
	if equality {
		return Draw(), nil
	}
	return Win(), nil
}
