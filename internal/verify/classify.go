package verify

import (
	"fmt"

	"github.com/freeeve/puzzlecheck/internal/oracle"
	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

// Issue is one condition found at a verification point.
type Issue struct {
	Kind   puzzle.ErrorKind
	Move   string // the expected move or the alternative; empty for the position itself
	Detail string
}

// Classify checks one tablebase answer against the goal. expected is the
// solution move played from the position and remaining is the number of
// plies left until mate, used only for mate goals. Reply categories are read
// from the replying side, so a winning move shows up as a Loss.
func Classify(goal puzzle.Goal, expected string, remaining int, resp *oracle.Response) []Issue {
	switch goal.Kind() {
	case puzzle.GoalWin:
		return classifyOutcome(expected, resp, "won",
			func(c oracle.Category) bool { return c == oracle.Win },
			func(c oracle.Category) bool { return c == oracle.Loss })
	case puzzle.GoalDraw:
		return classifyOutcome(expected, resp, "drawn",
			oracle.Category.IsDraw,
			oracle.Category.IsDraw)
	case puzzle.GoalMate:
		return classifyMate(expected, remaining, resp)
	}
	return nil
}

// classifyOutcome handles the win and draw goals, which differ only in the
// predicates applied to the root and to each reply.
func classifyOutcome(expected string, resp *oracle.Response, verb string, rootOK, replyOK func(oracle.Category) bool) []Issue {
	var issues []Issue
	if !rootOK(resp.Category) {
		issues = append(issues, Issue{
			Kind:   puzzle.Wrong,
			Detail: fmt.Sprintf("position is not %s for the side to move: %s", verb, resp.Category),
		})
	}
	for _, r := range resp.Replies {
		if r.UCI == expected {
			if !replyOK(r.Category) {
				issues = append(issues, Issue{
					Kind:   puzzle.Wrong,
					Move:   r.UCI,
					Detail: fmt.Sprintf("%s does not keep the position %s, opponent is %s", display(r), verb, r.Category),
				})
			}
			continue
		}
		if replyOK(r.Category) {
			issues = append(issues, Issue{
				Kind:   puzzle.Multiple,
				Move:   r.UCI,
				Detail: fmt.Sprintf("%s also keeps the position %s", display(r), verb),
			})
		}
	}
	return issues
}

func classifyMate(expected string, remaining int, resp *oracle.Response) []Issue {
	var issues []Issue
	if resp.Category != oracle.Win {
		issues = append(issues, Issue{
			Kind:   puzzle.Wrong,
			Detail: fmt.Sprintf("position is not won for the side to move: %s", resp.Category),
		})
	}
	if resp.DTM != nil && *resp.DTM != remaining {
		issues = append(issues, Issue{
			Kind:   puzzle.Wrong,
			Detail: fmt.Sprintf("mate is %d plies away, puzzle claims %d", *resp.DTM, remaining),
		})
	}

	// Seen from the defender, an equally fast mate leaves it remaining-1
	// plies from being mated.
	want := -(remaining - 1)
	for _, r := range resp.Replies {
		if r.UCI == expected {
			if !r.Checkmate && r.Category != oracle.Loss {
				issues = append(issues, Issue{
					Kind:   puzzle.Wrong,
					Move:   r.UCI,
					Detail: fmt.Sprintf("%s does not keep a forced mate, opponent is %s", display(r), r.Category),
				})
			}
			continue
		}
		// Alternatives without a known DTM are never compared.
		if r.Checkmate || r.DTM == nil {
			continue
		}
		if r.Category == oracle.Loss && *r.DTM == want {
			issues = append(issues, Issue{
				Kind:   puzzle.Multiple,
				Move:   r.UCI,
				Detail: fmt.Sprintf("%s also mates in %d plies", display(r), remaining),
			})
		}
	}
	return issues
}

func display(r oracle.Reply) string {
	if r.SAN == "" {
		return r.UCI
	}
	return fmt.Sprintf("%s(%s)", r.UCI, r.SAN)
}
