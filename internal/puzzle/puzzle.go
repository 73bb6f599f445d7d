// Package puzzle holds the puzzle model, goal derivation, findings, and the
// CSV layout shared by the puzzle database and the candidate file.
package puzzle

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Puzzle is one candidate: a start position, the full move line (opponent
// moves at even indices, solution moves at odd indices) and its goal.
type Puzzle struct {
	ID    string
	FEN   string
	Moves []string
	Goal  Goal
}

// LoadCandidates reads every usable puzzle from a candidate file, keeping
// file order. Rows that cannot be turned into a puzzle, and repeated ids, are
// logged and skipped.
func LoadCandidates(path string, log zerolog.Logger) ([]Puzzle, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidates: %w", err)
	}
	defer rc.Close()

	r := NewReader(rc)
	seen := make(map[string]struct{})
	var out []Puzzle
	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				log.Warn().Err(err).Msg("skipping malformed candidate row")
				skipped++
				continue
			}
			return nil, fmt.Errorf("read candidates: %w", err)
		}

		p, err := rec.Puzzle()
		if err != nil {
			log.Warn().Err(err).Msg("skipping candidate")
			skipped++
			continue
		}
		if _, dup := seen[p.ID]; dup {
			log.Warn().Str("puzzle", p.ID).Msg("candidate listed more than once, keeping first")
			skipped++
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}

	log.Info().Int("candidates", len(out)).Int("skipped", skipped).Str("path", path).Msg("loaded candidates")
	return out, nil
}
