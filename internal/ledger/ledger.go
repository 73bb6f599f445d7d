// Package ledger keeps the append-only record of checked puzzles.
//
// Each line is "<id> <kind>*": an id followed by zero or more error kinds
// (Wrong, Multiple). A line is written only once a puzzle is fully verified,
// so an interrupted run loses at most the puzzle in flight.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/freeeve/puzzlecheck/internal/metrics"
	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

// Anomaly types.
const (
	Duplicate = "duplicate"
	Malformed = "malformed"
	Stale     = "stale"
)

// IntegrityError is a non-fatal problem found while scanning the ledger.
type IntegrityError struct {
	Line int
	ID   string
	Type string // Duplicate or Malformed
	Err  error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger line %d (%s): %s: %v", e.Line, e.ID, e.Type, e.Err)
	}
	return fmt.Sprintf("ledger line %d (%s): %s", e.Line, e.ID, e.Type)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Entry is one checked puzzle.
type Entry struct {
	ID      string
	Finding puzzle.Finding
	Unknown []string // kind tokens this version does not recognise
}

// Incorrect reports whether the entry records any finding.
func (e Entry) Incorrect() bool {
	return !e.Finding.Empty() || len(e.Unknown) > 0
}

// Snapshot is the parsed content of the ledger at one point in time.
type Snapshot struct {
	Entries   []Entry // first occurrence of each id, in file order
	Anomalies []*IntegrityError
	index     map[string]int
}

// Has reports whether id has been checked.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Get returns the entry for id.
func (s *Snapshot) Get(id string) (Entry, bool) {
	i, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	return s.Entries[i], true
}

// Checked returns the set of checked ids.
func (s *Snapshot) Checked() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		out[e.ID] = struct{}{}
	}
	return out
}

// Incorrect returns the ids with a non-empty finding, in file order.
func (s *Snapshot) Incorrect() []string {
	var out []string
	for _, e := range s.Entries {
		if e.Incorrect() {
			out = append(out, e.ID)
		}
	}
	return out
}

// Parse reads a ledger stream. Blank lines are ignored.
func Parse(r io.Reader) (*Snapshot, error) {
	s := &Snapshot{index: make(map[string]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		e := Entry{ID: fields[0]}
		for _, tok := range fields[1:] {
			k, err := puzzle.ParseErrorKind(tok)
			if err != nil {
				e.Unknown = append(e.Unknown, tok)
				continue
			}
			e.Finding = e.Finding.Add(k)
		}
		if len(e.Unknown) > 0 {
			s.Anomalies = append(s.Anomalies, &IntegrityError{
				Line: line, ID: e.ID, Type: Malformed,
				Err: fmt.Errorf("unknown kinds %v", e.Unknown),
			})
		}
		if _, dup := s.index[e.ID]; dup {
			s.Anomalies = append(s.Anomalies, &IntegrityError{Line: line, ID: e.ID, Type: Duplicate})
			continue
		}
		s.index[e.ID] = len(s.Entries)
		s.Entries = append(s.Entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// FormatLine renders one ledger line, newline included.
func FormatLine(id string, f puzzle.Finding) string {
	var b strings.Builder
	b.WriteString(id)
	for _, k := range f.Kinds() {
		b.WriteByte(' ')
		b.WriteString(k.String())
	}
	b.WriteByte('\n')
	return b.String()
}

// Ledger is the on-disk ledger. A Ledger is the only writer of its file
// while a run holds Lock.
type Ledger struct {
	path string
	log  zerolog.Logger

	mu sync.Mutex
	f  *os.File // append handle, opened on first Append
}

// Open returns a Ledger for path. The file need not exist yet.
func Open(path string, log zerolog.Logger) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	return &Ledger{
		path: path,
		log:  log.With().Str("component", "ledger").Logger(),
	}, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Scan parses the ledger, logging and counting every anomaly found. A missing
// file is an empty ledger.
func (l *Ledger) Scan() (*Snapshot, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		l.log.Info().Str("path", l.path).Msg("ledger not found, 0 puzzles checked")
		return &Snapshot{index: make(map[string]int)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	for _, a := range s.Anomalies {
		metrics.LedgerAnomalies.WithLabelValues(a.Type).Inc()
		l.log.Error().Int("line", a.Line).Str("puzzle", a.ID).Str("type", a.Type).Err(a.Err).Msg("ledger integrity anomaly")
	}
	return s, nil
}

// Checked returns the ids recorded in the ledger.
func (l *Ledger) Checked() (map[string]struct{}, error) {
	s, err := l.Scan()
	if err != nil {
		return nil, err
	}
	return s.Checked(), nil
}

// Incorrect returns the ids recorded with a non-empty finding.
func (l *Ledger) Incorrect() ([]string, error) {
	s, err := l.Scan()
	if err != nil {
		return nil, err
	}
	return s.Incorrect(), nil
}

// Diff is the split of a candidate set against the ledger.
type Diff struct {
	Unchecked []puzzle.Puzzle // candidate order
	Stale     []string        // checked ids that are no longer candidates, ledger order
	Checked   int
}

// Diff returns the candidates not yet checked and the checked ids that are no
// longer candidates. Stale ids are logged as a warning.
func (l *Ledger) Diff(candidates []puzzle.Puzzle) (Diff, error) {
	s, err := l.Scan()
	if err != nil {
		return Diff{}, err
	}

	var d Diff
	ids := make(map[string]struct{}, len(candidates))
	for _, p := range candidates {
		ids[p.ID] = struct{}{}
		if !s.Has(p.ID) {
			d.Unchecked = append(d.Unchecked, p)
		}
	}
	for _, e := range s.Entries {
		if _, ok := ids[e.ID]; !ok {
			d.Stale = append(d.Stale, e.ID)
		}
	}
	d.Checked = len(s.Entries)

	if len(d.Stale) > 0 {
		metrics.LedgerAnomalies.WithLabelValues(Stale).Add(float64(len(d.Stale)))
		l.log.Warn().
			Int("stale", len(d.Stale)).
			Strs("ids", d.Stale).
			Msg("puzzles were checked but are no longer candidates")
	}
	return d, nil
}

// Append records id with its finding as a single write on an O_APPEND
// handle, then syncs. Appending an id twice is caught by the next Scan.
func (l *Ledger) Append(id string, f puzzle.Finding) error {
	if id == "" || strings.ContainsAny(id, " \t\r\n") {
		return fmt.Errorf("invalid puzzle id %q", id)
	}
	line := FormatLine(id, f)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		fh, err := os.OpenFile(l.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return fmt.Errorf("open ledger for append: %w", err)
		}
		if err := l.terminateTail(fh); err != nil {
			fh.Close()
			return err
		}
		l.f = fh
	}
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("append %s: %w", id, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

// terminateTail ends a torn last line left by a crash so the next record
// starts on its own line.
func (l *Ledger) terminateTail(fh *os.File) error {
	st, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}
	if st.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := fh.ReadAt(last, st.Size()-1); err != nil {
		return fmt.Errorf("read ledger tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}

	metrics.LedgerAnomalies.WithLabelValues(Malformed).Inc()
	l.log.Warn().Str("path", l.path).Msg("ledger ends with a torn line, terminating it")
	if _, err := fh.WriteString("\n"); err != nil {
		return fmt.Errorf("terminate torn line: %w", err)
	}
	return fh.Sync()
}

// Prune rewrites the ledger without the lines for ids and returns how many
// lines were dropped. The new content goes to a temporary file in the same
// directory which is synced and renamed over the ledger, so a crash leaves
// either the old or the new file, never a mix.
func (l *Ledger) Prune(ids []string) (int, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.closeLocked(); err != nil {
		return 0, err
	}

	src, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open ledger: %w", err)
	}
	defer src.Close()

	removed := 0
	err = writeFileAtomic(l.path, func(w io.Writer) error {
		sc := bufio.NewScanner(src)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		bw := bufio.NewWriter(w)
		for sc.Scan() {
			text := sc.Text()
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}
			if _, ok := drop[fields[0]]; ok {
				removed++
				continue
			}
			if _, err := bw.WriteString(text + "\n"); err != nil {
				return err
			}
		}
		if err := sc.Err(); err != nil {
			return err
		}
		return bw.Flush()
	})
	if err != nil {
		return 0, fmt.Errorf("prune ledger: %w", err)
	}

	l.log.Info().Int("removed", removed).Str("path", l.path).Msg("ledger pruned")
	return removed, nil
}

// Export writes the incorrect ids, one per line, to path.
func (l *Ledger) Export(path string) (int, error) {
	ids, err := l.Incorrect()
	if err != nil {
		return 0, err
	}
	err = writeFileAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, id := range ids {
			if _, err := bw.WriteString(id + "\n"); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return 0, fmt.Errorf("export incorrect puzzles: %w", err)
	}
	return len(ids), nil
}

// Close releases the append handle.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *Ledger) closeLocked() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
