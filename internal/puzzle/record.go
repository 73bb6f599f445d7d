package puzzle

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Header is the column layout of the puzzle database and the candidate file.
var Header = []string{"PuzzleId", "FEN", "Moves", "Rating", "RatingDeviation", "Popularity", "NbPlays", "Themes", "GameUrl"}

// minColumns covers PuzzleId through Themes; GameUrl may be missing.
const minColumns = 8

// Record is one database row.
type Record struct {
	ID              string
	FEN             string
	Moves           string // space-separated UCI tokens
	Rating          string
	RatingDeviation string
	Popularity      string
	NbPlays         string
	Themes          string // space-separated theme tags
	GameURL         string
}

// MoveList splits Moves into tokens.
func (r Record) MoveList() []string {
	return strings.Fields(r.Moves)
}

// Puzzle converts the record, deriving the goal from its themes.
func (r Record) Puzzle() (Puzzle, error) {
	goal, err := GoalFromThemes(r.Themes)
	if err != nil {
		return Puzzle{}, fmt.Errorf("puzzle %s: %w", r.ID, err)
	}
	moves := r.MoveList()
	if len(moves) == 0 {
		return Puzzle{}, fmt.Errorf("puzzle %s: no moves", r.ID)
	}
	return Puzzle{ID: r.ID, FEN: r.FEN, Moves: moves, Goal: goal}, nil
}

func (r Record) fields() []string {
	return []string{r.ID, r.FEN, r.Moves, r.Rating, r.RatingDeviation, r.Popularity, r.NbPlays, r.Themes, r.GameURL}
}

// RowError describes a row that could not be read as a Record. It is not
// fatal: the Reader can continue with the next row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Reader reads Records from a CSV stream. A header row is optional and is
// recognised by a PuzzleId column in the first line.
type Reader struct {
	csv       *csv.Reader
	line      int
	firstRead bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Read returns the next record. It returns io.EOF at the end of the stream
// and a *RowError for a malformed row.
func (r *Reader) Read() (Record, error) {
	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			return Record{}, io.EOF
		}
		r.line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return Record{}, &RowError{Line: r.line, Err: err}
			}
			return Record{}, err
		}

		if !r.firstRead {
			r.firstRead = true
			if isHeader(row) {
				continue
			}
		}

		if len(row) < minColumns {
			return Record{}, &RowError{Line: r.line, Err: fmt.Errorf("expected at least %d columns, got %d", minColumns, len(row))}
		}
		rec := Record{
			ID:              row[0],
			FEN:             row[1],
			Moves:           row[2],
			Rating:          row[3],
			RatingDeviation: row[4],
			Popularity:      row[5],
			NbPlays:         row[6],
			Themes:          row[7],
		}
		if len(row) > minColumns {
			rec.GameURL = row[8]
		}
		return rec, nil
	}
}

func isHeader(row []string) bool {
	for _, col := range row {
		if strings.TrimSpace(col) == Header[0] {
			return true
		}
	}
	return false
}

// Writer writes Records in the candidate layout, header first.
type Writer struct {
	csv           *csv.Writer
	headerWritten bool
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	return w.csv.Write(rec.fields())
}

// WriteHeader writes the header row if it has not been written yet.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	w.headerWritten = true
	return w.csv.Write(Header)
}

// Flush flushes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// Open opens a database file for reading, transparently decompressing .zst
// and .gz files. Closing the returned ReadCloser closes the file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return &stackedCloser{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }, f.Close}}, nil
	case strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return &stackedCloser{Reader: gr, closers: []func() error{gr.Close, f.Close}}, nil
	}
	return f, nil
}

type stackedCloser struct {
	io.Reader
	closers []func() error
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
