package puzzle

import (
	"fmt"
	"strings"
)

// ErrorKind is one way a puzzle's stated solution can be faulty.
type ErrorKind uint8

const (
	// Wrong: the stated move fails to achieve or preserve the objective.
	Wrong ErrorKind = 1 << iota
	// Multiple: another move achieves the same objective.
	Multiple
)

// errorKinds lists every kind in ledger order.
var errorKinds = []ErrorKind{Wrong, Multiple}

func (k ErrorKind) String() string {
	switch k {
	case Wrong:
		return "Wrong"
	case Multiple:
		return "Multiple"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// ParseErrorKind parses the ledger token of an ErrorKind.
func ParseErrorKind(s string) (ErrorKind, error) {
	for _, k := range errorKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown error kind %q", s)
}

// Finding is the set of error kinds found for one puzzle. The zero value is
// the empty set, meaning the puzzle is confirmed correct.
type Finding uint8

// NewFinding returns the set holding kinds.
func NewFinding(kinds ...ErrorKind) Finding {
	var f Finding
	for _, k := range kinds {
		f = f.Add(k)
	}
	return f
}

// Add returns f with k included.
func (f Finding) Add(k ErrorKind) Finding { return f | Finding(k) }

// Union returns the kinds present in either set.
func (f Finding) Union(o Finding) Finding { return f | o }

// Has reports whether k is in the set.
func (f Finding) Has(k ErrorKind) bool { return f&Finding(k) != 0 }

// Empty reports whether no error was found.
func (f Finding) Empty() bool { return f == 0 }

// Kinds returns the kinds in ledger order.
func (f Finding) Kinds() []ErrorKind {
	var kinds []ErrorKind
	for _, k := range errorKinds {
		if f.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (f Finding) String() string {
	kinds := f.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return "{" + strings.Join(names, " ") + "}"
}
