package crud

import (
	"fmt"
	"strings"
)

// Op identifies one of the operations a store can expose.
type Op int

// Supported operations.
const (
	OpCreate Op = iota
	OpReadAll
	OpReadOne
	OpUpdate
	OpDelete

	opCount
)

var opNames = [opCount]string{
	OpCreate:  "create",
	OpReadAll: "read-all",
	OpReadOne: "read-one",
	OpUpdate:  "update",
	OpDelete:  "delete",
}

// String returns the canonical kebab-case name of the operation.
func (o Op) String() string {
	if o < 0 || o >= opCount {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return opNames[o]
}

// AllOps returns every operation in declaration order.
func AllOps() []Op {
	return []Op{OpCreate, OpReadAll, OpReadOne, OpUpdate, OpDelete}
}

// ParseOp parses an operation name. Both kebab-case ("read-all") and
// camelCase ("readAll") spellings are accepted.
func ParseOp(s string) (Op, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	switch key {
	case "create":
		return OpCreate, nil
	case "read-all", "readall":
		return OpReadAll, nil
	case "read-one", "readone":
		return OpReadOne, nil
	case "update":
		return OpUpdate, nil
	case "delete":
		return OpDelete, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, s)
}
