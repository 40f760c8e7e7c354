// Package types holds the data model shared across the Blue Crab engine:
// the tagged-union Value, the Entry it lives in, and the Commit history
// type. No package outside types should redefine these shapes.
package types

import "fmt"

// Kind identifies which variant a Value currently holds. The numeric values
// double as the on-disk and in-hash type tag (§4.2, §4.7 of the spec), so
// they must never be renumbered once persisted data exists.
type Kind uint16

const (
	KindNull Kind = iota
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindBool
	KindChar
	KindString
	KindSize
	KindDateTime
	KindDuration
	KindHex
	KindOct
	KindBin
	KindAny
)

// kindNames indexes directly by Kind for String().
var kindNames = [...]string{
	"Null", "I8", "I16", "I32", "I64", "U8", "U16", "U32", "U64",
	"F32", "F64", "Bool", "Char", "String", "Size", "DateTime",
	"Duration", "Hex", "Oct", "Bin", "Any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Valid reports whether k is a known variant. load() uses this to raise
// bcerr.ErrTypeMismatch on an unrecognized on-disk type tag.
func (k Kind) Valid() bool {
	return k <= KindAny
}
