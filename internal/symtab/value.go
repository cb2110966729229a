package symtab

import (
	"math"
	"strconv"
	"strings"
)

// DataType is the storage interpretation of a symbol's value.
type DataType byte

const (
	Integer DataType = 'I'
	Float   DataType = 'F'
	String  DataType = 'S'
)

func (d DataType) String() string { return string(d) }

// Value is a symbol value. Exactly one of Int, Real or Text implements it, so the
// data type and the stored payload can never disagree.
type Value interface {
	DataType() DataType
	String() string
}

type Int int64

type Real float64

type Text string

func (Int) DataType() DataType  { return Integer }
func (Real) DataType() DataType { return Float }
func (Text) DataType() DataType { return String }

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

func (v Real) String() string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}

func (v Text) String() string { return string(v) }

// AsInt returns the integer view of a numeric value. Floats truncate toward zero;
// text has no integer view.
func AsInt(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case Real:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// Zero returns the zero value of a data type.
func Zero(d DataType) Value {
	switch d {
	case Float:
		return Real(0)
	case String:
		return Text("")
	default:
		return Int(0)
	}
}
