package rules

import "fmt"

// ValueKind discriminates the tagged union of runtime values.
type ValueKind int

const (
	ValString ValueKind = iota
	ValInteger
	ValBoolean
	ValIdentifier
	ValObject
	ValFunction
	ValBoundMethod
	ValList
)

// Callable is the Go representation of a rule-language function: it
// receives the already-evaluated argument vector and returns a Value or a
// runtime error.
type Callable func(args []Value) (Value, error)

// BoundMethod captures (object, callable) formed when a method member is
// referenced without being called yet.
type BoundMethod struct {
	Object *Object
	Member *Member
}

// Value is the tagged-union runtime value of the rule language. Values
// built from literals and operators carry the source position of the
// token or expression that produced them, for error reporting; values
// returned by exposed-object members and the scope's seeded globals carry
// a zero Position.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int
	Bool  bool
	Ident string
	Obj   *Object
	Fn    Callable
	Bound *BoundMethod
	List  []Value
	Pos   Position
}

func StringValue(s string, pos Position) Value  { return Value{Kind: ValString, Str: s, Pos: pos} }
func IntValue(n int, pos Position) Value        { return Value{Kind: ValInteger, Int: n, Pos: pos} }
func BoolValue(b bool, pos Position) Value      { return Value{Kind: ValBoolean, Bool: b, Pos: pos} }
func IdentValue(name string, pos Position) Value {
	return Value{Kind: ValIdentifier, Ident: name, Pos: pos}
}
func ObjectValue(o *Object, pos Position) Value { return Value{Kind: ValObject, Obj: o, Pos: pos} }
func FuncValue(fn Callable, pos Position) Value { return Value{Kind: ValFunction, Fn: fn, Pos: pos} }
func BoundValue(b *BoundMethod, pos Position) Value {
	return Value{Kind: ValBoundMethod, Bound: b, Pos: pos}
}
func ListValue(vs []Value, pos Position) Value { return Value{Kind: ValList, List: vs, Pos: pos} }

// Equal compares two Values structurally: strings and integers by
// content, booleans by value, everything else (objects, functions, bound
// methods, lists, and any pair of differing kinds) compares unequal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValString:
		return v.Str == other.Str
	case ValInteger:
		return v.Int == other.Int
	case ValBoolean:
		return v.Bool == other.Bool
	default:
		return false
	}
}

// TypeName returns a human-readable type name for error messages.
func (v Value) TypeName() string {
	switch v.Kind {
	case ValString:
		return "string"
	case ValInteger:
		return "integer"
	case ValBoolean:
		return "boolean"
	case ValIdentifier:
		return "identifier"
	case ValObject:
		return "object"
	case ValFunction:
		return "function"
	case ValBoundMethod:
		return "bound method"
	case ValList:
		return "list"
	default:
		return "unknown"
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValString:
		return v.Str
	case ValInteger:
		return fmt.Sprintf("%d", v.Int)
	case ValBoolean:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return v.TypeName()
	}
}

// AsString converts v to a Go string when it is a string-like value.
func (v Value) AsString() (string, bool) {
	if v.Kind == ValString {
		return v.Str, true
	}
	return "", false
}
