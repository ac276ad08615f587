package rules

import "fmt"

// RuntimeErrorKind categorizes evaluator faults.
type RuntimeErrorKind int

const (
	RuntimeUnresolvedIdentifier RuntimeErrorKind = iota
	RuntimeNotAnObject
	RuntimeUnknownMember
	RuntimeIncorrectType
	RuntimeTooFewArguments
	RuntimeNotCallable
)

// RuntimeError is a fault raised while evaluating a rule against a live
// request/response pair. It carries the source position of the
// expression that raised it. Any runtime error terminates evaluation for
// the current request; the partially-mutated response is still emitted.
type RuntimeError struct {
	Pos     Position
	Message string
	Kind    RuntimeErrorKind
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("rule evaluation error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}
