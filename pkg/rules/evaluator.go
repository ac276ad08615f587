package rules

import (
	"strconv"
	"strings"

	"github.com/shoresys/httpd/pkg/reqres"
)

type outcome int

const (
	outcomeContinue outcome = iota
	outcomeFinish
)

// Eval runs file's rules against req/resp in file order, stopping the
// first time a statement returns Finish. A rule applies when its pattern
// is a substring of the request URL. logFn backs the `log` global.
func Eval(file *File, req *reqres.Request, resp *reqres.Response, logFn Callable) error {
	requestObj := NewRequestObject(req)
	responseObj := NewResponseObject(resp)

	for _, rule := range file.Rules {
		if !strings.Contains(req.URL, rule.Pattern) {
			continue
		}

		scope := NewScope(requestObj, responseObj, logFn)
		out, err := evalStatements(rule.Statements, scope)
		if err != nil {
			return err
		}
		if out == outcomeFinish {
			return nil
		}
	}
	return nil
}

func evalStatements(stmts []Statement, scope *Scope) (outcome, error) {
	for _, stmt := range stmts {
		out, err := evalStatement(stmt, scope)
		if err != nil {
			return outcomeContinue, err
		}
		if out == outcomeFinish {
			return outcomeFinish, nil
		}
	}
	return outcomeContinue, nil
}

func evalStatement(stmt Statement, scope *Scope) (outcome, error) {
	switch s := stmt.(type) {
	case *RedirectStmt:
		resp := currentResponse(scope)
		resp.Status = s.Code
		resp.Headers.Set("Location", s.Location)
		return outcomeFinish, nil

	case *ReturnStmt:
		resp := currentResponse(scope)
		resp.Status = s.Code
		if s.Body != nil {
			resp.SetBody([]byte(*s.Body))
		}
		return outcomeFinish, nil

	case *IfStmt:
		cond, err := evalExpr(s.Cond, scope)
		if err != nil {
			return outcomeContinue, err
		}
		if cond.Kind != ValBoolean {
			return outcomeContinue, &RuntimeError{Pos: s.Cond.position(), Message: "if condition must be boolean", Kind: RuntimeIncorrectType}
		}
		if !cond.Bool {
			return outcomeContinue, nil
		}
		return evalStatements(s.Then, scope)

	case *ExprStmt:
		_, err := evalExpr(s.Expr, scope)
		return outcomeContinue, err

	default:
		return outcomeContinue, nil
	}
}

func currentResponse(scope *Scope) *reqres.Response {
	v, _ := scope.Get("response")
	return v.Obj.Instance.(*reqres.Response)
}

func evalExpr(expr Expr, scope *Scope) (Value, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return evalLiteral(e)

	case *IdentExpr:
		v, ok := scope.Get(e.Name)
		if !ok {
			return Value{}, &RuntimeError{Pos: e.Pos, Message: "unresolved identifier " + e.Name, Kind: RuntimeUnresolvedIdentifier}
		}
		return v, nil

	case *MemberExpr:
		return evalMember(e, scope)

	case *CallExpr:
		return evalCall(e, scope)

	case *BinaryExpr:
		return evalBinary(e, scope)

	default:
		return Value{}, &RuntimeError{Message: "unsupported expression"}
	}
}

func evalLiteral(e *LiteralExpr) (Value, error) {
	switch e.Kind {
	case TokString:
		return StringValue(e.Text, e.Pos), nil
	case TokInt:
		n, err := strconv.Atoi(e.Text)
		if err != nil {
			return Value{}, &RuntimeError{Pos: e.Pos, Message: "malformed integer literal", Kind: RuntimeIncorrectType}
		}
		return IntValue(n, e.Pos), nil
	default:
		return Value{}, &RuntimeError{Pos: e.Pos, Message: "unsupported literal"}
	}
}

// evalMember resolves `a.b`: a must be an Object; b must be a declared
// member. A field member evaluates immediately by invoking its getter; a
// method member produces a BoundMethod.
func evalMember(e *MemberExpr, scope *Scope) (Value, error) {
	target, err := evalExpr(e.Target, scope)
	if err != nil {
		return Value{}, err
	}
	if target.Kind != ValObject {
		return Value{}, &RuntimeError{Pos: e.Pos, Message: "member access on non-object", Kind: RuntimeNotAnObject}
	}

	member, ok := target.Obj.Get(e.Member)
	if !ok {
		return Value{}, &RuntimeError{Pos: e.Pos, Message: "unknown member " + e.Member, Kind: RuntimeUnknownMember}
	}

	if member.Kind == MemberField {
		return member.Eval(target.Obj.Instance, nil)
	}

	return BoundValue(&BoundMethod{Object: target.Obj, Member: member}, e.Pos), nil
}

// evalCall evaluates `target(args)`. If target is a BoundMethod, the
// object's instance is threaded through as the receiver; otherwise target
// must be a Function.
func evalCall(e *CallExpr, scope *Scope) (Value, error) {
	target, err := evalExpr(e.Target, scope)
	if err != nil {
		return Value{}, err
	}

	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := evalExpr(a, scope)
		if err != nil {
			return Value{}, err
		}
		args = append(args, v)
	}

	switch target.Kind {
	case ValBoundMethod:
		return target.Bound.Member.Eval(target.Bound.Object.Instance, args)
	case ValFunction:
		return target.Fn(args)
	default:
		return Value{}, &RuntimeError{Pos: e.Pos, Message: "target is not callable", Kind: RuntimeNotCallable}
	}
}

func evalBinary(e *BinaryExpr, scope *Scope) (Value, error) {
	switch e.Op {
	case TokEq, TokNotEq:
		left, err := evalExpr(e.Left, scope)
		if err != nil {
			return Value{}, err
		}
		right, err := evalExpr(e.Right, scope)
		if err != nil {
			return Value{}, err
		}
		eq := left.Equal(right)
		if e.Op == TokNotEq {
			eq = !eq
		}
		return BoolValue(eq, e.Pos), nil

	case TokAnd, TokOr:
		left, err := evalExpr(e.Left, scope)
		if err != nil {
			return Value{}, err
		}
		if left.Kind != ValBoolean {
			return Value{}, &RuntimeError{Pos: e.Left.position(), Message: "logical operand must be boolean", Kind: RuntimeIncorrectType}
		}
		if e.Op == TokAnd && !left.Bool {
			return BoolValue(false, e.Pos), nil
		}
		if e.Op == TokOr && left.Bool {
			return BoolValue(true, e.Pos), nil
		}
		right, err := evalExpr(e.Right, scope)
		if err != nil {
			return Value{}, err
		}
		if right.Kind != ValBoolean {
			return Value{}, &RuntimeError{Pos: e.Right.position(), Message: "logical operand must be boolean", Kind: RuntimeIncorrectType}
		}
		return BoolValue(right.Bool, e.Pos), nil

	default:
		return Value{}, &RuntimeError{Pos: e.Pos, Message: "unsupported operator"}
	}
}
