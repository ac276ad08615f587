package rules

import "github.com/shoresys/httpd/pkg/reqres"

// NewRequestObject builds the Object exposed to the rule language as
// `request`, wrapping the live *reqres.Request for the current connection.
// Field/method getters close over the instance rather than walking a
// property bag at runtime.
func NewRequestObject(req *reqres.Request) *Object {
	return &Object{
		Instance: req,
		Members: map[string]*Member{
			"method": {
				Kind: MemberField,
				Call: func(instance any, _ []Value) (Value, error) {
					r := instance.(*reqres.Request)
					return StringValue(string(r.Method), Position{}), nil
				},
			},
			"url": {
				Kind: MemberField,
				Call: func(instance any, _ []Value) (Value, error) {
					r := instance.(*reqres.Request)
					return StringValue(r.URL, Position{}), nil
				},
			},
			"header": {
				Kind: MemberMethod,
				Call: func(instance any, args []Value) (Value, error) {
					if len(args) < 1 {
						return Value{}, &RuntimeError{Message: "header requires 1 argument", Kind: RuntimeTooFewArguments}
					}
					name, ok := args[0].AsString()
					if !ok {
						return Value{}, &RuntimeError{Pos: args[0].Pos, Message: "header name must be a string", Kind: RuntimeIncorrectType}
					}
					r := instance.(*reqres.Request)
					value, _ := r.Headers.Get(name)
					return StringValue(value, Position{}), nil
				},
			},
		},
	}
}

// NewResponseObject builds the Object exposed to the rule language as
// `response`, wrapping the live *reqres.Response being assembled.
func NewResponseObject(resp *reqres.Response) *Object {
	return &Object{
		Instance: resp,
		Members: map[string]*Member{
			"set_header": {
				Kind: MemberMethod,
				Call: func(instance any, args []Value) (Value, error) {
					if len(args) < 2 {
						return Value{}, &RuntimeError{Message: "set_header requires 2 arguments", Kind: RuntimeTooFewArguments}
					}
					name, ok := args[0].AsString()
					if !ok {
						return Value{}, &RuntimeError{Pos: args[0].Pos, Message: "header name must be a string", Kind: RuntimeIncorrectType}
					}
					value, ok := args[1].AsString()
					if !ok {
						return Value{}, &RuntimeError{Pos: args[1].Pos, Message: "header value must be a string", Kind: RuntimeIncorrectType}
					}
					r := instance.(*reqres.Response)
					r.Headers.Set(name, value)
					return BoolValue(true, Position{}), nil
				},
			},
			"set_status": {
				Kind: MemberMethod,
				Call: func(instance any, args []Value) (Value, error) {
					if len(args) < 1 {
						return Value{}, &RuntimeError{Message: "set_status requires 1 argument", Kind: RuntimeTooFewArguments}
					}
					if args[0].Kind != ValInteger {
						return Value{}, &RuntimeError{Pos: args[0].Pos, Message: "status must be an integer", Kind: RuntimeIncorrectType}
					}
					r := instance.(*reqres.Response)
					r.Status = args[0].Int
					return BoolValue(true, Position{}), nil
				},
			},
		},
	}
}
