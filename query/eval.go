/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"strings"
	"time"

	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Resolver returns the value of a property. A nil value stands for a
// property the object does not carry.
type Resolver func(name string) (any, bool)

// Evaluate evaluates a checked filter expression against a resolver.
// A nil expression matches everything.
func Evaluate(e *expr.Expr, resolve Resolver) (bool, error) {
	if e == nil {
		return true, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return evalCall(kind.CallExpr, resolve)
	case *expr.Expr_IdentExpr:
		value, ok := resolve(kind.IdentExpr.Name)
		if !ok {
			return false, fmt.Errorf("unknown field: %s", kind.IdentExpr.Name)
		}
		b, isBool := value.(bool)
		if !isBool && value != nil {
			return false, fmt.Errorf("field %s is not a bool", kind.IdentExpr.Name)
		}
		return b, nil
	case *expr.Expr_ConstExpr:
		if b, ok := kind.ConstExpr.ConstantKind.(*expr.Constant_BoolValue); ok {
			return b.BoolValue, nil
		}
		return false, fmt.Errorf("constant %v is not a condition", kind.ConstExpr)
	default:
		return false, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func evalCall(call *expr.Expr_Call, resolve Resolver) (bool, error) {
	switch call.Function {
	case "_&&_", "AND", "FUZZY":
		return evalAnd(call.Args, resolve)
	case "_||_", "OR":
		return evalOr(call.Args, resolve)
	case "!_", "NOT", "-":
		return evalNot(call.Args, resolve)
	case "_==_", "=":
		return evalCompare(call.Args, resolve, "=")
	case "_!=_", "!=":
		return evalCompare(call.Args, resolve, "!=")
	case "_<_", "<":
		return evalCompare(call.Args, resolve, "<")
	case "_<=_", "<=":
		return evalCompare(call.Args, resolve, "<=")
	case "_>_", ">":
		return evalCompare(call.Args, resolve, ">")
	case "_>=_", ">=":
		return evalCompare(call.Args, resolve, ">=")
	case ":":
		return evalHas(call.Args, resolve)
	default:
		return false, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func evalAnd(args []*expr.Expr, resolve Resolver) (bool, error) {
	if len(args) < 2 {
		return false, fmt.Errorf("AND requires 2 arguments")
	}
	for _, arg := range args {
		ok, err := Evaluate(arg, resolve)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evalOr(args []*expr.Expr, resolve Resolver) (bool, error) {
	if len(args) < 2 {
		return false, fmt.Errorf("OR requires 2 arguments")
	}
	for _, arg := range args {
		ok, err := Evaluate(arg, resolve)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func evalNot(args []*expr.Expr, resolve Resolver) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("NOT requires 1 argument")
	}
	ok, err := Evaluate(args[0], resolve)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func operands(args []*expr.Expr, resolve Resolver) (string, any, any, error) {
	if len(args) != 2 {
		return "", nil, nil, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return "", nil, nil, err
	}

	left, ok := resolve(field)
	if !ok {
		return "", nil, nil, fmt.Errorf("unknown field: %s", field)
	}

	right, err := extractValue(args[1])
	if err != nil {
		return "", nil, nil, err
	}
	return field, left, right, nil
}

func evalCompare(args []*expr.Expr, resolve Resolver, op string) (bool, error) {
	_, left, right, err := operands(args, resolve)
	if err != nil {
		return false, err
	}

	cmp, err := compareValues(left, right)
	if err != nil {
		return false, err
	}

	switch op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", op)
	}
}

// evalHas matches strings containing the value and any other property equal
// to it. "field:*" matches any present property.
func evalHas(args []*expr.Expr, resolve Resolver) (bool, error) {
	_, left, right, err := operands(args, resolve)
	if err != nil {
		return false, err
	}

	if s, ok := right.(string); ok && s == "*" {
		return left != nil, nil
	}
	if l, ok := left.(string); ok {
		r, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("type mismatch: string vs %T", right)
		}
		return strings.Contains(l, r), nil
	}
	cmp, err := compareValues(left, right)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	case *expr.Expr_SelectExpr:
		operand, err := extractFieldName(kind.SelectExpr.Operand)
		if err != nil {
			return "", err
		}
		return operand + "." + kind.SelectExpr.Field, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		switch kind.IdentExpr.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		// unquoted text values
		return kind.IdentExpr.Name, nil
	case *expr.Expr_CallExpr:
		if kind.CallExpr.Function == "timestamp" && len(kind.CallExpr.Args) == 1 {
			return extractTimestampValue(kind.CallExpr.Args[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	case *expr.Constant_NullValue:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func extractTimestampValue(e *expr.Expr) (time.Time, error) {
	if e == nil {
		return time.Time{}, fmt.Errorf("nil timestamp argument")
	}

	kind, ok := e.ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a constant string")
	}
	s, ok := kind.ConstExpr.ConstantKind.(*expr.Constant_StringValue)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a string")
	}
	t, err := time.Parse(time.RFC3339Nano, s.StringValue)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", s.StringValue)
	}
	return t, nil
}

// compareValues orders left against right. nil sorts before every value.
func compareValues(left any, right any) (int, error) {
	if left == nil || right == nil {
		switch {
		case left == nil && right == nil:
			return 0, nil
		case left == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}

	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return 0, fmt.Errorf("type mismatch: string vs %T", right)
		}
		return strings.Compare(l, r), nil
	case time.Time:
		r, ok := right.(time.Time)
		if !ok {
			return 0, fmt.Errorf("type mismatch: timestamp vs %T", right)
		}
		return l.Compare(r), nil
	case bool:
		r, ok := right.(bool)
		if !ok {
			return 0, fmt.Errorf("type mismatch: bool vs %T", right)
		}
		return compareBools(l, r), nil
	}

	if order, ok := compareIntegers(left, right); ok {
		return order, nil
	}

	l, ok := toFloat(left)
	if !ok {
		return 0, fmt.Errorf("unsupported value type: %T", left)
	}
	return compareNumbers(l, right)
}

// compareIntegers orders two integers exactly. ok is false unless both
// values are integers.
func compareIntegers(left, right any) (order int, ok bool) {
	li, lSigned := toInt(left)
	lu, lUnsigned := toUint(left)
	ri, rSigned := toInt(right)
	ru, rUnsigned := toUint(right)

	switch {
	case lSigned && rSigned:
		return compareOrdered(li, ri), true
	case lUnsigned && rUnsigned:
		return compareOrdered(lu, ru), true
	case lSigned && rUnsigned:
		if li < 0 {
			return -1, true
		}
		return compareOrdered(uint64(li), ru), true
	case lUnsigned && rSigned:
		if ri < 0 {
			return 1, true
		}
		return compareOrdered(lu, uint64(ri)), true
	default:
		return 0, false
	}
}

func compareOrdered[N int64 | uint64](left, right N) int {
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}

func toInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func toUint(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	default:
		return 0, false
	}
}

func compareNumbers(left float64, right any) (int, error) {
	r, ok := toFloat(right)
	if !ok {
		return 0, fmt.Errorf("type mismatch: number vs %T", right)
	}
	switch {
	case left < r:
		return -1, nil
	case left > r:
		return 1, nil
	default:
		return 0, nil
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func compareBools(left, right bool) int {
	if left == right {
		return 0
	}
	if !left && right {
		return -1
	}
	return 1
}
