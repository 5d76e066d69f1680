package fluxion

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is one vertex of the playbook syntax tree. Eval walks it against a
// scope chain; ToFlux prints it back as source.
type Node interface {
	Eval(ev *Evaluator, env *Environment) (any, error)
	ToFlux(indent string) string
}

// position records where a node appeared in the source. Nodes that can fail
// at evaluation time embed it so error reports can cite the site.
type position struct {
	line int
	col  int
}

func (p position) sourcePos() (int, int) { return p.line, p.col }

type LiteralNode struct {
	Value any
}

func (l *LiteralNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	return l.Value, nil
}

func (l *LiteralNode) ToFlux(indent string) string {
	switch v := l.Value.(type) {
	case nil:
		return indent + "null"
	case bool:
		return indent + strconv.FormatBool(v)
	case int:
		return indent + strconv.Itoa(v)
	case float64:
		return indent + strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return indent + strconv.Quote(v)
	}
	return indent + fmt.Sprintf("%v", l.Value)
}

type IdentifierNode struct {
	Name string
	position
}

func (i *IdentifierNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	if v, ok := env.Lookup(i.Name); ok {
		return v, nil
	}
	if _, ok := ev.registry.Lookup(i.Name); ok {
		return &BuiltinRef{Name: i.Name}, nil
	}
	return nil, evalErrf(ErrUnknownVariable, i, "undefined variable %s", i.Name)
}

func (i *IdentifierNode) ToFlux(indent string) string {
	return indent + i.Name
}

// InterpNode is a string literal with embedded ${expr} segments. Parts hold
// literal text and expression nodes in source order.
type InterpNode struct {
	Parts []Node
}

func (n *InterpNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	var sb strings.Builder
	for _, part := range n.Parts {
		v, err := part.Eval(ev, env)
		if err != nil {
			return nil, err
		}
		sb.WriteString(stringify(v))
	}
	return sb.String(), nil
}

func (n *InterpNode) ToFlux(indent string) string {
	var raw strings.Builder
	for _, part := range n.Parts {
		if lit, ok := part.(*LiteralNode); ok {
			if s, ok := lit.Value.(string); ok {
				raw.WriteString(s)
				continue
			}
		}
		raw.WriteString("${")
		raw.WriteString(part.ToFlux(""))
		raw.WriteString("}")
	}
	return indent + strconv.Quote(raw.String())
}

type ListNode struct {
	Elements []Node
}

func (s *ListNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	result := make([]any, 0, len(s.Elements))
	for _, el := range s.Elements {
		val, err := el.Eval(ev, env)
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, nil
}

func (s *ListNode) ToFlux(indent string) string {
	var parts []string
	for _, el := range s.Elements {
		parts = append(parts, el.ToFlux(""))
	}
	return fmt.Sprintf("%s[%s]", indent, strings.Join(parts, ", "))
}

type MapEntry struct {
	Key   string
	Value Node
}

type MapNode struct {
	Entries []MapEntry
}

func (m *MapNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	out := NewMap()
	for _, entry := range m.Entries {
		val, err := entry.Value.Eval(ev, env)
		if err != nil {
			return nil, err
		}
		out.Set(entry.Key, val)
	}
	return out, nil
}

func (m *MapNode) ToFlux(indent string) string {
	var parts []string
	for _, entry := range m.Entries {
		parts = append(parts, fmt.Sprintf("%s: %s", entry.Key, entry.Value.ToFlux("")))
	}
	return fmt.Sprintf("%s{%s}", indent, strings.Join(parts, ", "))
}

type BinaryNode struct {
	Op    string
	Left  Node
	Right Node
	position
}

func (b *BinaryNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	// Logical operators short-circuit and yield the deciding operand.
	switch b.Op {
	case "&&":
		left, err := b.Left.Eval(ev, env)
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			return left, nil
		}
		return b.Right.Eval(ev, env)
	case "||":
		left, err := b.Left.Eval(ev, env)
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			return left, nil
		}
		return b.Right.Eval(ev, env)
	}
	left, err := b.Left.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	right, err := b.Right.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	return applyBinary(b.Op, left, right, b)
}

func applyBinary(op string, left, right any, node Node) (any, error) {
	switch op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	case "+":
		if ls, ok := left.(string); ok {
			rs, ok := right.(string)
			if !ok {
				return nil, evalErrf(ErrType, node, "cannot concatenate string and %s (use join or interpolation)", typeName(right))
			}
			return ls + rs, nil
		}
		if isInt(left) && isInt(right) {
			return left.(int) + right.(int), nil
		}
		lf, rf, err := numericOperands(op, left, right, node)
		if err != nil {
			return nil, err
		}
		return lf + rf, nil
	case "-":
		if isInt(left) && isInt(right) {
			return left.(int) - right.(int), nil
		}
		lf, rf, err := numericOperands(op, left, right, node)
		if err != nil {
			return nil, err
		}
		return lf - rf, nil
	case "*":
		if isInt(left) && isInt(right) {
			return left.(int) * right.(int), nil
		}
		lf, rf, err := numericOperands(op, left, right, node)
		if err != nil {
			return nil, err
		}
		return lf * rf, nil
	case "/":
		lf, rf, err := numericOperands(op, left, right, node)
		if err != nil {
			return nil, err
		}
		if rf == 0 {
			return nil, evalErrf(ErrDivisionByZero, node, "division by zero")
		}
		return lf / rf, nil
	case "%":
		li, lok := left.(int)
		ri, rok := right.(int)
		if !lok || !rok {
			return nil, evalErrf(ErrType, node, "operator %% requires integer operands, got %s and %s", typeName(left), typeName(right))
		}
		if ri == 0 {
			return nil, evalErrf(ErrDivisionByZero, node, "division by zero in %%")
		}
		return li % ri, nil
	case "<", "<=", ">", ">=":
		return compareOrdered(op, left, right, node)
	}
	return nil, evalErrf(ErrType, node, "unknown operator %s", op)
}

func numericOperands(op string, left, right any, node Node) (float64, float64, error) {
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return 0, 0, evalErrf(ErrType, node, "operator %s requires numeric operands, got %s and %s", op, typeName(left), typeName(right))
	}
	return lf, rf, nil
}

func compareOrdered(op string, left, right any, node Node) (any, error) {
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			return nil, evalErrf(ErrType, node, "cannot compare string with %s", typeName(right))
		}
		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	lf, rf, err := numericOperands(op, left, right, node)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	}
	return lf >= rf, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case *Map, map[string]any:
		return "map"
	case *Closure:
		return "function"
	case *BuiltinRef:
		return "builtin"
	}
	return fmt.Sprintf("%T", v)
}

func (b *BinaryNode) ToFlux(indent string) string {
	return fmt.Sprintf("%s%s %s %s", indent, b.Left.ToFlux(""), b.Op, b.Right.ToFlux(""))
}

type UnaryNode struct {
	Op    string
	Child Node
	position
}

func (u *UnaryNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	val, err := u.Child.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "-":
		switch n := val.(type) {
		case int:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, evalErrf(ErrType, u, "cannot negate %s", typeName(val))
	case "!":
		return !truthy(val), nil
	}
	return nil, evalErrf(ErrType, u, "unknown unary operator %s", u.Op)
}

func (u *UnaryNode) ToFlux(indent string) string {
	if u.Op == "!" {
		return fmt.Sprintf("%s%s %s", indent, u.Op, u.Child.ToFlux(""))
	}
	return fmt.Sprintf("%s%s%s", indent, u.Op, u.Child.ToFlux(""))
}

type TernaryNode struct {
	Condition Node
	TrueExpr  Node
	FalseExpr Node
}

func (t *TernaryNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	condVal, err := t.Condition.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	if truthy(condVal) {
		return t.TrueExpr.Eval(ev, env)
	}
	return t.FalseExpr.Eval(ev, env)
}

func (t *TernaryNode) ToFlux(indent string) string {
	return fmt.Sprintf("%s%s ? %s : %s", indent, t.Condition.ToFlux(""), t.TrueExpr.ToFlux(""), t.FalseExpr.ToFlux(""))
}

// CoalesceNode yields the left operand unless it is null, in which case the
// right operand is evaluated and returned.
type CoalesceNode struct {
	Left  Node
	Right Node
}

func (c *CoalesceNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	left, err := c.Left.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	if left != nil {
		return left, nil
	}
	return c.Right.Eval(ev, env)
}

func (c *CoalesceNode) ToFlux(indent string) string {
	return fmt.Sprintf("%s%s ?? %s", indent, c.Left.ToFlux(""), c.Right.ToFlux(""))
}

// DotNode reads a named entry from a map value, or an element from a list
// when the name is all digits ("r.0"). A missing key or out-of-range index
// yields null so probe results can be inspected without guarding every
// access.
type DotNode struct {
	Left Node
	Name string
	position
}

func (d *DotNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	leftVal, err := d.Left.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	switch m := leftVal.(type) {
	case nil:
		return nil, nil
	case *Map:
		v, _ := m.Get(d.Name)
		return v, nil
	case map[string]any:
		return m[d.Name], nil
	case []any:
		idx, err := strconv.Atoi(d.Name)
		if err != nil {
			return nil, evalErrf(ErrType, d, "dot access on list needs a numeric name, got %q", d.Name)
		}
		if idx < 0 || idx >= len(m) {
			return nil, nil
		}
		return m[idx], nil
	}
	return nil, evalErrf(ErrType, d, "dot access on %s", typeName(leftVal))
}

func (d *DotNode) ToFlux(indent string) string {
	return fmt.Sprintf("%s%s.%s", indent, d.Left.ToFlux(""), d.Name)
}

// GroupNode preserves parentheses when printing.
type GroupNode struct {
	Child Node
}

func (g *GroupNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	return g.Child.Eval(ev, env)
}

func (g *GroupNode) ToFlux(indent string) string {
	return fmt.Sprintf("%s(%s)", indent, g.Child.ToFlux(""))
}

type KwArg struct {
	Name  string
	Value Node
}

type CallNode struct {
	Name   string
	Args   []Node
	Kwargs []KwArg
	position
}

func (c *CallNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	// Scope chain shadows the registry so user functions win name clashes.
	if v, ok := env.Lookup(c.Name); ok {
		switch callee := v.(type) {
		case *Closure:
			args, _, err := c.evalArgs(ev, env, false)
			if err != nil {
				return nil, err
			}
			return ev.callClosure(callee, args, c)
		case *BuiltinRef:
			args, kwargs, err := c.evalArgs(ev, env, true)
			if err != nil {
				return nil, err
			}
			return ev.callBuiltin(callee.Name, args, kwargs, c, env)
		default:
			return nil, evalErrf(ErrType, c, "%s is not callable (value of type %s)", c.Name, typeName(v))
		}
	}
	if _, ok := ev.registry.Lookup(c.Name); ok {
		args, kwargs, err := c.evalArgs(ev, env, true)
		if err != nil {
			return nil, err
		}
		return ev.callBuiltin(c.Name, args, kwargs, c, env)
	}
	return nil, evalErrf(ErrUnknownFunction, c, "unknown function %s", c.Name)
}

func (c *CallNode) evalArgs(ev *Evaluator, env *Environment, named bool) ([]any, map[string]any, error) {
	if !named && len(c.Kwargs) > 0 {
		return nil, nil, evalErrf(ErrType, c, "function %s does not accept named arguments", c.Name)
	}
	args := make([]any, 0, len(c.Args))
	for _, arg := range c.Args {
		val, err := arg.Eval(ev, env)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, val)
	}
	var kwargs map[string]any
	if len(c.Kwargs) > 0 {
		kwargs = make(map[string]any, len(c.Kwargs))
		for _, kw := range c.Kwargs {
			val, err := kw.Value.Eval(ev, env)
			if err != nil {
				return nil, nil, err
			}
			kwargs[kw.Name] = val
		}
	}
	return args, kwargs, nil
}

func (c *CallNode) ToFlux(indent string) string {
	var parts []string
	for _, a := range c.Args {
		parts = append(parts, a.ToFlux(""))
	}
	for _, kw := range c.Kwargs {
		parts = append(parts, fmt.Sprintf("%s=%s", kw.Name, kw.Value.ToFlux("")))
	}
	return fmt.Sprintf("%s%s(%s)", indent, c.Name, strings.Join(parts, ", "))
}

// CommandNode is the bare-command shorthand "name k1=v1, k2=v2". It exists
// only between parse and desugar; reaching the evaluator is a pipeline bug.
type CommandNode struct {
	Name  string
	Pairs []MapEntry
	position
}

func (c *CommandNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	return nil, &DesugarError{Message: fmt.Sprintf("command %s reached the evaluator undesugared", c.Name)}
}

func (c *CommandNode) ToFlux(indent string) string {
	var parts []string
	for _, p := range c.Pairs {
		parts = append(parts, fmt.Sprintf("%s=%s", p.Key, p.Value.ToFlux("")))
	}
	return fmt.Sprintf("%s%s %s", indent, c.Name, strings.Join(parts, ", "))
}

// LetNode binds a new name in the current scope, shadowing outer bindings.
// Re-binding the same name in the same scope overwrites it.
type LetNode struct {
	Name  string
	Value Node
}

func (l *LetNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	val, err := l.Value.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	env.Define(l.Name, val)
	return nil, nil
}

func (l *LetNode) ToFlux(indent string) string {
	return fmt.Sprintf("%slet %s = %s", indent, l.Name, l.Value.ToFlux(""))
}

// AssignNode mutates the innermost existing binding of the name.
type AssignNode struct {
	Name  string
	Value Node
	position
}

func (a *AssignNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	val, err := a.Value.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	if !env.Set(a.Name, val) {
		return nil, evalErrf(ErrUnknownVariable, a, "cannot assign to undeclared variable %s", a.Name)
	}
	return nil, nil
}

func (a *AssignNode) ToFlux(indent string) string {
	return fmt.Sprintf("%s%s = %s", indent, a.Name, a.Value.ToFlux(""))
}

type ReturnNode struct {
	Value Node
}

func (r *ReturnNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	if r.Value == nil {
		return returnSignal{}, nil
	}
	val, err := r.Value.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	return returnSignal{value: val}, nil
}

func (r *ReturnNode) ToFlux(indent string) string {
	if r.Value == nil {
		return indent + "return"
	}
	return fmt.Sprintf("%sreturn %s", indent, r.Value.ToFlux(""))
}

type IfNode struct {
	Condition Node
	Then      *BlockNode
	Else      Node // *BlockNode, *IfNode for else-if chains, or nil
}

func (n *IfNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	condVal, err := n.Condition.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	if truthy(condVal) {
		return ev.execBlock(n.Then, env)
	}
	if n.Else != nil {
		return n.Else.Eval(ev, env)
	}
	return nil, nil
}

func (n *IfNode) ToFlux(indent string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%sif %s %s", indent, n.Condition.ToFlux(""), n.Then.ToFlux(indent)))
	if n.Else != nil {
		sb.WriteString(" else ")
		sb.WriteString(strings.TrimLeft(n.Else.ToFlux(indent), " "))
	}
	return sb.String()
}

type ForNode struct {
	Var      string
	Iterable Node
	Body     *BlockNode
	position
}

func (f *ForNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	iter, err := f.Iterable.Eval(ev, env)
	if err != nil {
		return nil, err
	}
	var items []any
	switch it := iter.(type) {
	case []any:
		items = it
	case *Map:
		items = it.Values()
	default:
		return nil, evalErrf(ErrType, f, "for loop requires a list or map, got %s", typeName(iter))
	}
	// Each iteration owns a fresh child scope: closures created in the body
	// capture distinct bindings, and body variables die with the iteration.
	for _, item := range items {
		child := NewEnv(env)
		child.Define(f.Var, item)
		r, err := ev.execBlock(f.Body, child)
		if err != nil {
			return nil, err
		}
		if rs, ok := r.(returnSignal); ok {
			return rs, nil
		}
	}
	return nil, nil
}

func (f *ForNode) ToFlux(indent string) string {
	return fmt.Sprintf("%sfor %s in %s %s", indent, f.Var, f.Iterable.ToFlux(""), f.Body.ToFlux(indent))
}

type FuncNode struct {
	Name   string
	Params []string
	Body   *BlockNode
}

func (f *FuncNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	env.Define(f.Name, &Closure{
		Name:   f.Name,
		Params: f.Params,
		Body:   f.Body,
		Env:    env,
	})
	return nil, nil
}

func (f *FuncNode) ToFlux(indent string) string {
	return fmt.Sprintf("%sfunc %s(%s) %s", indent, f.Name, strings.Join(f.Params, ", "), f.Body.ToFlux(indent))
}

type BlockNode struct {
	Stmts []Node
}

func (b *BlockNode) Eval(ev *Evaluator, env *Environment) (any, error) {
	return ev.execBlock(b, env)
}

func (b *BlockNode) ToFlux(indent string) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, stmt := range b.Stmts {
		sb.WriteString(stmt.ToFlux(indent + "    "))
		sb.WriteString("\n")
	}
	sb.WriteString(indent)
	sb.WriteString("}")
	return sb.String()
}
