package fragment

import (
	"strconv"
	"strings"
)

// Invocation is a call site extracted from a fragment
type Invocation struct {
	Name       string   // called name, without receiver
	Expression string   // receiver expression, empty for plain calls
	Arguments  []string // argument texts in call order (keyword arguments as k=v)
	Text       string   // full call text
}

// String returns the call text
func (i *Invocation) String() string {
	return i.Text
}

// Key identifies the call target by name and arity
func (i *Invocation) Key() string {
	return i.Name + "/" + strconv.Itoa(len(i.Arguments))
}

// IdenticalName reports whether both invocations call the same name
func (i *Invocation) IdenticalName(other *Invocation) bool {
	return other != nil && i.Name == other.Name
}

// IdenticalExpression reports whether both invocations use the same receiver
func (i *Invocation) IdenticalExpression(other *Invocation) bool {
	return other != nil && i.Expression == other.Expression
}

// IdenticalArguments reports whether both argument lists are equal
func (i *Invocation) IdenticalArguments(other *Invocation) bool {
	if other == nil || len(i.Arguments) != len(other.Arguments) {
		return false
	}
	for idx, arg := range i.Arguments {
		if arg != other.Arguments[idx] {
			return false
		}
	}
	return true
}

// IdenticalWithDifferentName reports whether only the called name differs
func (i *Invocation) IdenticalWithDifferentName(other *Invocation) bool {
	return other != nil && !i.IdenticalName(other) &&
		i.IdenticalExpression(other) && i.IdenticalArguments(other)
}

// CommonArguments returns the arguments present in both invocations
func (i *Invocation) CommonArguments(other *Invocation) []string {
	if other == nil {
		return nil
	}
	set := make(map[string]bool, len(other.Arguments))
	for _, arg := range other.Arguments {
		set[arg] = true
	}
	var common []string
	for _, arg := range i.Arguments {
		if set[arg] {
			common = append(common, arg)
		}
	}
	return common
}

// HasArgument reports whether arg is passed to the call
func (i *Invocation) HasArgument(arg string) bool {
	for _, a := range i.Arguments {
		if a == arg {
			return true
		}
	}
	return false
}

// IsGetter reports whether the called name looks like an accessor
func (i *Invocation) IsGetter() bool {
	return strings.HasPrefix(i.Name, "get") && len(i.Arguments) == 0
}

// MatchesOperation reports whether the call can target op.
// Python calls cannot be resolved statically; name and arity are compared.
func (i *Invocation) MatchesOperation(op *Operation) bool {
	if op == nil || i.Name != op.Name {
		return false
	}
	required, total := op.Arity()
	n := len(i.Arguments)
	if op.HasVariadic() {
		return n >= required
	}
	return n >= required && n <= total
}

// ObjectCreation is a class instantiation or a collection literal
type ObjectCreation struct {
	Type      string
	Arguments []string
	Text      string
	Array     bool // list literal
}

// String returns the creation text
func (c *ObjectCreation) String() string {
	return c.Text
}

// IdenticalArguments reports whether both creations pass equal arguments
func (c *ObjectCreation) IdenticalArguments(other *ObjectCreation) bool {
	if other == nil || len(c.Arguments) != len(other.Arguments) {
		return false
	}
	for idx, arg := range c.Arguments {
		if arg != other.Arguments[idx] {
			return false
		}
	}
	return true
}

// VariableDeclaration is a local name introduced by a statement
type VariableDeclaration struct {
	Name        string
	Type        string // annotation, empty when absent
	Initializer string // right-hand side, empty when absent
	Parameter   bool
}

// Lambda is an inline anonymous function
type Lambda struct {
	Parameters []string
	Body       *Fragment
	Text       string
}
