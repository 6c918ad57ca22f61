package fragment

import (
	"strings"
)

// ParameterKind distinguishes ordinary and variadic parameters
type ParameterKind int

const (
	ParameterPositional ParameterKind = iota
	ParameterVarArgs
	ParameterKwArgs
)

// Parameter is a declared parameter of an operation
type Parameter struct {
	Name    string
	Type    string
	Default string
	Kind    ParameterKind
}

// Operation is a function or method with its body
type Operation struct {
	Name       string
	ClassName  string // empty for module-level functions
	ModulePath string
	Parameters []*Parameter
	ReturnType string
	Decorators []string
	Async      bool
	Body       *Fragment
	Location   Location
	// Position is the declaration order within the owning class or module
	Position int
}

// NewOperation creates an operation with untyped positional parameters.
// Mostly useful in tests.
func NewOperation(name string, params []string, body *Fragment) *Operation {
	op := &Operation{Name: name, Body: body}
	for _, p := range params {
		op.Parameters = append(op.Parameters, &Parameter{Name: p})
	}
	return op
}

// QualifiedName returns Class.name or name
func (o *Operation) QualifiedName() string {
	if o.ClassName == "" {
		return o.Name
	}
	return o.ClassName + "." + o.Name
}

// Key identifies the operation within its module
func (o *Operation) Key() string {
	return o.ModulePath + "::" + o.QualifiedName()
}

// Signature returns name(param, ...)
func (o *Operation) Signature() string {
	return o.Name + "(" + strings.Join(o.ParameterNames(), ", ") + ")"
}

// String returns the qualified signature
func (o *Operation) String() string {
	if o.ClassName == "" {
		return o.Signature()
	}
	return o.ClassName + "." + o.Signature()
}

// ParameterNames returns parameter names without the receiver
func (o *Operation) ParameterNames() []string {
	var names []string
	for _, p := range o.ExplicitParameters() {
		names = append(names, p.Name)
	}
	return names
}

// ExplicitParameters returns parameters excluding self and cls
func (o *Operation) ExplicitParameters() []*Parameter {
	var params []*Parameter
	for i, p := range o.Parameters {
		if i == 0 && o.ClassName != "" && (p.Name == "self" || p.Name == "cls") {
			continue
		}
		params = append(params, p)
	}
	return params
}

// ParameterTypes returns the declared parameter types (empty when absent)
func (o *Operation) ParameterTypes() []string {
	var types []string
	for _, p := range o.ExplicitParameters() {
		types = append(types, p.Type)
	}
	return types
}

// Arity returns the number of required and total positional parameters
func (o *Operation) Arity() (required, total int) {
	for _, p := range o.ExplicitParameters() {
		if p.Kind != ParameterPositional {
			continue
		}
		total++
		if p.Default == "" {
			required++
		}
	}
	return required, total
}

// HasVariadic reports whether the operation accepts *args or **kwargs
func (o *Operation) HasVariadic() bool {
	for _, p := range o.Parameters {
		if p.Kind != ParameterPositional {
			return true
		}
	}
	return false
}

// EqualSignature reports whether name and parameter names match
func (o *Operation) EqualSignature(other *Operation) bool {
	if other == nil || o.Name != other.Name {
		return false
	}
	return equalStrings(o.ParameterNames(), other.ParameterNames())
}

// EqualParameters reports whether parameter names and types match
func (o *Operation) EqualParameters(other *Operation) bool {
	return equalStrings(o.ParameterNames(), other.ParameterNames()) &&
		equalStrings(o.ParameterTypes(), other.ParameterTypes())
}

// EqualReturnParameter reports whether return annotations match
func (o *Operation) EqualReturnParameter(other *Operation) bool {
	return o.ReturnType == other.ReturnType
}

// CommonParameterTypes counts positions with equal parameter type or name
func (o *Operation) CommonParameterTypes(other *Operation) int {
	p1, p2 := o.ExplicitParameters(), other.ExplicitParameters()
	common := 0
	for i := 0; i < len(p1) && i < len(p2); i++ {
		if p1[i].Name == p2[i].Name || (p1[i].Type != "" && p1[i].Type == p2[i].Type) {
			common++
		}
	}
	return common
}

// HasEmptyBody reports whether the body has no countable statements
func (o *Operation) HasEmptyBody() bool {
	if o.Body == nil {
		return true
	}
	for _, leaf := range o.Body.Leaves() {
		if leaf.IsCountable() {
			return false
		}
	}
	for _, node := range o.Body.InnerNodes() {
		if node.IsCountable() {
			return false
		}
	}
	return true
}

// AllInvocations returns every call site in the body, in statement order
func (o *Operation) AllInvocations() []*Invocation {
	if o.Body == nil {
		return nil
	}
	var invs []*Invocation
	var walk func(f *Fragment)
	walk = func(f *Fragment) {
		invs = append(invs, f.Invocations...)
		for _, child := range f.Children {
			walk(child)
		}
	}
	walk(o.Body)
	return invs
}

// Calls reports whether the body contains a call that can target other
func (o *Operation) Calls(other *Operation) bool {
	for _, inv := range o.AllInvocations() {
		if inv.MatchesOperation(other) {
			return true
		}
	}
	return false
}

// InvocationsTo returns the call sites targeting other
func (o *Operation) InvocationsTo(other *Operation) []*Invocation {
	var out []*Invocation
	for _, inv := range o.AllInvocations() {
		if inv.MatchesOperation(other) {
			out = append(out, inv)
		}
	}
	return out
}

// BodyText returns the concatenated statement strings, used for
// identical-body checks.
func (o *Operation) BodyText() string {
	if o.Body == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(f *Fragment)
	walk = func(f *Fragment) {
		for _, child := range f.Children {
			sb.WriteString(child.Text)
			if child.IsComposite() {
				sb.WriteString("\n")
				walk(child)
			}
		}
	}
	walk(o.Body)
	return sb.String()
}

// Class is a class definition with its methods and attributes
type Class struct {
	Name         string
	ModulePath   string
	Superclasses []string
	Attributes   []string
	Operations   []*Operation
	Location     Location
}

// QualifiedName returns module::Class
func (c *Class) QualifiedName() string {
	return c.ModulePath + "::" + c.Name
}

// HasAttribute reports whether the class assigns name
func (c *Class) HasAttribute(name string) bool {
	for _, a := range c.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// Module is a parsed source file
type Module struct {
	Path      string
	Classes   []*Class
	Functions []*Operation
}

// AllOperations returns module functions followed by class methods
func (m *Module) AllOperations() []*Operation {
	ops := append([]*Operation{}, m.Functions...)
	for _, c := range m.Classes {
		ops = append(ops, c.Operations...)
	}
	return ops
}

// ClassNamed returns the class with the given name
func (m *Module) ClassNamed(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
