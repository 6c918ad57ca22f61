package fragment

import (
	"fmt"
	"strings"
)

// BlockText is the rendered string of a bare block wrapper
const BlockText = "{"

// Location represents the position of a fragment in the source code
type Location struct {
	File      string
	StartLine int
	EndLine   int
}

// String returns file:start-end
func (l Location) String() string {
	return fmt.Sprintf("%s:%d-%d", l.File, l.StartLine, l.EndLine)
}

// Fragment is a statement (leaf or composite) or an expression node of a
// parsed body. Fragments are built by the parser layer (or by the With*
// helpers in tests) and are not mutated afterwards.
type Fragment struct {
	Kind Kind
	// Text is the rendered statement. Leaves end with "\n";
	// composites render as "keyword (header)".
	Text string
	// Argumentized is the canonical rendering used for comparisons.
	// Empty means Text.
	Argumentized string
	// Expression is the main expression: a condition, a returned value,
	// the right-hand side of an assignment or the whole expression statement.
	Expression string

	Depth    int
	Index    int
	Location Location
	Parent   *Fragment
	Children []*Fragment

	Variables         []string
	Declarations      []*VariableDeclaration
	Invocations       []*Invocation
	Creations         []*ObjectCreation
	StringLiterals    []string
	NumberLiterals    []string
	BooleanLiterals   []string
	NullLiterals      []string
	Types             []string
	InfixOperators    []string
	ArrayAccesses     []string
	PrefixExpressions []string
	Ternaries         []string
	Lambdas           []*Lambda
}

// NewLeaf creates a leaf statement
func NewLeaf(kind Kind, text string) *Fragment {
	return &Fragment{Kind: kind, Text: text}
}

// NewComposite creates a composite statement owning children
func NewComposite(kind Kind, text string, children ...*Fragment) *Fragment {
	f := &Fragment{Kind: kind, Text: text}
	for _, child := range children {
		f.AddChild(child)
	}
	return f
}

// NewBody creates the root block of an operation body and numbers the tree
func NewBody(children ...*Fragment) *Fragment {
	root := NewComposite(KindBlock, BlockText, children...)
	root.Renumber()
	return root
}

// AddChild appends a child statement. Construction only.
func (f *Fragment) AddChild(child *Fragment) {
	if child == nil {
		return
	}
	child.Parent = f
	child.Index = len(f.Children)
	f.Children = append(f.Children, child)
}

// Renumber assigns depth and sibling index to the subtree rooted at f
func (f *Fragment) Renumber() {
	f.renumber(f.Depth)
}

func (f *Fragment) renumber(depth int) {
	f.Depth = depth
	for i, child := range f.Children {
		child.Parent = f
		child.Index = i
		child.renumber(depth + 1)
	}
}

// IsLeaf returns true for statements without child statements
func (f *Fragment) IsLeaf() bool {
	return !f.Kind.IsComposite()
}

// IsComposite returns true for statements owning child statements
func (f *Fragment) IsComposite() bool {
	return f.Kind.IsComposite()
}

// String returns the rendered statement
func (f *Fragment) String() string {
	return f.Text
}

// ArgumentizedString returns the canonical rendering
func (f *Fragment) ArgumentizedString() string {
	if f.Argumentized != "" {
		return f.Argumentized
	}
	return f.Text
}

// Condition returns the guarded expression for composites, or the trimmed
// text for leaves.
func (f *Fragment) Condition() string {
	if f.Expression != "" {
		return f.Expression
	}
	return strings.TrimSpace(f.Text)
}

// Leaves returns all leaf descendants in depth-first order
func (f *Fragment) Leaves() []*Fragment {
	var leaves []*Fragment
	for _, child := range f.Children {
		if child.IsLeaf() {
			leaves = append(leaves, child)
		} else {
			leaves = append(leaves, child.Leaves()...)
		}
	}
	return leaves
}

// InnerNodes returns composite descendants in post-order, excluding f
func (f *Fragment) InnerNodes() []*Fragment {
	var nodes []*Fragment
	for _, child := range f.Children {
		if child.IsComposite() {
			nodes = append(nodes, child.InnerNodes()...)
			nodes = append(nodes, child)
		}
	}
	return nodes
}

// Contains reports whether other is f or one of its descendants
func (f *Fragment) Contains(other *Fragment) bool {
	for n := other; n != nil; n = n.Parent {
		if n == f {
			return true
		}
	}
	return false
}

// CoveringInvocation returns the invocation spanning the whole main expression
func (f *Fragment) CoveringInvocation() *Invocation {
	if f.Expression == "" {
		return nil
	}
	for _, inv := range f.Invocations {
		if inv.Text == f.Expression {
			return inv
		}
	}
	return nil
}

// CoveringCreation returns the creation spanning the whole main expression
func (f *Fragment) CoveringCreation() *ObjectCreation {
	if f.Expression == "" {
		return nil
	}
	for _, c := range f.Creations {
		if c.Text == f.Expression {
			return c
		}
	}
	return nil
}

// DeclarationNamed returns the declaration of name in this fragment
func (f *Fragment) DeclarationNamed(name string) *VariableDeclaration {
	for _, d := range f.Declarations {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Declares reports whether the fragment introduces name
func (f *Fragment) Declares(name string) bool {
	return f.DeclarationNamed(name) != nil
}

// UsesVariable reports whether name occurs among the fragment variables
func (f *Fragment) UsesVariable(name string) bool {
	for _, v := range f.Variables {
		if v == name {
			return true
		}
	}
	return false
}

// IsCountable reports whether the fragment counts toward mapping statistics.
// Blocks and trivial jump statements do not.
func (f *Fragment) IsCountable() bool {
	if f.Kind.IsBlockLike() {
		return false
	}
	switch f.Kind {
	case KindPass, KindBreak, KindContinue:
		return false
	case KindReturn:
		t := strings.TrimSpace(f.Text)
		return t != "return" && t != "return None"
	}
	return true
}

// IsBareBlock reports whether the fragment is a block wrapper
func (f *Fragment) IsBareBlock() bool {
	return f.Kind == KindBlock
}

// The With* helpers fill extracted elements while a fragment is being built.

// WithVariables sets the referenced variables
func (f *Fragment) WithVariables(names ...string) *Fragment {
	f.Variables = append(f.Variables, names...)
	return f
}

// WithDeclarations sets the declared variables
func (f *Fragment) WithDeclarations(decls ...*VariableDeclaration) *Fragment {
	f.Declarations = append(f.Declarations, decls...)
	if len(decls) > 0 && f.Kind == KindAssignment {
		f.Kind = KindVariableDeclaration
	}
	return f
}

// WithInvocations sets the call sites
func (f *Fragment) WithInvocations(invs ...*Invocation) *Fragment {
	f.Invocations = append(f.Invocations, invs...)
	return f
}

// WithCreations sets the object creations
func (f *Fragment) WithCreations(creations ...*ObjectCreation) *Fragment {
	f.Creations = append(f.Creations, creations...)
	return f
}

// WithExpression sets the main expression
func (f *Fragment) WithExpression(expr string) *Fragment {
	f.Expression = expr
	return f
}

// WithTypes sets the referenced type names
func (f *Fragment) WithTypes(types ...string) *Fragment {
	f.Types = append(f.Types, types...)
	return f
}

// WithOperators sets the infix operators
func (f *Fragment) WithOperators(ops ...string) *Fragment {
	f.InfixOperators = append(f.InfixOperators, ops...)
	return f
}

// WithStringLiterals sets the string literals
func (f *Fragment) WithStringLiterals(lits ...string) *Fragment {
	f.StringLiterals = append(f.StringLiterals, lits...)
	return f
}

// WithNumberLiterals sets the number literals
func (f *Fragment) WithNumberLiterals(lits ...string) *Fragment {
	f.NumberLiterals = append(f.NumberLiterals, lits...)
	return f
}

// WithBooleanLiterals sets the boolean literals
func (f *Fragment) WithBooleanLiterals(lits ...string) *Fragment {
	f.BooleanLiterals = append(f.BooleanLiterals, lits...)
	return f
}

// WithNullLiterals sets the None literals
func (f *Fragment) WithNullLiterals(lits ...string) *Fragment {
	f.NullLiterals = append(f.NullLiterals, lits...)
	return f
}

// WithArrayAccesses sets the subscript expressions
func (f *Fragment) WithArrayAccesses(accesses ...string) *Fragment {
	f.ArrayAccesses = append(f.ArrayAccesses, accesses...)
	return f
}

// WithPrefixExpressions sets the prefix expressions
func (f *Fragment) WithPrefixExpressions(exprs ...string) *Fragment {
	f.PrefixExpressions = append(f.PrefixExpressions, exprs...)
	return f
}

// WithLambdas sets the lambdas
func (f *Fragment) WithLambdas(lambdas ...*Lambda) *Fragment {
	f.Lambdas = append(f.Lambdas, lambdas...)
	return f
}
