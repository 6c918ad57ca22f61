package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
)

// ModelBuilder converts a parse tree into the structural model of a module
type ModelBuilder struct {
	source []byte
	path   string
}

// NewModelBuilder creates a builder for the module at path
func NewModelBuilder(source []byte, path string) *ModelBuilder {
	return &ModelBuilder{source: source, path: path}
}

// ParseModule parses source and builds its module model
func ParseModule(ctx context.Context, source []byte, path string) (*fragment.Module, error) {
	result, err := New().Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer result.Tree.Close()
	return NewModelBuilder(source, path).Build(result.RootNode), nil
}

// Build walks the module node: top-level functions, classes and their
// methods. Nested classes are named Outer.Inner.
func (b *ModelBuilder) Build(root *sitter.Node) *fragment.Module {
	module := &fragment.Module{Path: b.path}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		def, decorators := unwrapDecorated(child, b.source)
		switch def.Type() {
		case "function_definition":
			op := b.buildOperation(def, "", decorators)
			op.Position = len(module.Functions)
			module.Functions = append(module.Functions, op)
		case "class_definition":
			module.Classes = append(module.Classes, b.buildClass(def, "")...)
		}
	}
	return module
}

// buildClass returns the class and its nested classes
func (b *ModelBuilder) buildClass(n *sitter.Node, outer string) []*fragment.Class {
	class := &fragment.Class{
		ModulePath: b.path,
		Location:   b.getLocation(n),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		class.Name = name.Content(b.source)
	}
	if outer != "" {
		class.Name = outer + "." + class.Name
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() != "keyword_argument" && !isTrivia(arg) {
				class.Superclasses = append(class.Superclasses, arg.Content(b.source))
			}
		}
	}

	classes := []*fragment.Class{class}
	attributes := newOrderedNames()
	body := n.ChildByFieldName("body")
	if body == nil {
		return classes
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		def, decorators := unwrapDecorated(child, b.source)
		switch def.Type() {
		case "function_definition":
			op := b.buildOperation(def, class.Name, decorators)
			op.Position = len(class.Operations)
			class.Operations = append(class.Operations, op)
			b.collectSelfAttributes(def, attributes)
		case "class_definition":
			classes = append(classes, b.buildClass(def, class.Name)...)
		case "expression_statement":
			if def.NamedChildCount() > 0 && def.NamedChild(0).Type() == "assignment" {
				if left := def.NamedChild(0).ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
					attributes.add(left.Content(b.source))
				}
			}
		}
	}
	class.Attributes = attributes.names
	return classes
}

// collectSelfAttributes records names assigned through self in a method
func (b *ModelBuilder) collectSelfAttributes(def *sitter.Node, attributes *orderedNames) {
	body := def.ChildByFieldName("body")
	if body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition", "lambda":
			return
		case "assignment", "augmented_assignment":
			b.selfTargets(n.ChildByFieldName("left"), attributes)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(body)
}

func (b *ModelBuilder) selfTargets(target *sitter.Node, attributes *orderedNames) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "attribute":
		object := target.ChildByFieldName("object")
		attr := target.ChildByFieldName("attribute")
		if object != nil && attr != nil && object.Type() == "identifier" && object.Content(b.source) == "self" {
			attributes.add(attr.Content(b.source))
		}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "expression_list":
		for i := 0; i < int(target.NamedChildCount()); i++ {
			b.selfTargets(target.NamedChild(i), attributes)
		}
	}
}

func (b *ModelBuilder) buildOperation(n *sitter.Node, className string, decorators []string) *fragment.Operation {
	op := &fragment.Operation{
		ClassName:  className,
		ModulePath: b.path,
		Decorators: decorators,
		Location:   b.getLocation(n),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			op.Async = true
		}
	}
	if name := n.ChildByFieldName("name"); name != nil {
		op.Name = name.Content(b.source)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		op.Parameters = b.buildParameters(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		op.ReturnType = normalizedContent(ret, b.source)
	}
	var names []string
	for _, p := range op.Parameters {
		names = append(names, p.Name)
	}
	op.Body = NewFragmentBuilder(b.source, b.path, names).BuildBody(n.ChildByFieldName("body"))
	return op
}

func (b *ModelBuilder) buildParameters(params *sitter.Node) []*fragment.Parameter {
	var out []*fragment.Parameter
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if p := b.buildParameter(params.NamedChild(i)); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (b *ModelBuilder) buildParameter(n *sitter.Node) *fragment.Parameter {
	switch n.Type() {
	case "identifier":
		return &fragment.Parameter{Name: n.Content(b.source)}
	case "list_splat_pattern", "dictionary_splat_pattern":
		p := &fragment.Parameter{Kind: fragment.ParameterVarArgs}
		if n.Type() == "dictionary_splat_pattern" {
			p.Kind = fragment.ParameterKwArgs
		}
		if n.NamedChildCount() > 0 {
			p.Name = n.NamedChild(0).Content(b.source)
		}
		return p
	case "typed_parameter":
		var p *fragment.Parameter
		if n.NamedChildCount() > 0 {
			p = b.buildParameter(n.NamedChild(0))
		}
		if p == nil {
			return nil
		}
		if t := n.ChildByFieldName("type"); t != nil {
			p.Type = normalizedContent(t, b.source)
		}
		return p
	case "default_parameter", "typed_default_parameter":
		p := &fragment.Parameter{}
		if name := n.ChildByFieldName("name"); name != nil {
			p.Name = name.Content(b.source)
		}
		if t := n.ChildByFieldName("type"); t != nil {
			p.Type = normalizedContent(t, b.source)
		}
		if v := n.ChildByFieldName("value"); v != nil {
			p.Default = normalizedContent(v, b.source)
		}
		return p
	}
	return nil
}

func (b *ModelBuilder) getLocation(n *sitter.Node) fragment.Location {
	return fragment.Location{
		File:      b.path,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

// unwrapDecorated returns the definition inside a decorated_definition and
// its decorator texts
func unwrapDecorated(n *sitter.Node, source []byte) (*sitter.Node, []string) {
	if n.Type() != "decorated_definition" {
		return n, nil
	}
	var decorators []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(normalizedContent(child, source), "@"))
		}
	}
	if def := n.ChildByFieldName("definition"); def != nil {
		return def, decorators
	}
	return n, decorators
}

func normalizedContent(n *sitter.Node, source []byte) string {
	return strings.Join(strings.Fields(n.Content(source)), " ")
}

type orderedNames struct {
	names []string
	seen  map[string]bool
}

func newOrderedNames() *orderedNames {
	return &orderedNames{seen: make(map[string]bool)}
}

func (o *orderedNames) add(name string) {
	if o.seen[name] {
		return
	}
	o.seen[name] = true
	o.names = append(o.names, name)
}
