package parser

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/similarity"
)

// collectionConstructors are builtins whose calls count as object creations
var collectionConstructors = map[string]bool{
	"list":      true,
	"dict":      true,
	"set":       true,
	"tuple":     true,
	"frozenset": true,
}

// FragmentBuilder converts the statements of one function body into a
// fragment tree
type FragmentBuilder struct {
	source   []byte
	file     string
	declared map[string]bool
}

// NewFragmentBuilder creates a builder for a body whose parameters are
// already declared
func NewFragmentBuilder(source []byte, file string, parameters []string) *FragmentBuilder {
	declared := make(map[string]bool, len(parameters))
	for _, p := range parameters {
		declared[p] = true
	}
	return &FragmentBuilder{source: source, file: file, declared: declared}
}

// BuildBody converts a block node into a numbered body composite
func (b *FragmentBuilder) BuildBody(block *sitter.Node) *fragment.Fragment {
	body := fragment.NewBody(b.buildStatements(block)...)
	if block != nil {
		body.Location = b.getLocation(block)
	}
	return body
}

func (b *FragmentBuilder) buildStatements(block *sitter.Node) []*fragment.Fragment {
	if block == nil {
		return nil
	}
	var out []*fragment.Fragment
	childCount := int(block.NamedChildCount())
	for i := 0; i < childCount; i++ {
		child := block.NamedChild(i)
		if child == nil || isTrivia(child) {
			continue
		}
		out = append(out, b.buildStatement(child)...)
	}
	return out
}

// buildStatement returns the fragments for one statement node. Docstrings
// and bare string statements produce none.
func (b *FragmentBuilder) buildStatement(n *sitter.Node) []*fragment.Fragment {
	switch n.Type() {
	case "if_statement":
		return []*fragment.Fragment{b.buildIf(n)}
	case "for_statement":
		return []*fragment.Fragment{b.buildFor(n)}
	case "while_statement":
		return []*fragment.Fragment{b.buildWhile(n)}
	case "try_statement":
		return []*fragment.Fragment{b.buildTry(n)}
	case "with_statement":
		return []*fragment.Fragment{b.buildWith(n)}
	case "match_statement":
		return []*fragment.Fragment{b.buildMatch(n)}
	case "expression_statement":
		if f := b.buildExpressionStatement(n); f != nil {
			return []*fragment.Fragment{f}
		}
		return nil
	case "function_definition", "class_definition", "decorated_definition":
		return []*fragment.Fragment{b.buildDefinition(n)}
	}
	return []*fragment.Fragment{b.buildSimpleStatement(n)}
}

func (b *FragmentBuilder) buildSimpleStatement(n *sitter.Node) *fragment.Fragment {
	kind := fragment.KindExpression
	switch n.Type() {
	case "return_statement":
		kind = fragment.KindReturn
	case "raise_statement":
		kind = fragment.KindRaise
	case "pass_statement":
		kind = fragment.KindPass
	case "break_statement":
		kind = fragment.KindBreak
	case "continue_statement":
		kind = fragment.KindContinue
	case "assert_statement":
		kind = fragment.KindAssert
	case "delete_statement":
		kind = fragment.KindDelete
	case "global_statement", "nonlocal_statement":
		kind = fragment.KindGlobal
	case "import_statement", "import_from_statement", "future_import_statement":
		kind = fragment.KindImport
	}
	f := b.newLeaf(kind, n)
	if kind == fragment.KindImport || kind == fragment.KindGlobal {
		return f
	}
	if n.NamedChildCount() > 0 {
		first := n.NamedChild(0)
		if kind == fragment.KindRaise || kind == fragment.KindReturn || kind == fragment.KindAssert {
			f.Expression = b.text(first)
		}
	}
	b.collectChildren(n, f)
	b.finish(f)
	return f
}

// buildExpressionStatement handles assignments and expression statements
func (b *FragmentBuilder) buildExpressionStatement(n *sitter.Node) *fragment.Fragment {
	if n.NamedChildCount() == 0 {
		return nil
	}
	expr := n.NamedChild(0)
	switch expr.Type() {
	case "string", "concatenated_string":
		return nil
	case "assignment":
		return b.buildAssignment(n, expr)
	case "augmented_assignment":
		f := b.newLeaf(fragment.KindAssignment, n)
		if right := expr.ChildByFieldName("right"); right != nil {
			f.Expression = b.text(right)
		}
		b.collect(expr, f)
		b.finish(f)
		return f
	}
	f := b.newLeaf(fragment.KindExpression, n)
	f.Expression = b.text(expr)
	b.collect(expr, f)
	b.finish(f)
	return f
}

// buildAssignment makes the first assignment of a local name a declaration
func (b *FragmentBuilder) buildAssignment(stmt, assign *sitter.Node) *fragment.Fragment {
	f := b.newLeaf(fragment.KindAssignment, stmt)
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	annotation := assign.ChildByFieldName("type")

	initializer := ""
	if right != nil {
		initializer = b.text(right)
		f.Expression = initializer
	}
	declaredType := ""
	if annotation != nil {
		declaredType = b.text(annotation)
		f.Types = append(f.Types, declaredType)
	}
	for _, name := range b.targetNames(left) {
		if b.declared[name] {
			continue
		}
		b.declared[name] = true
		f.WithDeclarations(&fragment.VariableDeclaration{
			Name:        name,
			Type:        declaredType,
			Initializer: initializer,
		})
	}
	if left != nil {
		b.collect(left, f)
	}
	if right != nil {
		b.collect(right, f)
	}
	b.finish(f)
	return f
}

// targetNames returns the plain names bound by an assignment target
func (b *FragmentBuilder) targetNames(target *sitter.Node) []string {
	if target == nil {
		return nil
	}
	switch target.Type() {
	case "identifier":
		return []string{b.text(target)}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "expression_list":
		var names []string
		for i := 0; i < int(target.NamedChildCount()); i++ {
			names = append(names, b.targetNames(target.NamedChild(i))...)
		}
		return names
	case "list_splat_pattern", "parenthesized_expression":
		if target.NamedChildCount() > 0 {
			return b.targetNames(target.NamedChild(0))
		}
	}
	return nil
}

// declare records new names bound by a composite header
func (b *FragmentBuilder) declare(f *fragment.Fragment, target *sitter.Node, initializer string) {
	for _, name := range b.targetNames(target) {
		if b.declared[name] {
			continue
		}
		b.declared[name] = true
		f.Declarations = append(f.Declarations, &fragment.VariableDeclaration{Name: name, Initializer: initializer})
	}
}

func (b *FragmentBuilder) buildIf(n *sitter.Node) *fragment.Fragment {
	f := b.newComposite(fragment.KindIf, "if", n, n.ChildByFieldName("consequence"))
	if condition := n.ChildByFieldName("condition"); condition != nil {
		f.Expression = b.text(condition)
		b.collect(condition, f)
	}
	b.addChildren(f, b.buildStatements(n.ChildByFieldName("consequence")))

	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		if n.FieldNameForChild(i) != "alternative" {
			continue
		}
		alt := n.Child(i)
		switch alt.Type() {
		case "elif_clause":
			elif := b.newComposite(fragment.KindElif, "elif", alt, alt.ChildByFieldName("consequence"))
			if condition := alt.ChildByFieldName("condition"); condition != nil {
				elif.Expression = b.text(condition)
				b.collect(condition, elif)
			}
			b.addChildren(elif, b.buildStatements(alt.ChildByFieldName("consequence")))
			b.finish(elif)
			f.AddChild(elif)
		case "else_clause":
			f.AddChild(b.buildElse(alt))
		}
	}
	b.finish(f)
	return f
}

func (b *FragmentBuilder) buildElse(n *sitter.Node) *fragment.Fragment {
	body := blockOf(n)
	f := b.newComposite(fragment.KindElse, "else", n, body)
	b.addChildren(f, b.buildStatements(body))
	return f
}

func (b *FragmentBuilder) buildFor(n *sitter.Node) *fragment.Fragment {
	body := n.ChildByFieldName("body")
	f := b.newComposite(fragment.KindFor, "for", n, body)
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if right != nil {
		f.Expression = b.text(right)
	}
	b.declare(f, left, f.Expression)
	if left != nil {
		b.collect(left, f)
	}
	if right != nil {
		b.collect(right, f)
	}
	b.addChildren(f, b.buildStatements(body))
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		f.AddChild(b.buildElse(alt))
	}
	b.finish(f)
	return f
}

func (b *FragmentBuilder) buildWhile(n *sitter.Node) *fragment.Fragment {
	body := n.ChildByFieldName("body")
	f := b.newComposite(fragment.KindWhile, "while", n, body)
	if condition := n.ChildByFieldName("condition"); condition != nil {
		f.Expression = b.text(condition)
		b.collect(condition, f)
	}
	b.addChildren(f, b.buildStatements(body))
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		f.AddChild(b.buildElse(alt))
	}
	b.finish(f)
	return f
}

func (b *FragmentBuilder) buildTry(n *sitter.Node) *fragment.Fragment {
	body := n.ChildByFieldName("body")
	f := b.newComposite(fragment.KindTry, "try", n, body)
	b.addChildren(f, b.buildStatements(body))

	childCount := int(n.NamedChildCount())
	for i := 0; i < childCount; i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "except_clause", "except_group_clause":
			f.AddChild(b.buildExcept(child))
		case "else_clause":
			f.AddChild(b.buildElse(child))
		case "finally_clause":
			block := blockOf(child)
			fin := b.newComposite(fragment.KindFinally, "finally", child, block)
			b.addChildren(fin, b.buildStatements(block))
			f.AddChild(fin)
		}
	}
	return f
}

func (b *FragmentBuilder) buildExcept(n *sitter.Node) *fragment.Fragment {
	block := blockOf(n)
	f := b.newComposite(fragment.KindExcept, "except", n, block)
	var named []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "block" && !isTrivia(child) {
			named = append(named, child)
		}
	}
	if len(named) > 0 {
		caught := named[0]
		if caught.Type() == "as_pattern" {
			if alias := caught.ChildByFieldName("alias"); alias != nil {
				b.declare(f, aliasTarget(alias), "")
			}
			caught = caught.NamedChild(0)
		} else if len(named) > 1 {
			b.declare(f, named[1], "")
		}
		if caught != nil {
			f.Expression = b.text(caught)
			f.Types = append(f.Types, f.Expression)
			b.collect(caught, f)
		}
	}
	b.addChildren(f, b.buildStatements(block))
	b.finish(f)
	return f
}

func (b *FragmentBuilder) buildWith(n *sitter.Node) *fragment.Fragment {
	body := n.ChildByFieldName("body")
	f := b.newComposite(fragment.KindWith, "with", n, body)
	b.walkWithItems(n, f)
	b.addChildren(f, b.buildStatements(body))
	b.finish(f)
	return f
}

func (b *FragmentBuilder) walkWithItems(n *sitter.Node, f *fragment.Fragment) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "with_clause":
			b.walkWithItems(child, f)
		case "with_item":
			value := child.ChildByFieldName("value")
			if value == nil {
				continue
			}
			if value.Type() == "as_pattern" {
				if expr := value.NamedChild(0); expr != nil && f.Expression == "" {
					f.Expression = b.text(expr)
				}
				if alias := value.ChildByFieldName("alias"); alias != nil {
					b.declare(f, aliasTarget(alias), f.Expression)
				}
			} else if f.Expression == "" {
				f.Expression = b.text(value)
			}
			b.collect(value, f)
		}
	}
}

func (b *FragmentBuilder) buildMatch(n *sitter.Node) *fragment.Fragment {
	body := n.ChildByFieldName("body")
	f := b.newComposite(fragment.KindMatch, "match", n, body)
	if subject := n.ChildByFieldName("subject"); subject != nil {
		f.Expression = b.text(subject)
		b.collect(subject, f)
	}
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			clause := body.NamedChild(i)
			if clause.Type() != "case_clause" {
				continue
			}
			block := blockOf(clause)
			c := b.newComposite(fragment.KindCase, "case", clause, block)
			b.addChildren(c, b.buildStatements(block))
			f.AddChild(c)
		}
	}
	b.finish(f)
	return f
}

// buildDefinition renders a nested def or class as a leaf holding its header
func (b *FragmentBuilder) buildDefinition(n *sitter.Node) *fragment.Fragment {
	def := n
	if n.Type() == "decorated_definition" {
		if inner := n.ChildByFieldName("definition"); inner != nil {
			def = inner
		}
	}
	header := b.text(def)
	if body := def.ChildByFieldName("body"); body != nil {
		header = strings.TrimSuffix(similarity.NormalizeStatement(string(b.source[def.StartByte():body.StartByte()])), ":")
	}
	f := fragment.NewLeaf(fragment.KindDefinition, header+"\n")
	f.Location = b.getLocation(n)
	if name := def.ChildByFieldName("name"); name != nil {
		b.declared[b.text(name)] = true
	}
	return f
}

// newLeaf renders a simple statement as normalized text ending in "\n"
func (b *FragmentBuilder) newLeaf(kind fragment.Kind, n *sitter.Node) *fragment.Fragment {
	f := fragment.NewLeaf(kind, b.text(n)+"\n")
	f.Location = b.getLocation(n)
	return f
}

// newComposite renders a header as "keyword (rest)", or the bare keyword
func (b *FragmentBuilder) newComposite(kind fragment.Kind, keyword string, n, block *sitter.Node) *fragment.Fragment {
	end := n.EndByte()
	if block != nil {
		end = block.StartByte()
	}
	header := similarity.NormalizeStatement(string(b.source[n.StartByte():end]))
	header = strings.TrimSpace(strings.TrimSuffix(header, ":"))
	for _, prefix := range []string{"async ", keyword + "*", keyword} {
		header = strings.TrimSpace(strings.TrimPrefix(header, prefix))
	}
	text := keyword
	if header != "" {
		text = keyword + " (" + header + ")"
	}
	f := fragment.NewComposite(kind, text)
	f.Location = b.getLocation(n)
	return f
}

func (b *FragmentBuilder) addChildren(parent *fragment.Fragment, children []*fragment.Fragment) {
	for _, child := range children {
		parent.AddChild(child)
	}
}

// collect extracts the elements of an expression subtree into f
func (b *FragmentBuilder) collect(n *sitter.Node, f *fragment.Fragment) {
	if n == nil || isTrivia(n) {
		return
	}
	switch n.Type() {
	case "identifier":
		if name := b.text(n); name != "self" && name != "cls" {
			f.Variables = append(f.Variables, name)
		}
	case "attribute":
		object := n.ChildByFieldName("object")
		if object != nil && object.Type() == "identifier" {
			if name := b.text(object); name == "self" || name == "cls" {
				f.Variables = append(f.Variables, b.text(n))
				return
			}
		}
		if object != nil && object.Type() == "attribute" && isSelfChain(b, object) {
			f.Variables = append(f.Variables, b.text(n))
		}
		b.collect(object, f)
	case "call":
		b.collectCall(n, f)
	case "keyword_argument":
		b.collect(n.ChildByFieldName("value"), f)
	case "list":
		f.Creations = append(f.Creations, &fragment.ObjectCreation{
			Type:      "list",
			Arguments: b.namedTexts(n),
			Text:      b.text(n),
			Array:     true,
		})
		b.collectChildren(n, f)
	case "string", "concatenated_string":
		if n.Type() == "string" {
			f.StringLiterals = append(f.StringLiterals, b.text(n))
		}
		b.collectInterpolations(n, f)
	case "integer", "float":
		f.NumberLiterals = append(f.NumberLiterals, b.text(n))
	case "true", "false":
		f.BooleanLiterals = append(f.BooleanLiterals, b.text(n))
	case "none":
		f.NullLiterals = append(f.NullLiterals, b.text(n))
	case "binary_operator", "boolean_operator":
		if op := n.ChildByFieldName("operator"); op != nil {
			f.InfixOperators = append(f.InfixOperators, b.text(op))
		}
		b.collect(n.ChildByFieldName("left"), f)
		b.collect(n.ChildByFieldName("right"), f)
	case "comparison_operator":
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.IsNamed() {
				b.collect(child, f)
			} else {
				f.InfixOperators = append(f.InfixOperators, b.text(child))
			}
		}
	case "not_operator", "unary_operator":
		f.PrefixExpressions = append(f.PrefixExpressions, b.text(n))
		b.collect(n.ChildByFieldName("argument"), f)
	case "subscript":
		f.ArrayAccesses = append(f.ArrayAccesses, b.text(n))
		b.collectChildren(n, f)
	case "conditional_expression":
		f.Ternaries = append(f.Ternaries, b.text(n))
		b.collectChildren(n, f)
	case "lambda":
		f.Lambdas = append(f.Lambdas, b.buildLambda(n))
		b.collectChildren(n, f)
	case "type":
		f.Types = append(f.Types, b.text(n))
	default:
		b.collectChildren(n, f)
	}
}

func (b *FragmentBuilder) collectChildren(n *sitter.Node, f *fragment.Fragment) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.collect(n.NamedChild(i), f)
	}
}

func (b *FragmentBuilder) collectInterpolations(n *sitter.Node, f *fragment.Fragment) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "interpolation":
			b.collectChildren(child, f)
		case "string":
			f.StringLiterals = append(f.StringLiterals, b.text(child))
			b.collectInterpolations(child, f)
		}
	}
}

// collectCall records a call as an invocation, or as an object creation
// when the callee is capitalized or a collection constructor
func (b *FragmentBuilder) collectCall(n *sitter.Node, f *fragment.Fragment) {
	function := n.ChildByFieldName("function")
	arguments := n.ChildByFieldName("arguments")
	var args []string
	if arguments != nil {
		if arguments.Type() == "generator_expression" {
			args = []string{b.text(arguments)}
		} else {
			args = b.namedTexts(arguments)
		}
	}

	name, expression := "", ""
	switch function.Type() {
	case "identifier":
		name = b.text(function)
	case "attribute":
		if attr := function.ChildByFieldName("attribute"); attr != nil {
			name = b.text(attr)
		}
		if object := function.ChildByFieldName("object"); object != nil {
			expression = b.text(object)
			b.collect(object, f)
		}
	default:
		name = b.text(function)
		b.collect(function, f)
	}

	if isCreation(name) {
		typeName := name
		if expression != "" {
			typeName = expression + "." + name
		}
		f.Creations = append(f.Creations, &fragment.ObjectCreation{
			Type:      typeName,
			Arguments: args,
			Text:      b.text(n),
		})
	} else {
		f.Invocations = append(f.Invocations, &fragment.Invocation{
			Name:       name,
			Expression: expression,
			Arguments:  args,
			Text:       b.text(n),
		})
	}
	if arguments != nil {
		b.collectChildren(arguments, f)
	}
}

func (b *FragmentBuilder) buildLambda(n *sitter.Node) *fragment.Lambda {
	lambda := &fragment.Lambda{Text: b.text(n)}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() == "identifier" {
				lambda.Parameters = append(lambda.Parameters, b.text(p))
			} else if name := p.ChildByFieldName("name"); name != nil {
				lambda.Parameters = append(lambda.Parameters, b.text(name))
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		leaf := fragment.NewLeaf(fragment.KindLambdaBody, b.text(body)+"\n")
		leaf.Expression = b.text(body)
		leaf.Location = b.getLocation(body)
		b.collect(body, leaf)
		b.finish(leaf)
		lambda.Body = fragment.NewBody(leaf)
	}
	return lambda
}

// finish removes duplicate elements, keeping first occurrences
func (b *FragmentBuilder) finish(f *fragment.Fragment) {
	f.Variables = unique(f.Variables)
	f.StringLiterals = unique(f.StringLiterals)
	f.NumberLiterals = unique(f.NumberLiterals)
	f.BooleanLiterals = unique(f.BooleanLiterals)
	f.NullLiterals = unique(f.NullLiterals)
	f.Types = unique(f.Types)
	f.InfixOperators = unique(f.InfixOperators)
	f.ArrayAccesses = unique(f.ArrayAccesses)
	f.PrefixExpressions = unique(f.PrefixExpressions)
	f.Ternaries = unique(f.Ternaries)
}

func (b *FragmentBuilder) namedTexts(n *sitter.Node) []string {
	var texts []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if !isTrivia(child) {
			texts = append(texts, b.text(child))
		}
	}
	return texts
}

func (b *FragmentBuilder) text(n *sitter.Node) string {
	return similarity.NormalizeStatement(n.Content(b.source))
}

func (b *FragmentBuilder) getLocation(n *sitter.Node) fragment.Location {
	return fragment.Location{
		File:      b.file,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

func isSelfChain(b *FragmentBuilder, n *sitter.Node) bool {
	for n != nil && n.Type() == "attribute" {
		n = n.ChildByFieldName("object")
	}
	if n == nil || n.Type() != "identifier" {
		return false
	}
	name := b.text(n)
	return name == "self" || name == "cls"
}

// blockOf returns the statement block of a clause
func blockOf(n *sitter.Node) *sitter.Node {
	for _, field := range []string{"body", "consequence"} {
		if block := n.ChildByFieldName(field); block != nil {
			return block
		}
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if child := n.NamedChild(i); child.Type() == "block" {
			return child
		}
	}
	return nil
}

// aliasTarget unwraps an as_pattern_target to the bound expression
func aliasTarget(n *sitter.Node) *sitter.Node {
	if n.Type() == "as_pattern_target" && n.NamedChildCount() > 0 {
		return n.NamedChild(0)
	}
	return n
}

func isCreation(name string) bool {
	if collectionConstructors[name] {
		return true
	}
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// isTrivia checks if a node is trivia (comments, whitespace)
func isTrivia(n *sitter.Node) bool {
	t := n.Type()
	return t == "comment" || t == "line_continuation"
}

func unique(items []string) []string {
	if len(items) < 2 {
		return items
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
