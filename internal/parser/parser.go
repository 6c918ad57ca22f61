package parser

import (
	"context"
	"errors"
	"fmt"
	"io"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is wrapped by parse errors caused by invalid source
var ErrSyntax = errors.New("syntax error")

// Parser provides Python code parsing capabilities using tree-sitter.
// A Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// New creates a new Parser instance with Python grammar
func New() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Parser{
		parser: parser,
	}
}

// ParseResult represents the result of parsing Python code
type ParseResult struct {
	Tree       *sitter.Tree
	RootNode   *sitter.Node
	SourceCode []byte
}

// Parse parses Python source code and returns the syntax tree
func (p *Parser) Parse(ctx context.Context, source []byte) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		line := firstErrorLine(rootNode)
		tree.Close()
		return nil, fmt.Errorf("%w at line %d", ErrSyntax, line)
	}

	return &ParseResult{
		Tree:       tree,
		RootNode:   rootNode,
		SourceCode: source,
	}, nil
}

// ParseFile parses a Python file from a reader
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	source, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	return p.Parse(ctx, source)
}

// WalkTree traverses the tree and calls the visitor function for each node
func WalkTree(node *sitter.Node, visitor func(*sitter.Node) error) error {
	if err := visitor(node); err != nil {
		return err
	}

	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if err := WalkTree(child, visitor); err != nil {
			return err
		}
	}

	return nil
}

var errStopWalk = errors.New("stop")

// firstErrorLine returns the 1-based line of the first error or missing node
func firstErrorLine(root *sitter.Node) int {
	line := int(root.StartPoint().Row) + 1
	_ = WalkTree(root, func(n *sitter.Node) error {
		if n.IsError() || n.IsMissing() {
			line = int(n.StartPoint().Row) + 1
			return errStopWalk
		}
		return nil
	})
	return line
}
