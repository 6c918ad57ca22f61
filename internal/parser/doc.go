// Package parser turns Python source into the statement model used for
// refactoring detection.
//
// Parsing is done with tree-sitter. ModelBuilder walks the syntax tree of a
// module and produces classes, functions and methods; FragmentBuilder turns
// each function body into a tree of statement fragments with the variables,
// calls, object creations and literals every statement references.
//
// Basic usage:
//
//	module, err := parser.ParseModule(ctx, source, "pkg/service.py")
//	if err != nil {
//	    // Handle parsing error
//	}
//	for _, op := range module.AllOperations() {
//	    // op.Body is the statement tree
//	}
package parser
