package analyzer

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
)

// RefactoringType identifies a detected refactoring
type RefactoringType int

const (
	RenameMethod RefactoringType = iota + 1
	MoveOperation
	ExtractOperation
	InlineOperation
	RenameVariable
	RenameParameter
	ChangeVariableType
	ChangeParameterType
	ChangeReturnType
	MergeVariable
	SplitVariable
	MergeParameter
	SplitParameter
	RenameInvocation
	RenameAttribute
)

// String returns the display name of the refactoring type
func (t RefactoringType) String() string {
	switch t {
	case RenameMethod:
		return "Rename Method"
	case MoveOperation:
		return "Move Method"
	case ExtractOperation:
		return "Extract Method"
	case InlineOperation:
		return "Inline Method"
	case RenameVariable:
		return "Rename Variable"
	case RenameParameter:
		return "Rename Parameter"
	case ChangeVariableType:
		return "Change Variable Type"
	case ChangeParameterType:
		return "Change Parameter Type"
	case ChangeReturnType:
		return "Change Return Type"
	case MergeVariable:
		return "Merge Variable"
	case SplitVariable:
		return "Split Variable"
	case MergeParameter:
		return "Merge Parameter"
	case SplitParameter:
		return "Split Parameter"
	case RenameInvocation:
		return "Rename Invocation"
	case RenameAttribute:
		return "Rename Attribute"
	default:
		return "Unknown"
	}
}

// IsOperationLevel reports whether the refactoring relates two operations
func (t RefactoringType) IsOperationLevel() bool {
	switch t {
	case RenameMethod, MoveOperation, ExtractOperation, InlineOperation:
		return true
	}
	return false
}

// Refactoring is a judgment derived from finished mappers. Before and After
// name what changed (variables, types or operation signatures).
type Refactoring struct {
	Type       RefactoringType
	Before     string
	After      string
	Operation1 *fragment.Operation
	Operation2 *fragment.Operation

	// Mappings and Replacements justify the judgment
	Mappings     []*Mapping
	Replacements []*replacement.Replacement
}

// Key identifies the refactoring for deduplication
func (r *Refactoring) Key() string {
	return strings.Join([]string{
		r.Type.String(), r.Before, r.After, operationKey(r.Operation1), operationKey(r.Operation2),
	}, "|")
}

// String describes the refactoring in one line
func (r *Refactoring) String() string {
	switch r.Type {
	case RenameMethod, MoveOperation:
		if sameModule(r.Operation1, r.Operation2) {
			return fmt.Sprintf("%s %s to %s in %s", r.Type, r.Operation1, r.Operation2, r.Operation2.ModulePath)
		}
		return fmt.Sprintf("%s %s to %s", r.Type, describeOperation(r.Operation1), describeOperation(r.Operation2))
	case ExtractOperation:
		return fmt.Sprintf("%s %s extracted from %s", r.Type, describeOperation(r.Operation2), describeOperation(r.Operation1))
	case InlineOperation:
		return fmt.Sprintf("%s %s inlined to %s", r.Type, describeOperation(r.Operation1), describeOperation(r.Operation2))
	}
	return fmt.Sprintf("%s %s to %s in %s", r.Type, r.Before, r.After, describeOperation(r.Operation2))
}

func operationKey(op *fragment.Operation) string {
	if op == nil {
		return ""
	}
	return op.Key()
}

func sameModule(op1, op2 *fragment.Operation) bool {
	return op1 != nil && op2 != nil && op1.ModulePath != "" && op1.ModulePath == op2.ModulePath
}

func describeOperation(op *fragment.Operation) string {
	if op == nil {
		return "<none>"
	}
	if op.ModulePath == "" {
		return op.String()
	}
	return op.String() + " in " + op.ModulePath
}

// refactoringSet keeps refactorings unique and in insertion order
type refactoringSet struct {
	items []*Refactoring
	seen  map[string]bool
}

func newRefactoringSet() *refactoringSet {
	return &refactoringSet{seen: make(map[string]bool)}
}

func (s *refactoringSet) add(refs ...*Refactoring) {
	for _, r := range refs {
		key := r.Key()
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.items = append(s.items, r)
	}
}
