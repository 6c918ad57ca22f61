package fragment

// Kind classifies a statement fragment
type Kind int

const (
	// KindBlock is the root of a body or a bare block wrapper
	KindBlock Kind = iota
	// Leaf statements
	KindExpression
	KindAssignment
	KindVariableDeclaration
	KindReturn
	KindRaise
	KindPass
	KindBreak
	KindContinue
	KindAssert
	KindDelete
	KindGlobal
	KindImport
	KindDefinition
	KindLambdaBody
	// Composite statements
	KindIf
	KindElif
	KindElse
	KindFor
	KindWhile
	KindTry
	KindExcept
	KindFinally
	KindWith
	KindMatch
	KindCase
)

var kindNames = map[Kind]string{
	KindBlock:               "block",
	KindExpression:          "expression",
	KindAssignment:          "assignment",
	KindVariableDeclaration: "variable_declaration",
	KindReturn:              "return",
	KindRaise:               "raise",
	KindPass:                "pass",
	KindBreak:               "break",
	KindContinue:            "continue",
	KindAssert:              "assert",
	KindDelete:              "delete",
	KindGlobal:              "global",
	KindImport:              "import",
	KindDefinition:          "definition",
	KindLambdaBody:          "lambda_body",
	KindIf:                  "if",
	KindElif:                "elif",
	KindElse:                "else",
	KindFor:                 "for",
	KindWhile:               "while",
	KindTry:                 "try",
	KindExcept:              "except",
	KindFinally:             "finally",
	KindWith:                "with",
	KindMatch:               "match",
	KindCase:                "case",
}

// String returns string representation of Kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsComposite returns true for kinds that own child statements
func (k Kind) IsComposite() bool {
	switch k {
	case KindBlock, KindIf, KindElif, KindElse, KindFor, KindWhile, KindTry,
		KindExcept, KindFinally, KindWith, KindMatch, KindCase:
		return true
	default:
		return false
	}
}

// IsConditional returns true for composites guarded by a boolean condition
func (k Kind) IsConditional() bool {
	return k == KindIf || k == KindElif || k == KindWhile
}

// IsBlockLike returns true for composites that carry no expression of their own.
// They are excluded from mapping counts the same way bare blocks are.
func (k Kind) IsBlockLike() bool {
	switch k {
	case KindBlock, KindElse, KindTry, KindFinally:
		return true
	default:
		return false
	}
}

// KindFromKeyword maps a compound statement keyword to its Kind
func KindFromKeyword(keyword string) (Kind, bool) {
	switch keyword {
	case "if":
		return KindIf, true
	case "elif":
		return KindElif, true
	case "else":
		return KindElse, true
	case "for", "async for":
		return KindFor, true
	case "while":
		return KindWhile, true
	case "try":
		return KindTry, true
	case "except", "except*":
		return KindExcept, true
	case "finally":
		return KindFinally, true
	case "with", "async with":
		return KindWith, true
	case "match":
		return KindMatch, true
	case "case":
		return KindCase, true
	}
	return KindBlock, false
}
