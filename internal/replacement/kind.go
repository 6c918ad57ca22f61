package replacement

// Kind classifies one atomic divergence between two aligned fragments
type Kind int

const (
	VariableName Kind = iota
	Type
	MethodInvocation
	MethodInvocationName
	MethodInvocationArgument
	MethodInvocationExpression
	MethodInvocationNameAndArgument
	MethodInvocationArgumentWrapped
	MethodInvocationArgumentConcatenated
	MethodInvocationExpressionArgumentSwapped
	ClassInstanceCreation
	ClassInstanceCreationArgument
	ClassInstanceCreationReplacedWithMethodInvocation
	ArrayCreationReplacedWithDataStructureCreation
	BuilderReplacedWithClassInstanceCreation
	FieldAssignmentReplacedWithSetterMethodInvocation
	VariableReplacedWithMethodInvocation
	VariableReplacedWithArrayAccess
	VariableReplacedWithPrefixExpression
	VariableReplacedWithStringLiteral
	VariableReplacedWithNullLiteral
	VariableReplacedWithNumberLiteral
	ArrayAccessReplacedWithMethodInvocation
	StringLiteral
	NumberLiteral
	BooleanLiteral
	BooleanReplacedWithVariable
	InfixOperator
	InvertConditional
	MergeVariables
	SplitVariable
	Concatenation
	ConditionalExpression
)

var kindNames = map[Kind]string{
	VariableName:                                      "VARIABLE_NAME",
	Type:                                              "TYPE",
	MethodInvocation:                                  "METHOD_INVOCATION",
	MethodInvocationName:                              "METHOD_INVOCATION_NAME",
	MethodInvocationArgument:                          "METHOD_INVOCATION_ARGUMENT",
	MethodInvocationExpression:                        "METHOD_INVOCATION_EXPRESSION",
	MethodInvocationNameAndArgument:                   "METHOD_INVOCATION_NAME_AND_ARGUMENT",
	MethodInvocationArgumentWrapped:                   "METHOD_INVOCATION_ARGUMENT_WRAPPED",
	MethodInvocationArgumentConcatenated:              "METHOD_INVOCATION_ARGUMENT_CONCATENATED",
	MethodInvocationExpressionArgumentSwapped:         "METHOD_INVOCATION_EXPRESSION_ARGUMENT_SWAPPED",
	ClassInstanceCreation:                             "CLASS_INSTANCE_CREATION",
	ClassInstanceCreationArgument:                     "CLASS_INSTANCE_CREATION_ARGUMENT",
	ClassInstanceCreationReplacedWithMethodInvocation: "CLASS_INSTANCE_CREATION_REPLACED_WITH_METHOD_INVOCATION",
	ArrayCreationReplacedWithDataStructureCreation:    "ARRAY_CREATION_REPLACED_WITH_DATA_STRUCTURE_CREATION",
	BuilderReplacedWithClassInstanceCreation:          "BUILDER_REPLACED_WITH_CLASS_INSTANCE_CREATION",
	FieldAssignmentReplacedWithSetterMethodInvocation: "FIELD_ASSIGNMENT_REPLACED_WITH_SETTER_METHOD_INVOCATION",
	VariableReplacedWithMethodInvocation:              "VARIABLE_REPLACED_WITH_METHOD_INVOCATION",
	VariableReplacedWithArrayAccess:                   "VARIABLE_REPLACED_WITH_ARRAY_ACCESS",
	VariableReplacedWithPrefixExpression:              "VARIABLE_REPLACED_WITH_PREFIX_EXPRESSION",
	VariableReplacedWithStringLiteral:                 "VARIABLE_REPLACED_WITH_STRING_LITERAL",
	VariableReplacedWithNullLiteral:                   "VARIABLE_REPLACED_WITH_NULL_LITERAL",
	VariableReplacedWithNumberLiteral:                 "VARIABLE_REPLACED_WITH_NUMBER_LITERAL",
	ArrayAccessReplacedWithMethodInvocation:           "ARRAY_ACCESS_REPLACED_WITH_METHOD_INVOCATION",
	StringLiteral:                                     "STRING_LITERAL",
	NumberLiteral:                                     "NUMBER_LITERAL",
	BooleanLiteral:                                    "BOOLEAN_LITERAL",
	BooleanReplacedWithVariable:                       "BOOLEAN_REPLACED_WITH_VARIABLE",
	InfixOperator:                                     "INFIX_OPERATOR",
	InvertConditional:                                 "INVERT_CONDITIONAL",
	MergeVariables:                                    "MERGE_VARIABLES",
	SplitVariable:                                     "SPLIT_VARIABLE",
	Concatenation:                                     "CONCATENATION",
	ConditionalExpression:                             "CONDITIONAL_EXPRESSION",
}

// String returns the upper snake case name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsMethodInvocation reports whether the kind carries invocation payload
func (k Kind) IsMethodInvocation() bool {
	switch k {
	case MethodInvocation, MethodInvocationName, MethodInvocationArgument,
		MethodInvocationExpression, MethodInvocationNameAndArgument,
		MethodInvocationArgumentWrapped, MethodInvocationArgumentConcatenated,
		MethodInvocationExpressionArgumentSwapped:
		return true
	}
	return false
}

// IsLiteral reports whether the kind substitutes one literal for another
func (k Kind) IsLiteral() bool {
	switch k {
	case StringLiteral, NumberLiteral, BooleanLiteral:
		return true
	}
	return false
}
