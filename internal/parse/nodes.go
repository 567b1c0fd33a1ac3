package parse

// tree-sitter-kotlin node types.
const (
	annotatedLambdaNode         = "annotated_lambda"
	annotationNode              = "annotation"
	callExpressionNode          = "call_expression"
	callSuffixNode              = "call_suffix"
	classBodyNode               = "class_body"
	classDeclarationNode        = "class_declaration"
	companionObjectNode         = "companion_object"
	constructorInvocationNode   = "constructor_invocation"
	enumClassBodyNode           = "enum_class_body"
	functionBodyNode            = "function_body"
	functionDeclarationNode     = "function_declaration"
	functionValueParametersNode = "function_value_parameters"
	identifierNode              = "identifier"
	importAliasNode             = "import_alias"
	importHeaderNode            = "import_header"
	importListNode              = "import_list"
	lambdaLiteralNode           = "lambda_literal"
	modifiersNode               = "modifiers"
	navigationExpressionNode    = "navigation_expression"
	navigationSuffixNode        = "navigation_suffix"
	objectDeclarationNode       = "object_declaration"
	packageHeaderNode           = "package_header"
	parameterNode               = "parameter"
	propertyDeclarationNode     = "property_declaration"
	simpleIdentifierNode        = "simple_identifier"
	typeIdentifierNode          = "type_identifier"
	userTypeNode                = "user_type"
	valueArgumentNode           = "value_argument"
	valueArgumentsNode          = "value_arguments"
	variableDeclarationNode     = "variable_declaration"
	wildcardImportNode          = "wildcard_import"
)

var typeNodes = map[string]struct{}{
	"user_type":          {},
	"nullable_type":      {},
	"parenthesized_type": {},
	"function_type":      {},
	"non_nullable_type":  {},
}

// Grammar versions disagree on the string literal node name.
var stringNodes = map[string]struct{}{
	"string_literal":            {},
	"line_string_literal":       {},
	"multi_line_string_literal": {},
	"multiline_string_literal":  {},
}

func isType(typ string) bool {
	_, ok := typeNodes[typ]
	return ok
}

func isStringLiteral(typ string) bool {
	_, ok := stringNodes[typ]
	return ok
}
