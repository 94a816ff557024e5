package analyzer

// Category tags the kind of pattern a finding matched.
type Category string

const (
	CategoryRequiredIOModule             Category = "RequiredIOModule"
	CategoryArbitraryExecutionModule     Category = "ArbitraryExecutionModule"
	CategoryDynamicRequireArgument       Category = "DynamicRequireArgument"
	CategoryEvalCall                     Category = "EvalCall"
	CategoryFunctionConstructorUsage     Category = "FunctionConstructorUsage"
	CategoryObfuscatedRequireIdentifier  Category = "ObfuscatedRequireIdentifier"
	CategoryObfuscatedEvalIdentifier     Category = "ObfuscatedEvalIdentifier"
	CategoryObfuscatedFunctionIdentifier Category = "ObfuscatedFunctionIdentifier"
	CategoryRequirePropertyAccess        Category = "RequirePropertyAccess"
	CategoryEvalPropertyAccess           Category = "EvalPropertyAccess"
	CategoryFunctionPropertyAccess       Category = "FunctionPropertyAccess"
	CategoryProcessEnvAccess             Category = "ProcessEnvAccess"
	CategoryObscuredProcessProperty      Category = "ObscuredProcessProperty"
	CategoryObscuredGlobalProperty       Category = "ObscuredGlobalProperty"
	CategoryObscuredProcessObject        Category = "ObscuredProcessObject"
	CategoryAccessToGlobalProperty       Category = "AccessToGlobalProperty"
	CategorySyntaxError                  Category = "SyntaxError"
)

// CategoryInfo describes a category for rule listings and reports.
type CategoryInfo struct {
	Category    Category
	Severity    Severity
	Description string
}

var categoryTable = []CategoryInfo{
	{CategoryRequiredIOModule, SeverityMedium, "require() of a network or filesystem module"},
	{CategoryArbitraryExecutionModule, SeverityHigh, "require() of a module that can execute arbitrary code"},
	{CategoryDynamicRequireArgument, SeverityHigh, "require() with a module name that is not a literal"},
	{CategoryEvalCall, SeverityHigh, "direct call to eval()"},
	{CategoryFunctionConstructorUsage, SeverityHigh, "code built at runtime with Function() or new Function()"},
	{CategoryObfuscatedRequireIdentifier, SeverityHigh, "require passed around as a value"},
	{CategoryObfuscatedEvalIdentifier, SeverityHigh, "eval passed around as a value"},
	{CategoryObfuscatedFunctionIdentifier, SeverityHigh, "Function passed around as a value"},
	{CategoryRequirePropertyAccess, SeverityLow, "property of require accessed (require.resolve, require.cache)"},
	{CategoryEvalPropertyAccess, SeverityMedium, "property of eval accessed (eval.call)"},
	{CategoryFunctionPropertyAccess, SeverityLow, "property of Function accessed (Function.prototype)"},
	{CategoryProcessEnvAccess, SeverityMedium, "environment variables read through process.env"},
	{CategoryObscuredProcessProperty, SeverityHigh, "process indexed with a computed key"},
	{CategoryObscuredGlobalProperty, SeverityHigh, "global indexed with a computed key"},
	{CategoryObscuredProcessObject, SeverityMedium, "process passed around as a value"},
	{CategoryAccessToGlobalProperty, SeverityHigh, "require, eval or Function reached through global"},
	{CategorySyntaxError, SeverityLow, "file could not be parsed, no other rule ran"},
}

var categoryIndex = func() map[Category]CategoryInfo {
	m := make(map[Category]CategoryInfo, len(categoryTable))
	for _, info := range categoryTable {
		m[info.Category] = info
	}
	return m
}()

// Categories lists every category in rule order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryTable))
	copy(out, categoryTable)
	return out
}

// Severity returns the fixed severity of the category. Unknown categories are low.
func (c Category) Severity() Severity {
	return categoryIndex[c].Severity
}

// Description returns a short explanation of the category.
func (c Category) Description() string {
	return categoryIndex[c].Description
}

// Known reports whether c is one of the defined categories.
func (c Category) Known() bool {
	_, ok := categoryIndex[c]
	return ok
}
