package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// rule is a pure detection function over one parsed file.
type rule struct {
	name  string
	match func(t *Tree, tables Tables, file string) []Finding
}

func newFinding(t *Tree, c Category, subject, file string, n *sitter.Node) Finding {
	return Finding{
		Category: c,
		Subject:  subject,
		Severity: c.Severity(),
		File:     file,
		Location: span(n),
		Snippet:  t.snippet(n),
	}
}

// defaultRules is the fixed evaluation order.
func defaultRules() []rule {
	return []rule{
		{"required-modules", matchRequiredModules},
		{"dynamic-require", matchDynamicRequire},
		{"eval-call", matchEvalCall},
		{"function-constructor", matchFunctionConstructor},
		{"obfuscated-require", obfuscatedIdentifier("require", CategoryObfuscatedRequireIdentifier)},
		{"obfuscated-eval", obfuscatedIdentifier("eval", CategoryObfuscatedEvalIdentifier)},
		{"obfuscated-function", obfuscatedIdentifier("Function", CategoryObfuscatedFunctionIdentifier)},
		{"require-property", propertyAccessOf("require", CategoryRequirePropertyAccess)},
		{"eval-property", propertyAccessOf("eval", CategoryEvalPropertyAccess)},
		{"function-property", propertyAccessOf("Function", CategoryFunctionPropertyAccess)},
		{"process-env", specificPropertyAccess("process", "env", CategoryProcessEnvAccess)},
		{"obscured-process-property", obscuredProperty("process", CategoryObscuredProcessProperty)},
		{"obscured-global-property", obscuredProperty("global", CategoryObscuredGlobalProperty)},
		{"obscured-process-object", obfuscatedIdentifier("process", CategoryObscuredProcessObject)},
		{"global-property", matchGlobalProperty},
	}
}

// requireCalls yields every call whose callee is the bare identifier require.
func requireCalls(t *Tree) []*sitter.Node {
	var out []*sitter.Node
	for _, r := range t.index().calls {
		if t.isBareIdentifier(r.node.ChildByFieldName("function"), "require") {
			out = append(out, r.node)
		}
	}
	return out
}

func matchRequiredModules(t *Tree, tables Tables, file string) []Finding {
	var findings []Finding
	for _, call := range requireCalls(t) {
		name, ok := t.literalString(firstArgument(call))
		if !ok {
			continue
		}
		switch {
		case contains(tables.IOModules, name):
			findings = append(findings, newFinding(t, CategoryRequiredIOModule, name, file, call))
		case contains(tables.ExecutionModules, name):
			findings = append(findings, newFinding(t, CategoryArbitraryExecutionModule, name, file, call))
		}
	}
	return findings
}

func matchDynamicRequire(t *Tree, _ Tables, file string) []Finding {
	var findings []Finding
	for _, call := range requireCalls(t) {
		if _, ok := t.literalString(firstArgument(call)); !ok {
			findings = append(findings, newFinding(t, CategoryDynamicRequireArgument, "", file, call))
		}
	}
	return findings
}

func matchEvalCall(t *Tree, _ Tables, file string) []Finding {
	var findings []Finding
	for _, r := range t.index().calls {
		if t.isBareIdentifier(r.node.ChildByFieldName("function"), "eval") {
			findings = append(findings, newFinding(t, CategoryEvalCall, "", file, r.node))
		}
	}
	return findings
}

// matchFunctionConstructor matches Function(...) and new Function(...) in source order.
func matchFunctionConstructor(t *Tree, _ Tables, file string) []Finding {
	var nodes []*sitter.Node
	idx := t.index()
	calls, news := idx.calls, idx.constructs
	for len(calls) > 0 || len(news) > 0 {
		var next ref
		if len(news) == 0 || (len(calls) > 0 && calls[0].node.StartByte() <= news[0].node.StartByte()) {
			next, calls = calls[0], calls[1:]
			if t.isBareIdentifier(next.node.ChildByFieldName("function"), "Function") {
				nodes = append(nodes, next.node)
			}
			continue
		}
		next, news = news[0], news[1:]
		if t.isBareIdentifier(next.node.ChildByFieldName("constructor"), "Function") {
			nodes = append(nodes, next.node)
		}
	}

	findings := make([]Finding, 0, len(nodes))
	for _, n := range nodes {
		findings = append(findings, newFinding(t, CategoryFunctionConstructorUsage, "", file, n))
	}
	return findings
}

// obfuscatedIdentifier flags bare references to name that are used as a value
// rather than called: stored, passed, returned, or combined with other values.
func obfuscatedIdentifier(name string, c Category) func(*Tree, Tables, string) []Finding {
	return func(t *Tree, _ Tables, file string) []Finding {
		var findings []Finding
		for _, r := range t.index().idents {
			if t.text(r.node) != name || r.parent == nil {
				continue
			}
			if usedAsValue(t, r) {
				findings = append(findings, newFinding(t, c, name, file, r.node))
			}
		}
		return findings
	}
}

// usedAsValue reports whether the identifier's parent handles it as a plain
// value. Parentheses around the identifier do not change the answer.
func usedAsValue(t *Tree, r ref) bool {
	n, p := r.outer, r.parent
	if r.node.Type() == nodeShorthandProperty {
		// { require } stores the function in an object.
		return true
	}
	switch p.Type() {
	case nodeVariableDeclarator:
		return isField(p, "value", n)
	case nodeAssignment, nodeAugmentedAssign, nodeAssignmentPattern:
		return isField(p, "right", n)
	case nodeArguments, nodeReturn, nodeArray, nodeSpread, nodeSequence:
		return true
	case nodePair:
		return isField(p, "value", n)
	case nodeArrow:
		return isField(p, "body", n)
	case nodeTernary:
		return isField(p, "consequence", n) || isField(p, "alternative", n)
	case nodeBinary:
		op := p.ChildByFieldName("operator")
		if op == nil {
			return false
		}
		switch op.Type() {
		case "||", "&&", "??", "+":
			return true
		}
		return false
	default:
		return false
	}
}

// accessesOn yields member and subscript expressions whose object is the bare identifier obj.
func accessesOn(t *Tree, obj string) []*sitter.Node {
	var out []*sitter.Node
	for _, r := range t.index().accesses {
		if t.isBareIdentifier(r.node.ChildByFieldName("object"), obj) {
			out = append(out, r.node)
		}
	}
	return out
}

func propertyAccessOf(name string, c Category) func(*Tree, Tables, string) []Finding {
	return func(t *Tree, _ Tables, file string) []Finding {
		var findings []Finding
		for _, access := range accessesOn(t, name) {
			prop, _ := t.propertyName(access)
			findings = append(findings, newFinding(t, c, prop, file, access))
		}
		return findings
	}
}

func specificPropertyAccess(obj, prop string, c Category) func(*Tree, Tables, string) []Finding {
	return func(t *Tree, _ Tables, file string) []Finding {
		var findings []Finding
		for _, access := range accessesOn(t, obj) {
			if name, ok := t.propertyName(access); ok && name == prop {
				findings = append(findings, newFinding(t, c, prop, file, access))
			}
		}
		return findings
	}
}

func obscuredProperty(obj string, c Category) func(*Tree, Tables, string) []Finding {
	return func(t *Tree, _ Tables, file string) []Finding {
		var findings []Finding
		for _, access := range accessesOn(t, obj) {
			if _, ok := t.propertyName(access); !ok {
				findings = append(findings, newFinding(t, c, "", file, access))
			}
		}
		return findings
	}
}

func matchGlobalProperty(t *Tree, tables Tables, file string) []Finding {
	var findings []Finding
	for _, access := range accessesOn(t, "global") {
		if name, ok := t.propertyName(access); ok && contains(tables.GlobalWatchList, name) {
			findings = append(findings, newFinding(t, CategoryAccessToGlobalProperty, name, file, access))
		}
	}
	return findings
}
