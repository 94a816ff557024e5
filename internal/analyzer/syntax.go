package analyzer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// tree-sitter-javascript node types the rules match on.
const (
	nodeIdentifier         = "identifier"
	nodeShorthandProperty  = "shorthand_property_identifier"
	nodeCall               = "call_expression"
	nodeNew                = "new_expression"
	nodeMember             = "member_expression"
	nodeSubscript          = "subscript_expression"
	nodeArguments          = "arguments"
	nodeString             = "string"
	nodeTemplateString     = "template_string"
	nodeTemplateSubst      = "template_substitution"
	nodeVariableDeclarator = "variable_declarator"
	nodeAssignment         = "assignment_expression"
	nodeAugmentedAssign    = "augmented_assignment_expression"
	nodeAssignmentPattern  = "assignment_pattern"
	nodeReturn             = "return_statement"
	nodeBinary             = "binary_expression"
	nodeTernary            = "ternary_expression"
	nodeArray              = "array"
	nodePair               = "pair"
	nodeSpread             = "spread_element"
	nodeArrow              = "arrow_function"
	nodeSequence           = "sequence_expression"
	nodeParenthesized      = "parenthesized_expression"
	nodeComment            = "comment"
)

// ref is a node together with its effective parent. Parentheses are
// transparent: parent is the nearest enclosing node that is not a
// parenthesized_expression, and outer is the outermost parenthesized wrapper
// of node (node itself when it is not wrapped), i.e. the child parent sees.
type ref struct {
	node   *sitter.Node
	parent *sitter.Node
	outer  *sitter.Node
}

// index groups the nodes the rules look at, each list in source order.
type index struct {
	calls      []ref // call_expression
	constructs []ref // new_expression
	accesses   []ref // member_expression and subscript_expression
	idents     []ref // identifier and shorthand_property_identifier
}

func buildIndex(t *Tree) *index {
	idx := &index{}
	var walk func(n, parent, outer *sitter.Node)
	walk = func(n, parent, outer *sitter.Node) {
		r := ref{node: n, parent: parent, outer: outer}
		switch n.Type() {
		case nodeCall:
			idx.calls = append(idx.calls, r)
		case nodeNew:
			idx.constructs = append(idx.constructs, r)
		case nodeMember, nodeSubscript:
			idx.accesses = append(idx.accesses, r)
		case nodeIdentifier, nodeShorthandProperty:
			idx.idents = append(idx.idents, r)
		}
		paren := n.Type() == nodeParenthesized
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if paren {
				walk(c, parent, outer)
			} else {
				walk(c, n, c)
			}
		}
	}
	walk(t.root, nil, t.root)
	return idx
}

// sameNode compares two nodes of the same tree.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// isField reports whether child is the parent's named field.
func isField(parent *sitter.Node, field string, child *sitter.Node) bool {
	return sameNode(parent.ChildByFieldName(field), child)
}

// unparen strips enclosing parentheses: ((require)) is require.
func unparen(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == nodeParenthesized {
		inner := firstNamed(n)
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}

// isBareIdentifier reports whether n, parentheses aside, is the plain identifier name.
func (t *Tree) isBareIdentifier(n *sitter.Node, name string) bool {
	n = unparen(n)
	return n != nil && n.Type() == nodeIdentifier && t.text(n) == name
}

// firstArgument returns the first argument of a call or new expression. A
// tagged template (require`fs`) has the template itself as its argument.
func firstArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	if args.Type() != nodeArguments {
		return args
	}
	return unparen(firstNamed(args))
}

func firstNamed(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != nodeComment {
			return c
		}
	}
	return nil
}

// literalString statically resolves a string literal, a template literal without
// substitutions, or a template literal whose single substitution is itself a
// string literal.
func (t *Tree) literalString(n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case nodeString:
		raw := t.text(n)
		if len(raw) < 2 {
			return "", false
		}
		return unescapeJS(raw[1 : len(raw)-1]), true
	case nodeTemplateString:
		return t.templateString(n)
	default:
		return "", false
	}
}

func (t *Tree) templateString(n *sitter.Node) (string, bool) {
	start, end := n.StartByte()+1, n.EndByte()-1
	if end < start {
		return "", false
	}

	var subst []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == nodeTemplateSubst {
			subst = append(subst, c)
		}
	}

	switch len(subst) {
	case 0:
		return unescapeJS(string(t.source[start:end])), true
	case 1:
		inner, ok := t.literalString(firstNamed(subst[0]))
		if !ok || firstNamed(subst[0]).Type() != nodeString {
			return "", false
		}
		prefix := unescapeJS(string(t.source[start:subst[0].StartByte()]))
		suffix := unescapeJS(string(t.source[subst[0].EndByte():end]))
		return prefix + inner + suffix, true
	default:
		return "", false
	}
}

// propertyName resolves the accessed property of a member or subscript
// expression. Dot access always resolves; computed access resolves like a
// require argument.
func (t *Tree) propertyName(access *sitter.Node) (string, bool) {
	if access.Type() == nodeMember {
		prop := access.ChildByFieldName("property")
		if prop == nil {
			return "", false
		}
		return t.text(prop), true
	}
	return t.literalString(unparen(access.ChildByFieldName("index")))
}

// span converts the node position to a SourceSpan.
func span(n *sitter.Node) SourceSpan {
	if n == nil {
		return SourceSpan{}
	}
	start, end := n.StartPoint(), n.EndPoint()
	return SourceSpan{
		LineStart: int(start.Row) + 1,
		LineEnd:   int(end.Row) + 1,
		ColStart:  int(start.Column),
		ColEnd:    int(end.Column),
	}
}

const snippetLimit = 80

// snippet returns the first line of the node text, truncated.
func (t *Tree) snippet(n *sitter.Node) string {
	s := t.text(n)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	if len(s) > snippetLimit {
		cut := snippetLimit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "…"
	}
	return s
}

// unescapeJS decodes the escape sequences of a JavaScript string body.
// Unknown escapes yield the escaped character, as in JavaScript.
func unescapeJS(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'x':
			if r, ok := parseHex(s, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte(e)
			}
		case 'u':
			if i+1 < len(s) && s[i+1] == '{' {
				if j := strings.IndexByte(s[i+1:], '}'); j > 1 {
					if r, ok := parseHex(s, i+2, j-1); ok {
						b.WriteRune(r)
						i += j + 1
						continue
					}
				}
				b.WriteByte(e)
			} else if r, ok := parseHex(s, i+1, 4); ok {
				b.WriteRune(r)
				i += 4
			} else {
				b.WriteByte(e)
			}
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

func parseHex(s string, from, n int) (rune, bool) {
	if from+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[from:from+n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
