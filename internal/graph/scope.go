package graph

// scope maps package names to the node visible under that name at one level
// of the lockfile tree.
type scope map[string]*Node

// scopeStack holds the active scopes, outermost (hoisted) first.
type scopeStack []scope

func (s *scopeStack) push(l scope) {
	*s = append(*s, l)
}

func (s *scopeStack) pop() {
	*s = (*s)[:len(*s)-1]
}

// lookup searches from the innermost scope outwards so closer installs shadow hoisted ones.
func (s scopeStack) lookup(name string) (*Node, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if n, ok := s[i][name]; ok {
			return n, true
		}
	}
	return nil, false
}
