package expr

// Walk visits every node reachable from roots exactly once, operands before
// the nodes that use them. Returning false from visit stops the walk.
func Walk(roots []Node, visit func(Node) bool) {
	seen := make(map[Node]struct{})
	var walk func(n Node) bool
	walk = func(n Node) bool {
		if _, ok := seen[n]; ok {
			return true
		}
		seen[n] = struct{}{}
		for _, in := range n.Inputs() {
			if !walk(in) {
				return false
			}
		}
		return visit(n)
	}
	for _, r := range roots {
		if r == nil {
			continue
		}
		if !walk(r) {
			return
		}
	}
}

// Topo returns every node reachable from roots in dependency order.
func Topo(roots ...Node) []Node {
	var out []Node
	Walk(roots, func(n Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Collect returns the reachable nodes of concrete type T in dependency
// order.
func Collect[T Node](roots ...Node) []T {
	var out []T
	Walk(roots, func(n Node) bool {
		if t, ok := n.(T); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}

// FreeSymbols returns the symbols the roots depend on.
func FreeSymbols(roots ...Node) []*Symbol {
	return Collect[*Symbol](roots...)
}

// IsLeaf reports whether n has no operands.
func IsLeaf(n Node) bool {
	return len(n.Inputs()) == 0
}
