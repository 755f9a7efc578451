package ast

// Normalize applies the post-parse structural invariants:
//
//   - nested same-type compounds are flattened (an And never directly
//     contains an unnegated And, likewise for Or)
//   - empty children are dropped
//   - a compound with exactly one child collapses to that child, with
//     the compound's negation folded into the child
//   - an empty compound collapses to nil ("no filter")
//
// Negated compounds are not flattened into their parent: -(a b) is a
// group whose negation applies to the whole conjunction, and the plan
// builder distributes it relative to the enclosing context.
//
// Normalize is idempotent.
func Normalize(n Node) Node {
	switch node := n.(type) {
	case nil:
		return nil
	case *And:
		return normalizeCompound(node, node.Children, node.Neg)
	case *Or:
		return normalizeCompound(node, node.Children, node.Neg)
	default:
		return n
	}
}

// normalizeCompound normalizes the children of an And or Or node and
// applies the flatten/collapse rules. parent identifies the compound
// type; negated is the compound's own negation flag.
func normalizeCompound(parent Node, children []Node, negated bool) Node {
	flat := make([]Node, 0, len(children))
	for _, child := range children {
		child = Normalize(child)
		if child == nil {
			continue
		}
		// Flatten same-type unnegated compounds.
		if !child.Negated() && sameCompoundType(parent, child) {
			switch c := child.(type) {
			case *And:
				flat = append(flat, c.Children...)
			case *Or:
				flat = append(flat, c.Children...)
			}
			continue
		}
		flat = append(flat, child)
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		only := flat[0]
		if negated {
			only.SetNegated(!only.Negated())
		}
		return only
	}

	switch parent.(type) {
	case *And:
		return &And{negatable: negatable{Neg: negated}, Children: flat}
	default:
		return &Or{negatable: negatable{Neg: negated}, Children: flat}
	}
}

// sameCompoundType reports whether parent and child are both And or both Or.
func sameCompoundType(parent, child Node) bool {
	switch parent.(type) {
	case *And:
		_, ok := child.(*And)
		return ok
	case *Or:
		_, ok := child.(*Or)
		return ok
	}
	return false
}
