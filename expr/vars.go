package expr

// Vars returns the distinct variable names referenced by x, in first-use order.
func Vars(x Expression) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Expression)
	walk = func(x Expression) {
		switch ex := x.(type) {
		case Var:
			if !seen[ex.Name] {
				seen[ex.Name] = true
				names = append(names, ex.Name)
			}
		case Binary:
			walk(ex.Left)
			walk(ex.Right)
		case Negation:
			walk(ex.X)
		case Membership:
			walk(ex.Left)
		}
	}
	walk(x)
	return names
}
