// Package expr provides a small expression language for band and label
// conditions, rendered to the runtime's syntax.
//
// Expressions are immutable trees built with functions and methods instead of
// operators:
//
//	cond := expr.And(expr.V("ndvi").Gt(0.5), expr.V("evi").Lt(0.8))
//	cond.Render() // "((ndvi > 0.5) & (evi < 0.8))"
//
//	expr.V("class").In("Forest", "Water").Render()
//	// "class %in% c('Forest', 'Water')"
//
// Raw Go scalars next to a node are wrapped as literals. Mistakes (two raw
// scalars, an unsupported operand, the modulo operator) do not panic: they
// produce an invalid node, and Err on the enclosing tree reports the first
// problem. Always check Err before using Render.
//
// # Rule Lists
//
// ExpressionList is an ordered, named list of expressions, the form used by
// reclassification rules:
//
//	rules := expr.NewList().
//	    Add("Old_Deforestation", expr.V("mask").In("Deforestation_2018")).
//	    Add("Forest", expr.V("cube").Eq("Forest"))
//
// # DuckDB
//
// DuckDBEncoder renders the same trees as SQL so a condition can be evaluated
// locally against a materialized table (see package query).
package expr
