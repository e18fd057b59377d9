// Package condition parses and evaluates the predicate expressions attached
// to statements, for example "resource.owner._id == user._id".
//
// Expressions are compiled into a small tree and evaluated against the
// request attributes. Nothing is ever executed dynamically. Every failure is
// reported as an evaluation error so the caller can treat the statement as
// non-matching.
package condition
