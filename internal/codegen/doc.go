// Package codegen turns reduced equations into routines: a descriptor of
// results and arguments, a compiled numeric callable, and Go or C source.
package codegen
