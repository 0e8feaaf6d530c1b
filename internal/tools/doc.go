// Package tools provides host runtime helpers shared by the imaging backends.
//
// Ownership boundary:
// - external command execution
//
// - exit status normalization
package tools
