// Package protocol owns the ANSI/NIST-ITL wire contract and lexing primitives.
//
// Ownership boundary:
// - record framing (declared lengths, separators, binary layouts)
// - field/sub-field/item splitting
// - structural parse errors
//
// Field semantics (integers, dates, enums) live in protocol/schema and the parser.
package protocol
