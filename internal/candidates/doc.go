// Package candidates checks that a fixed set of known candidate records is
// present in the document store, optionally asserting a CEL expectation over
// each record's fields.
package candidates
