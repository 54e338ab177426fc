// Package expect compiles operator-supplied CEL expressions that turn a raw
// probe response or document into a pass/fail verdict, for example
//
//	status == 200 && json.status == "ok"
//	exists && has(doc.embedding)
package expect
