// Package formula implements the restricted expression language used by
// complex relationships.
//
// Expressions are parsed once into an AST and evaluated by interpretation
// against an explicit environment of field values and named constants. The
// language has no statements, loops, assignment or I/O.
//
// Grammar (lowest to highest precedence):
//
//	expr    = or
//	or      = and { "||" and }
//	and     = eq { "&&" eq }
//	eq      = cmp { ("==" | "!=") cmp }
//	cmp     = add { ("<" | "<=" | ">" | ">=") add }
//	add     = mul { ("+" | "-") mul }
//	mul     = unary { ("*" | "/" | "%") unary }
//	unary   = ("-" | "!") unary | primary
//	primary = number | string | "true" | "false" | "null"
//	        | ident | "[" field name "]" | ident "(" [expr { "," expr }] ")"
//	        | "(" expr ")"
//
// Field references are bare identifiers (daysPastDue) or bracketed names
// ([Due Amount]). Callable functions are a fixed, pure set: abs, min, max,
// round, floor, ceil, if, coalesce, len, lower and upper.
package formula
