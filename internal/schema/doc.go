// Package schema defines the runtime record structure: fields, dependencies,
// relationships and schema versions, plus loading and integrity checks.
//
// A SchemaDefinition is authored as YAML or JSON:
//
//	id: collections-call
//	version: 2.0.0
//	businessContext: Debt collection call review
//	fields:
//	  - id: amount
//	    name: amount
//	    type: number
//	    semanticRole: metric
//	    required: true
//	  - id: approvalNote
//	    name: approvalNote
//	    type: string
//	    dependsOn: {fieldId: amount, operator: greaterThan, value: 1000}
//	    dependsOnBehavior: require
//	relationships:
//	  - id: risk
//	    type: complex
//	    involvedFields: [daysPastDue, dueAmount]
//	    formula: daysPastDue * dueAmount / 1000
//	    outputType: number
//
// Key types:
//   - SchemaDefinition: versioned contract for one record shape
//   - FieldDefinition: one addressable slot, optionally gated by a FieldDependency
//   - RelationshipDefinition: simple (declared) or complex (formula-backed)
//   - Graph: dependency adjacency by field id, built once with cycle detection
//
// Check reports dangling references and dependency cycles; a schema with
// error diagnostics must be rejected before use.
package schema
