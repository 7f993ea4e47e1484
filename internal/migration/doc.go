// Package migration carries records from one schema version to another.
//
// BuildConfig diffs two schema versions by field id and proposes fuzzy
// mappings for renamed fields. Fields the matcher cannot place with
// confidence are left unresolved: records holding values for them are not
// migrated until a mapping is supplied through Resolve, Drop or an override
// file. MigrateRecord and MigrateAll then rewrite records, stamping them with
// the target schema identity; records already stamped are left untouched.
package migration
