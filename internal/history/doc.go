// Package history remembers the last image viewed in each directory so the
// viewer can reopen a directory where the user left it.
//
// Entries live in a small SQLite database (modernc.org/sqlite, no cgo) at
// navigation.history_path. The schema is versioned; a mismatch is reported
// as ErrSchemaMismatch and is resolved by deleting the file.
package history
