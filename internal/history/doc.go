// Package history archives finished batch runs in a SQLite database.
//
// Each run is stored under its batch ID together with the request settings
// and one row per job. The archive is write-once audit data for the
// `history` commands; it is never consulted to resume or skip work.
package history
