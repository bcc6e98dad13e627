// Package gitindex decodes the binary .git/index file.
//
// Versions 2, 3 and 4 are supported. Extension records after the entry list
// are ignored. A parse either succeeds completely or returns no entries.
package gitindex
