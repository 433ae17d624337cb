//go:build sqlite_vec && cgo

package chunkstore

import (
	_ "github.com/mattn/go-sqlite3"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// This file mirrors the teacher's internal/store/init_vec.go: under the
// sqlite_vec build tag, the embedding-cache table gets the cgo-accelerated
// sqlite-vec extension auto-loaded against the mattn driver instead of the
// default pure-Go modernc.org/sqlite path.
func init() {
	vec.Auto()
	sqlDriverName = "sqlite3"
}
