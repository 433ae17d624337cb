//go:build !(sqlite_vec && cgo)

package chunkstore

import (
	_ "modernc.org/sqlite"
)

func init() {
	sqlDriverName = "sqlite"
}
