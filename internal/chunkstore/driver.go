package chunkstore

// sqlDriverName names the database/sql driver SQLStore opens against. It is
// set by exactly one of driver_default.go (pure-Go modernc.org/sqlite,
// always compiled) or driver_vec.go (cgo-accelerated mattn/go-sqlite3 with
// the real sqlite-vec extension, compiled only under the sqlite_vec build
// tag), mirroring the teacher's init_vec.go/vec_compat.go dual-driver split
// in internal/store.
var sqlDriverName = "sqlite"
