// Package all wires the built-in table stores into the storage registry.
// Import it for side effects only:
//
//	import _ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/all"
//
// after which storage.New accepts the kinds "ducklake", "postgres", "mssql",
// "mysql", "sqlite" and "memory". Binaries that need a subset can import individual
// backends instead.
package all

import (
	_ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/ducklake"
	_ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/memory"
	_ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/mssql"
	_ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/mysql"
	_ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/postgres"
	_ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/sqlite"
)
