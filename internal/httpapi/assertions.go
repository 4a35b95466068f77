package httpapi

import (
	"github.com/tinoosan/treasury/internal/storage/memory"
	"github.com/tinoosan/treasury/internal/storage/postgres"
)

// Compile-time interface assertions for the stores against HTTP API interfaces.
var (
	_ Reader       = (*memory.Store)(nil)
	_ ReadyChecker = (*memory.Store)(nil)
	_ Reader       = (*postgres.Store)(nil)
	_ ReadyChecker = (*postgres.Store)(nil)
)
