package memory

import (
	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/service/closure"
	"github.com/tinoosan/treasury/internal/service/importer"
	"github.com/tinoosan/treasury/internal/service/movement"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ closure.Repo          = (*Store)(nil)
	_ closure.Writer        = (*Store)(nil)
	_ closure.PeriodLocker  = (*Store)(nil)
	_ movement.Repo         = (*Store)(nil)
	_ movement.Writer       = (*Store)(nil)
	_ movement.PeriodLocker = (*Store)(nil)
	_ importer.Repo         = (*Store)(nil)
	_ importer.Writer       = (*Store)(nil)
	_ importer.PeriodLocker = (*Store)(nil)
	_ audit.Recorder        = (*Store)(nil)
)
