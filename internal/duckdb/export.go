package duckdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Export formats understood by ExportCounters.
const (
	FormatParquet = "parquet"
	FormatJSON    = "json"
)

// ExportCounters writes every stored month, oldest first, to dstPath.
// The JSON form is an array of {start_time, total} objects and can be fed
// back to the renderer as a counters file.
func (s *Store) ExportCounters(ctx context.Context, dstPath, format string) error {
	var opts string
	switch strings.ToLower(format) {
	case "", FormatParquet:
		opts = "(FORMAT PARQUET)"
	case FormatJSON:
		opts = "(FORMAT JSON, ARRAY true)"
	default:
		return fmt.Errorf("duckdb: unknown export format %q", format)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	// COPY takes no bind parameters for the target.
	target := strings.ReplaceAll(dstPath, "'", "''")
	query := fmt.Sprintf(`COPY (
		SELECT strftime(start_time, '%%Y-%%m-%%dT%%H:%%M:%%SZ') AS start_time, total
		FROM request_counters
		ORDER BY request_counters.start_time
	) TO '%s' %s`, target, opts)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("export counters: %w", err)
	}
	return nil
}
