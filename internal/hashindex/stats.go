package hashindex

import (
	"context"
	"fmt"
)

// YearCount is the number of indexed files last modified in Year.
type YearCount struct {
	Year  string
	Files int
	Bytes int64
}

// Stats summarizes the index for `mediasort index stats`.
type Stats struct {
	Entries        int
	DistinctHashes int
	// DuplicateGroups counts hashes shared by more than one path.
	DuplicateGroups int
	// DuplicateFiles counts paths beyond the first in each duplicate group.
	DuplicateFiles int
	TotalBytes     int64
	Algorithms     map[string]int
	ByYear         []YearCount
}

// Stats computes index statistics.
func (idx *Index) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Algorithms: make(map[string]int)}

	row := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT file_hash), COALESCE(SUM(file_size), 0) FROM file_hashes`)
	if err := row.Scan(&stats.Entries, &stats.DistinctHashes, &stats.TotalBytes); err != nil {
		return stats, fmt.Errorf("index totals: %w", err)
	}

	row = idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(n - 1), 0)
         FROM (SELECT COUNT(*) AS n FROM file_hashes GROUP BY file_hash HAVING COUNT(*) > 1)`)
	if err := row.Scan(&stats.DuplicateGroups, &stats.DuplicateFiles); err != nil {
		return stats, fmt.Errorf("duplicate groups: %w", err)
	}

	rows, err := idx.db.QueryContext(ctx,
		`SELECT substr(file_hash, 1, instr(file_hash, ':') - 1) AS algo, COUNT(*)
         FROM file_hashes GROUP BY algo ORDER BY algo`)
	if err != nil {
		return stats, fmt.Errorf("algorithm distribution: %w", err)
	}
	for rows.Next() {
		var algo string
		var count int
		if err := rows.Scan(&algo, &count); err != nil {
			_ = rows.Close()
			return stats, fmt.Errorf("scan algorithm distribution: %w", err)
		}
		stats.Algorithms[algo] = count
	}
	if err := rows.Close(); err != nil {
		return stats, err
	}

	rows, err = idx.db.QueryContext(ctx,
		`SELECT strftime('%Y', last_modified / 1000000000, 'unixepoch') AS year,
                COUNT(*), COALESCE(SUM(file_size), 0)
         FROM file_hashes GROUP BY year ORDER BY year`)
	if err != nil {
		return stats, fmt.Errorf("year distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Files, &yc.Bytes); err != nil {
			return stats, fmt.Errorf("scan year distribution: %w", err)
		}
		stats.ByYear = append(stats.ByYear, yc)
	}
	return stats, rows.Err()
}
