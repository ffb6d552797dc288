package sql

import (
	"fmt"
	"strings"

	"github.com/bench-hub/bench-hub/internal/storage/sql/schemas"
)

// SQLite: use ? placeholders
const SQLITE_UPSERT_RUN_STATEMENT = `INSERT INTO runs (id, status, created_at, updated_at, entity) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at, entity = excluded.entity;`

// PostgreSQL: use $1, $2 placeholders
const POSTGRES_UPSERT_RUN_STATEMENT = `INSERT INTO runs (id, status, created_at, updated_at, entity) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at, entity = excluded.entity;`

func getUnsupportedDriverError(driver string) error {
	return fmt.Errorf("unsupported driver: %s", driver)
}

func schemasForDriver(driver string) (string, error) {
	schema := schemas.SchemaForDriver(driver)
	if schema == "" {
		return "", getUnsupportedDriverError(driver)
	}
	return schema, nil
}

// quoteIdentifier properly quotes an identifier for the given driver
func quoteIdentifier(_ /*driver*/ string, identifier string) string {
	// Escape double quotes by doubling them
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}

// createUpsertRunStatement returns a driver-specific INSERT ... ON CONFLICT
// statement with appropriate placeholder syntax
func createUpsertRunStatement(driver string) (string, error) {
	switch driver {
	case POSTGRES_DRIVER:
		return POSTGRES_UPSERT_RUN_STATEMENT, nil
	case SQLITE_DRIVER:
		return SQLITE_UPSERT_RUN_STATEMENT, nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}

// createGetRunStatement returns a driver-specific SELECT statement
// to retrieve a run by ID
func createGetRunStatement(driver string) (string, error) {
	quotedTable := quoteIdentifier(driver, TABLE_RUNS)

	switch driver {
	case POSTGRES_DRIVER:
		return fmt.Sprintf(`SELECT id, status, created_at, updated_at, entity FROM %s WHERE id = $1;`, quotedTable), nil
	case SQLITE_DRIVER:
		return fmt.Sprintf(`SELECT id, status, created_at, updated_at, entity FROM %s WHERE id = ?;`, quotedTable), nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}

// createListRunsStatement returns a driver-specific SELECT over every run,
// newest first
func createListRunsStatement(driver string) (string, error) {
	quotedTable := quoteIdentifier(driver, TABLE_RUNS)

	switch driver {
	case POSTGRES_DRIVER, SQLITE_DRIVER:
		return fmt.Sprintf(`SELECT id, status, created_at, updated_at, entity FROM %s ORDER BY created_at DESC;`, quotedTable), nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}

// createDeleteRunStatement returns a driver-specific DELETE statement
// to delete a run by ID
func createDeleteRunStatement(driver string) (string, error) {
	quotedTable := quoteIdentifier(driver, TABLE_RUNS)

	switch driver {
	case POSTGRES_DRIVER:
		return fmt.Sprintf(`DELETE FROM %s WHERE id = $1;`, quotedTable), nil
	case SQLITE_DRIVER:
		return fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, quotedTable), nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}
