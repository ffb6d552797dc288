package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	// import the postgres driver - "pgx"
	"github.com/go-viper/mapstructure/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	// import the sqlite driver - "sqlite"
	_ "modernc.org/sqlite"

	"github.com/uptrace/opentelemetry-go-extra/otelsql"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/serviceerrors"
	"github.com/bench-hub/bench-hub/pkg/api"
)

const (
	// These are the only drivers currently supported
	SQLITE_DRIVER   = "sqlite"
	POSTGRES_DRIVER = "pgx"

	TABLE_RUNS = "runs"
)

type SQLStorage struct {
	sqlConfig *SQLDatabaseConfig
	logger    *slog.Logger
	pool      *sql.DB
}

var _ abstractions.Storage = (*SQLStorage)(nil)

func NewStorage(config map[string]any, logger *slog.Logger) (abstractions.Storage, error) {
	var sqlConfig SQLDatabaseConfig
	err := mapstructure.Decode(config, &sqlConfig)
	if err != nil {
		return nil, err
	}

	// check that the driver is supported
	switch sqlConfig.Driver {
	case SQLITE_DRIVER:
		break
	case POSTGRES_DRIVER:
		break
	default:
		return nil, getUnsupportedDriverError(sqlConfig.Driver)
	}

	logger.Info("Creating SQL storage", "driver", sqlConfig.Driver, "url", sqlConfig.URL)

	// the otelsql wrapper reports query spans against the configured tracer provider
	pool, err := otelsql.Open(sqlConfig.Driver, sqlConfig.URL,
		otelsql.WithDBSystem(sqlConfig.Driver),
		otelsql.WithDBName(sqlConfig.DatabaseName),
	)
	if err != nil {
		return nil, err
	}

	if sqlConfig.ConnMaxLifetime != nil {
		pool.SetConnMaxLifetime(*sqlConfig.ConnMaxLifetime)
	}
	if sqlConfig.MaxIdleConns != nil {
		pool.SetMaxIdleConns(*sqlConfig.MaxIdleConns)
	}
	if sqlConfig.MaxOpenConns != nil {
		pool.SetMaxOpenConns(*sqlConfig.MaxOpenConns)
	}

	storage := &SQLStorage{
		sqlConfig: &sqlConfig,
		logger:    logger,
		pool:      pool,
	}

	// ping the database to verify the DSN provided by the user is valid and the server is accessible
	logger.Info("Pinging SQL storage", "driver", sqlConfig.Driver, "url", sqlConfig.URL)
	err = storage.Ping(1 * time.Second)
	if err != nil {
		return nil, err
	}

	// ensure the schemas are created
	logger.Info("Ensuring schemas are created", "driver", sqlConfig.Driver, "url", sqlConfig.URL)
	if err := storage.ensureSchema(); err != nil {
		return nil, err
	}

	return storage, nil
}

// Ping the database to verify DSN provided by the user is valid and the
// server accessible.
func (s *SQLStorage) Ping(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.pool.PingContext(ctx)
}

func (s *SQLStorage) GetDatasourceName() string {
	return s.sqlConfig.Driver
}

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.pool.ExecContext(ctx, query, args...)
}

func (s *SQLStorage) ensureSchema() error {
	schema, err := schemasForDriver(s.sqlConfig.Driver)
	if err != nil {
		return err
	}
	if _, err := s.exec(context.Background(), schema); err != nil {
		return err
	}

	return nil
}

//#######################################################################
// Run operations
//#######################################################################

// SaveRun upserts a run. The full resource is stored in the runs table as a
// JSON entity; status and timestamps are projected into columns for queries.
func (s *SQLStorage) SaveRun(run *api.RunResource) error {
	entityJSON, err := json.Marshal(run)
	if err != nil {
		return serviceerrors.NewStorageErrorWithError(err, "failed to marshal run %s", run.ID)
	}
	upsertStatement, err := createUpsertRunStatement(s.sqlConfig.Driver)
	if err != nil {
		return err
	}
	_, err = s.exec(context.Background(), upsertStatement, run.ID, string(run.Status), run.CreatedAt, run.UpdatedAt, string(entityJSON))
	if err != nil {
		s.logger.Error("Failed to save run", "error", err, "id", run.ID)
		return serviceerrors.NewStorageErrorWithError(err, "failed to save run %s", run.ID)
	}
	return nil
}

func (s *SQLStorage) LoadRun(id string) (*api.RunResource, error) {
	selectQuery, err := createGetRunStatement(s.sqlConfig.Driver)
	if err != nil {
		return nil, err
	}

	var dbID string
	var statusStr string
	var createdAt, updatedAt time.Time
	var entityJSON string

	err = s.pool.QueryRowContext(context.Background(), selectQuery, id).Scan(&dbID, &statusStr, &createdAt, &updatedAt, &entityJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, serviceerrors.NewStorageErrorWithCode(404, "run with id '%s' not found", id)
		}
		s.logger.Error("Failed to load run", "error", err, "id", id)
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to load run %s", id)
	}

	return unmarshalRun(dbID, entityJSON)
}

func (s *SQLStorage) LoadRuns() ([]api.RunResource, error) {
	listQuery, err := createListRunsStatement(s.sqlConfig.Driver)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.QueryContext(context.Background(), listQuery)
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err)
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []api.RunResource
	for rows.Next() {
		var dbID string
		var statusStr string
		var createdAt, updatedAt time.Time
		var entityJSON string
		if err := rows.Scan(&dbID, &statusStr, &createdAt, &updatedAt, &entityJSON); err != nil {
			return nil, serviceerrors.NewStorageErrorWithError(err, "failed to scan run row")
		}
		run, err := unmarshalRun(dbID, entityJSON)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to iterate run rows")
	}
	return runs, nil
}

func (s *SQLStorage) DeleteRun(id string) (bool, error) {
	deleteQuery, err := createDeleteRunStatement(s.sqlConfig.Driver)
	if err != nil {
		return false, err
	}

	result, err := s.exec(context.Background(), deleteQuery, id)
	if err != nil {
		s.logger.Error("Failed to delete run", "error", err, "id", id)
		return false, serviceerrors.NewStorageErrorWithError(err, "failed to delete run %s", id)
	}

	// both supported drivers implement RowsAffected
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, serviceerrors.NewStorageErrorWithError(err, "failed to get rows affected for run %s", id)
	}
	return rowsAffected > 0, nil
}

func (s *SQLStorage) Close() error {
	return s.pool.Close()
}

func unmarshalRun(id string, entityJSON string) (*api.RunResource, error) {
	run := &api.RunResource{}
	if err := json.Unmarshal([]byte(entityJSON), run); err != nil {
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to unmarshal run %s", id)
	}
	return run, nil
}
