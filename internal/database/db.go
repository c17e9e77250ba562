package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Alias1177/GoldAnalyst/models"
)

// ErrUnknownHorizon is returned when a horizon has no outcome column.
var ErrUnknownHorizon = errors.New("unknown evaluation horizon")

// outcomeColumns maps a horizon name to its outcome column. Column names
// are never built from caller input directly; anything not in this map is
// rejected before it reaches a query.
var outcomeColumns = map[string]string{
	"1d":  "horizon_1d_outcome",
	"7d":  "horizon_7d_outcome",
	"30d": "horizon_30d_outcome",
}

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	// Create PostgreSQL connection string
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			timestamp_utc TIMESTAMPTZ NOT NULL,
			entry_price_primary DOUBLE PRECISION NOT NULL,
			entry_price_secondary DOUBLE PRECISION NOT NULL,
			input_json TEXT NOT NULL,
			model_output_json TEXT NOT NULL,
			horizon_1d_outcome TEXT,
			horizon_7d_outcome TEXT,
			horizon_30d_outcome TEXT
		)
	`)

	return err
}

// InsertPrediction persists a new prediction record. All horizon outcome
// columns start NULL and are resolved later by evaluation sweeps.
func (db *DB) InsertPrediction(ctx context.Context, rec *models.PredictionRecord) error {
	modelOutput, err := json.Marshal(rec.ModelOutput)
	if err != nil {
		return fmt.Errorf("marshaling model output: %w", err)
	}

	input := rec.InputSnapshot
	if input == nil {
		input = json.RawMessage("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO predictions (
			id, timestamp_utc, entry_price_primary, entry_price_secondary, input_json, model_output_json
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		rec.ID, rec.TimestampUTC, rec.EntryPricePrimary, rec.EntryPriceSecondary,
		string(input), string(modelOutput))

	if err != nil {
		return fmt.Errorf("inserting prediction: %w", err)
	}

	return nil
}

// PendingForHorizon returns every record whose outcome for the horizon is
// still unset.
func (db *DB) PendingForHorizon(ctx context.Context, horizon string) ([]models.PredictionRecord, error) {
	col, ok := outcomeColumns[horizon]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHorizon, horizon)
	}

	return db.selectRecords(ctx, fmt.Sprintf(`
		SELECT id, timestamp_utc, entry_price_primary, entry_price_secondary,
			input_json, model_output_json,
			horizon_1d_outcome, horizon_7d_outcome, horizon_30d_outcome
		FROM predictions
		WHERE %s IS NULL
		ORDER BY timestamp_utc
	`, col))
}

// EvaluatedForHorizon returns every record whose outcome for the horizon
// has been resolved.
func (db *DB) EvaluatedForHorizon(ctx context.Context, horizon string) ([]models.PredictionRecord, error) {
	col, ok := outcomeColumns[horizon]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHorizon, horizon)
	}

	return db.selectRecords(ctx, fmt.Sprintf(`
		SELECT id, timestamp_utc, entry_price_primary, entry_price_secondary,
			input_json, model_output_json,
			horizon_1d_outcome, horizon_7d_outcome, horizon_30d_outcome
		FROM predictions
		WHERE %s IS NOT NULL
		ORDER BY timestamp_utc
	`, col))
}

// ListRecent returns the newest records, most recent first
func (db *DB) ListRecent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	return db.selectRecords(ctx, `
		SELECT id, timestamp_utc, entry_price_primary, entry_price_secondary,
			input_json, model_output_json,
			horizon_1d_outcome, horizon_7d_outcome, horizon_30d_outcome
		FROM predictions
		ORDER BY timestamp_utc DESC
		LIMIT $1
	`, limit)
}

// SetOutcomes writes outcomes for the horizon as a single transaction. Each
// update is guarded with "outcome IS NULL", so a record already resolved by
// a concurrent sweep is left untouched. Returns the number of records this
// call actually resolved.
func (db *DB) SetOutcomes(ctx context.Context, horizon string, outcomes map[string]models.Outcome) (int, error) {
	col, ok := outcomeColumns[horizon]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownHorizon, horizon)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE predictions
		SET %s = $1
		WHERE id = $2 AND %s IS NULL
	`, col, col)

	applied := 0
	for id, outcome := range outcomes {
		res, err := tx.ExecContext(ctx, query, string(outcome), id)
		if err != nil {
			return 0, fmt.Errorf("updating outcome for %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reading rows affected: %w", err)
		}
		applied += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing outcomes: %w", err)
	}

	return applied, nil
}

// selectRecords runs a query returning full prediction rows and scans them
func (db *DB) selectRecords(ctx context.Context, query string, args ...interface{}) ([]models.PredictionRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating predictions: %w", err)
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	var inputJSON, modelOutputJSON string
	var outcome1d, outcome7d, outcome30d sql.NullString

	err := rows.Scan(
		&rec.ID, &rec.TimestampUTC, &rec.EntryPricePrimary, &rec.EntryPriceSecondary,
		&inputJSON, &modelOutputJSON,
		&outcome1d, &outcome7d, &outcome30d,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning prediction: %w", err)
	}

	rec.InputSnapshot = json.RawMessage(inputJSON)
	rec.ModelOutput, err = decodeModelOutput([]byte(modelOutputJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing model output for %s: %w", rec.ID, err)
	}

	rec.Outcomes = make(map[string]models.Outcome)
	if outcome1d.Valid {
		rec.Outcomes["1d"] = models.Outcome(outcome1d.String)
	}
	if outcome7d.Valid {
		rec.Outcomes["7d"] = models.Outcome(outcome7d.String)
	}
	if outcome30d.Valid {
		rec.Outcomes["30d"] = models.Outcome(outcome30d.String)
	}

	return &rec, nil
}

// decodeModelOutput parses a stored model output blob. Rows written before
// confidence was recorded carry no confidence key at all; those score as a
// neutral 50, never as zero.
func decodeModelOutput(raw []byte) (models.OracleOutput, error) {
	var output models.OracleOutput
	if err := json.Unmarshal(raw, &output); err != nil {
		return models.OracleOutput{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		if _, ok := fields["confidence"]; !ok {
			output.Confidence = 50
		}
	}

	return output, nil
}
