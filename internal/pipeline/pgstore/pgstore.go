// Package pgstore provides PostgreSQL implementations of the pipeline
// stores: incidents with their indicator index, and the append-only
// audit log.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/beacon/internal/incident"
	"github.com/linnemanlabs/beacon/internal/pipeline"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/pipeline/pgstore")

//go:embed schema.sql
var schema string

// Store persists incidents and audit entries in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const incidentColumns = `id, indicator_type, indicator_value, source, network_id,
	metadata, status, risk, created_at`

// Get retrieves an incident by ID.
func (s *Store) Get(ctx context.Context, id string) (*incident.Incident, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	inc, err := scanIncident(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if inc == nil {
		return nil, false, nil
	}
	return inc, true, nil
}

// Put inserts or updates an incident.
func (s *Store) Put(ctx context.Context, inc *incident.Incident) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	metadataJSON, err := json.Marshal(inc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	var riskJSON []byte
	if inc.Risk != nil {
		riskJSON, err = json.Marshal(inc.Risk)
		if err != nil {
			return fmt.Errorf("marshal risk: %w", err)
		}
	}

	query := `INSERT INTO incidents (
		id, indicator_type, indicator_value, source, network_id, metadata, status, risk, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		risk   = EXCLUDED.risk`

	_, err = s.pool.Exec(ctx, query,
		inc.ID, inc.IndicatorType, inc.IndicatorValue, inc.Source, inc.NetworkID,
		metadataJSON, string(inc.Status), riskJSON, inc.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert incident: %w", err)
	}
	return nil
}

// QueryByIndicator returns all incidents sharing the indicator value in
// creation order.
func (s *Store) QueryByIndicator(ctx context.Context, value string) ([]incident.Incident, error) {
	ctx, span := tracer.Start(ctx, "pgstore.QueryByIndicator", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + incidentColumns + ` FROM incidents
		WHERE indicator_value = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var matches []incident.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		matches = append(matches, *inc)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scan incidents: %w", err)
	}
	return matches, nil
}

// Append inserts an audit entry. A log id already present means the
// stage was retried with identical inputs; the duplicate is dropped and
// the original entry is never overwritten.
func (s *Store) Append(ctx context.Context, entry *pipeline.AuditEntry) error {
	ctx, span := tracer.Start(ctx, "pgstore.Append", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_log (log_id, incident_id, stage, ts, details)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (log_id) DO NOTHING`,
		entry.LogID, entry.IncidentID, string(entry.Stage), entry.Timestamp, detailsJSON,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*incident.Incident, error) {
	var inc incident.Incident
	var metadataJSON, riskJSON []byte
	var status string

	err := row.Scan(
		&inc.ID, &inc.IndicatorType, &inc.IndicatorValue, &inc.Source, &inc.NetworkID,
		&metadataJSON, &status, &riskJSON, &inc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan incident: %w", err)
	}

	inc.Status = incident.Status(status)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &inc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if len(riskJSON) > 0 {
		inc.Risk = &incident.RiskAssessment{}
		if err := json.Unmarshal(riskJSON, inc.Risk); err != nil {
			return nil, fmt.Errorf("unmarshal risk: %w", err)
		}
	}
	return &inc, nil
}
