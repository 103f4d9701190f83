package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/data/pgxutil"
	"github.com/target/mmk-genstudio/internal/domain/model"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// GenerationRepoConfig holds configuration options for the generation repository.
type GenerationRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// GenerationRepo persists generation jobs in PostgreSQL.
type GenerationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

var _ core.GenerationRepository = (*GenerationRepo)(nil)

// NewGenerationRepo creates a new GenerationRepo with the given database connection and configuration.
func NewGenerationRepo(db *sql.DB, cfg GenerationRepoConfig) *GenerationRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "generation_repo"),
	}
}

const generationColumns = `
  id,
  kind,
  status,
  external_id,
  group_id,
  variant_index,
  display_name,
  asset_ref,
  attributes,
  created_at,
  updated_at
`

// generationRow mirrors a generation_jobs row; attributes stay raw until the kind is known.
type generationRow struct {
	ID           string    `db:"id"`
	Kind         string    `db:"kind"`
	Status       string    `db:"status"`
	ExternalID   *string   `db:"external_id"`
	GroupID      string    `db:"group_id"`
	VariantIndex int       `db:"variant_index"`
	DisplayName  string    `db:"display_name"`
	AssetRef     string    `db:"asset_ref"`
	Attributes   []byte    `db:"attributes"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *generationRow) scanFrom(s interface{ Scan(dest ...any) error }) error {
	return s.Scan(
		&r.ID, &r.Kind, &r.Status, &r.ExternalID, &r.GroupID, &r.VariantIndex,
		&r.DisplayName, &r.AssetRef, &r.Attributes, &r.CreatedAt, &r.UpdatedAt,
	)
}

func (r *generationRow) toModel() (*model.GenerationJob, error) {
	kind := model.Kind(r.Kind)
	attrs, err := model.DecodeAttributes(kind, r.Attributes)
	if err != nil {
		return nil, fmt.Errorf("generation %s: %w", r.ID, err)
	}
	job := &model.GenerationJob{
		ID:           r.ID,
		Kind:         kind,
		Status:       model.Status(r.Status),
		GroupID:      r.GroupID,
		VariantIndex: r.VariantIndex,
		DisplayName:  r.DisplayName,
		AssetRef:     r.AssetRef,
		Attributes:   attrs,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.ExternalID != nil {
		job.ExternalID = *r.ExternalID
	}
	return job, nil
}

func rowToGeneration(row pgx.CollectableRow) (*model.GenerationJob, error) {
	var r generationRow
	if err := r.scanFrom(row); err != nil {
		return nil, err
	}
	return r.toModel()
}

// Create inserts a new generation job row.
func (r *GenerationRepo) Create(ctx context.Context, req *model.CreateGenerationJobRequest) (*model.GenerationJob, error) {
	if req == nil {
		return nil, errors.New("create generation request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid generation job")
	}

	attrs := req.Attributes
	if attrs == nil {
		empty, err := model.EmptyAttributes(req.Kind)
		if err != nil {
			return nil, err
		}
		attrs = empty
	}
	rawAttrs, err := model.EncodeAttributes(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}

	now := r.timeProvider.Now()
	var row generationRow
	err = row.scanFrom(r.DB.QueryRowContext(ctx, `
		INSERT INTO generation_jobs (
		  id, kind, status, external_id, group_id, variant_index,
		  display_name, attributes, created_at, updated_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $9)
		RETURNING `+generationColumns,
		req.ID, req.Kind, req.Status, req.ExternalID, req.GroupID, req.VariantIndex,
		req.DisplayName, rawAttrs, now,
	))
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row.toModel()
}

// GetByID returns a single job.
func (r *GenerationRepo) GetByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	var row generationRow
	err := row.scanFrom(r.DB.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM generation_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenerationNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return row.toModel()
}

// ListByGroup returns the jobs of a group ordered by variant index.
func (r *GenerationRepo) ListByGroup(ctx context.Context, groupID string) ([]*model.GenerationJob, error) {
	jobs, err := pgxutil.CollectQuery(ctx, r.DB, rowToGeneration, `
		SELECT `+generationColumns+`
		FROM generation_jobs
		WHERE group_id = $1
		ORDER BY variant_index`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list generations by group: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

// ListByExternalID returns every job correlated with the provider request, ordered by variant index.
func (r *GenerationRepo) ListByExternalID(ctx context.Context, externalID string) ([]*model.GenerationJob, error) {
	if externalID == "" {
		return nil, nil
	}
	jobs, err := pgxutil.CollectQuery(ctx, r.DB, rowToGeneration, `
		SELECT `+generationColumns+`
		FROM generation_jobs
		WHERE external_id = $1
		ORDER BY variant_index`, externalID)
	if err != nil {
		return nil, fmt.Errorf("list generations by external id: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

// MarkGenerating moves a queued job to generating and records the external id.
func (r *GenerationRepo) MarkGenerating(ctx context.Context, id, externalID string) (bool, error) {
	if externalID == "" {
		return false, apperrors.ValidationField("external_id", "external id is required")
	}
	return r.execSingle(ctx, "mark generating", `
		UPDATE generation_jobs
		SET status = 'generating', external_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'queued'`,
		id, externalID, r.timeProvider.Now())
}

// Complete writes the asset reference and marks the job completed.
// The predicate on asset_ref makes the reference write-once: a second
// completion of the same job affects no rows.
func (r *GenerationRepo) Complete(ctx context.Context, p model.CompleteGenerationParams) (bool, error) {
	if p.AssetRef == "" {
		return false, apperrors.ValidationField("asset_ref", "asset reference is required")
	}
	var rawAttrs []byte
	if p.Attributes != nil {
		var err error
		if rawAttrs, err = model.EncodeAttributes(p.Attributes); err != nil {
			return false, fmt.Errorf("encode attributes: %w", err)
		}
	}
	return r.execSingle(ctx, "complete", `
		UPDATE generation_jobs
		SET status = 'completed',
		    asset_ref = $2,
		    display_name = COALESCE(NULLIF($3, ''), display_name),
		    attributes = COALESCE($4::jsonb, attributes),
		    updated_at = $5
		WHERE id = $1 AND status = 'generating' AND asset_ref = ''`,
		p.ID, p.AssetRef, p.DisplayName, rawAttrs, r.timeProvider.Now())
}

// Fail marks an in-flight job failed and records reason under attributes.error.
func (r *GenerationRepo) Fail(ctx context.Context, id, reason string) (bool, error) {
	if reason == "" {
		reason = "generation failed"
	}
	return r.execSingle(ctx, "fail", `
		UPDATE generation_jobs
		SET status = 'failed',
		    attributes = jsonb_set(attributes, '{error}', to_jsonb($2::text), true),
		    updated_at = $3
		WHERE id = $1 AND status IN ('queued', 'generating')`,
		id, reason, r.timeProvider.Now())
}

// Delete removes a job row.
func (r *GenerationRepo) Delete(ctx context.Context, id string) (bool, error) {
	return r.execSingle(ctx, "delete", `DELETE FROM generation_jobs WHERE id = $1`, id)
}

func (r *GenerationRepo) execSingle(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s generation: %w", op, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		r.logger.DebugContext(ctx, "conditional update matched no rows", "op", op, "id", args[0])
	}
	return n > 0, nil
}
