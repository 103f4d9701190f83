package data

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/target/mmk-genstudio/internal/data/pgxutil"
	"github.com/target/mmk-genstudio/internal/domain/model"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
)

// generationFilter accumulates WHERE conditions with positional parameters.
type generationFilter struct {
	conds []string
	args  []any
}

func (f *generationFilter) add(cond string, value any) {
	f.args = append(f.args, value)
	f.conds = append(f.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(f.args))))
}

func (f *generationFilter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func (f *generationFilter) param(value any) string {
	f.args = append(f.args, value)
	return "$" + strconv.Itoa(len(f.args))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// buildListQuery constructs the listing query for the read model.
func buildListQuery(opts *model.GenerationListOptions) (string, []any) {
	var f generationFilter
	limit, offset := defaultListLimit, 0
	if opts != nil {
		if opts.Kind != nil {
			f.add("kind = ?", string(*opts.Kind))
		}
		if opts.Status != nil {
			f.add("status = ?", string(*opts.Status))
		}
		limit = clampLimit(opts.Limit)
		if opts.Offset > 0 {
			offset = opts.Offset
		}
	}

	query := `SELECT ` + generationColumns + ` FROM generation_jobs` + f.where() +
		` ORDER BY created_at DESC, group_id, variant_index` +
		` LIMIT ` + f.param(limit) + ` OFFSET ` + f.param(offset)
	return query, f.args
}

// List returns jobs for the listing read model, newest first.
func (r *GenerationRepo) List(ctx context.Context, opts *model.GenerationListOptions) ([]*model.GenerationJob, error) {
	if opts != nil {
		if opts.Kind != nil && !opts.Kind.Valid() {
			return nil, apperrors.ValidationField("kind", "invalid kind")
		}
		if opts.Status != nil && !opts.Status.Valid() {
			return nil, apperrors.ValidationField("status", "invalid status")
		}
	}
	query, args := buildListQuery(opts)
	jobs, err := pgxutil.CollectQuery(ctx, r.DB, rowToGeneration, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

// ListStale returns in-flight jobs whose updated_at is older than q.UpdatedBefore,
// oldest first. Defaults to generating jobs when no statuses are given.
func (r *GenerationRepo) ListStale(ctx context.Context, q model.StaleGenerationQuery) ([]*model.GenerationJob, error) {
	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		if s.IsTerminal() || !s.Valid() {
			return nil, fmt.Errorf("stale query on non in-flight status %q", s)
		}
		statuses = append(statuses, string(s))
	}
	if len(statuses) == 0 {
		statuses = []string{string(model.StatusGenerating)}
	}

	jobs, err := pgxutil.CollectQuery(ctx, r.DB, rowToGeneration, `
		SELECT `+generationColumns+`
		FROM generation_jobs
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at, variant_index
		LIMIT $3`,
		statuses, q.UpdatedBefore.UTC(), clampStaleLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("list stale generations: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

// ListActive returns generating jobs updated at or after q.UpdatedAfter, oldest first.
func (r *GenerationRepo) ListActive(ctx context.Context, q model.ActiveGenerationQuery) ([]*model.GenerationJob, error) {
	jobs, err := pgxutil.CollectQuery(ctx, r.DB, rowToGeneration, `
		SELECT `+generationColumns+`
		FROM generation_jobs
		WHERE status = 'generating' AND updated_at >= $1
		ORDER BY updated_at, variant_index
		LIMIT $2`,
		q.UpdatedAfter.UTC(), clampStaleLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("list active generations: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

func clampStaleLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}
