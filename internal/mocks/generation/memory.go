// Package generation contains hand-written in-memory doubles for the
// generation lifecycle ports. They are lightweight and suitable for unit
// tests without codegen.
package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/data"
	rules "github.com/target/mmk-genstudio/internal/domain/generation"
	"github.com/target/mmk-genstudio/internal/domain/model"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
)

// Ensure compile-time conformance to ports.
var (
	_ core.GenerationRepository     = (*MemoryRepository)(nil)
	_ core.BlobStore                = (*MemoryBlobStore)(nil)
	_ core.GenerationEventPublisher = (*RecordingPublisher)(nil)
	_ core.DistributedLock          = (*MemoryLock)(nil)
)

// MemoryRepository is a map-backed GenerationRepository with the same
// conditional-write semantics as the Postgres repository.
type MemoryRepository struct {
	mu   sync.Mutex
	jobs map[string]*model.GenerationJob
	// Writes counts successful mutating calls.
	Writes int
	// Now stamps created/updated times. Defaults to time.Now.
	Now func() time.Time
	// FailNext, when set, is returned by the next mutating call.
	FailNext error
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: map[string]*model.GenerationJob{}}
}

func (r *MemoryRepository) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *MemoryRepository) takeFailure() error {
	err := r.FailNext
	r.FailNext = nil
	return err
}

func clone(j *model.GenerationJob) *model.GenerationJob {
	cp := *j
	return &cp
}

// Put stores job as-is, bypassing validation. Useful for seeding state.
func (r *MemoryRepository) Put(job *model.GenerationJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = clone(job)
}

// Snapshot returns every job ordered by group and variant index.
func (r *MemoryRepository) Snapshot() []*model.GenerationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.GenerationJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, clone(j))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].GroupID != out[b].GroupID {
			return out[a].GroupID < out[b].GroupID
		}
		return out[a].VariantIndex < out[b].VariantIndex
	})
	return out
}

func (r *MemoryRepository) Create(_ context.Context, req *model.CreateGenerationJobRequest) (*model.GenerationJob, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid generation job")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return nil, err
	}
	if _, exists := r.jobs[req.ID]; exists {
		return nil, &apperrors.AppError{Code: apperrors.ErrCodeConflict, Message: "duplicate id", Field: "id"}
	}
	for _, j := range r.jobs {
		if j.GroupID == req.GroupID && j.VariantIndex == req.VariantIndex {
			return nil, &apperrors.AppError{
				Code: apperrors.ErrCodeConflict, Message: "variant already exists", Field: "group_id, variant_index",
			}
		}
	}
	attrs := req.Attributes
	if attrs == nil {
		attrs, _ = model.EmptyAttributes(req.Kind)
	}
	now := r.now()
	job := &model.GenerationJob{
		ID:           req.ID,
		Kind:         req.Kind,
		Status:       req.Status,
		ExternalID:   req.ExternalID,
		GroupID:      req.GroupID,
		VariantIndex: req.VariantIndex,
		DisplayName:  req.DisplayName,
		Attributes:   attrs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.jobs[job.ID] = job
	r.Writes++
	return clone(job), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*model.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, data.ErrGenerationNotFound
	}
	return clone(j), nil
}

func (r *MemoryRepository) filter(keep func(*model.GenerationJob) bool) []*model.GenerationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.GenerationJob
	for _, j := range r.jobs {
		if keep(j) {
			out = append(out, clone(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].VariantIndex < out[b].VariantIndex })
	return out
}

func (r *MemoryRepository) ListByGroup(_ context.Context, groupID string) ([]*model.GenerationJob, error) {
	return r.filter(func(j *model.GenerationJob) bool { return j.GroupID == groupID }), nil
}

func (r *MemoryRepository) ListByExternalID(_ context.Context, externalID string) ([]*model.GenerationJob, error) {
	if externalID == "" {
		return nil, nil
	}
	return r.filter(func(j *model.GenerationJob) bool { return j.ExternalID == externalID }), nil
}

func (r *MemoryRepository) List(_ context.Context, opts *model.GenerationListOptions) ([]*model.GenerationJob, error) {
	out := r.filter(func(j *model.GenerationJob) bool {
		if opts == nil {
			return true
		}
		if opts.Kind != nil && j.Kind != *opts.Kind {
			return false
		}
		if opts.Status != nil && j.Status != *opts.Status {
			return false
		}
		return true
	})
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if opts != nil && opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts != nil && opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) ListStale(_ context.Context, q model.StaleGenerationQuery) ([]*model.GenerationJob, error) {
	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = []model.Status{model.StatusGenerating}
	}
	for _, s := range statuses {
		if s.IsTerminal() {
			return nil, fmt.Errorf("stale query on non in-flight status %q", s)
		}
	}
	out := r.filter(func(j *model.GenerationJob) bool {
		return slices.Contains(statuses, j.Status) && j.UpdatedAt.Before(q.UpdatedBefore)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) ListActive(_ context.Context, q model.ActiveGenerationQuery) ([]*model.GenerationJob, error) {
	out := r.filter(func(j *model.GenerationJob) bool {
		return j.Status == model.StatusGenerating && !j.UpdatedAt.Before(q.UpdatedAfter)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) update(id string, apply func(*model.GenerationJob) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return false, err
	}
	j, ok := r.jobs[id]
	if !ok || !apply(j) {
		return false, nil
	}
	j.UpdatedAt = r.now()
	r.Writes++
	return true, nil
}

func (r *MemoryRepository) MarkGenerating(_ context.Context, id, externalID string) (bool, error) {
	return r.update(id, func(j *model.GenerationJob) bool {
		if !rules.CanTransition(j.Status, model.StatusGenerating) {
			return false
		}
		j.Status = model.StatusGenerating
		j.ExternalID = externalID
		return true
	})
}

func (r *MemoryRepository) Complete(_ context.Context, p model.CompleteGenerationParams) (bool, error) {
	return r.update(p.ID, func(j *model.GenerationJob) bool {
		if !rules.CanTransition(j.Status, model.StatusCompleted) || j.AssetRef != "" {
			return false
		}
		j.Status = model.StatusCompleted
		j.AssetRef = p.AssetRef
		if p.DisplayName != "" {
			j.DisplayName = p.DisplayName
		}
		if p.Attributes != nil {
			j.Attributes = p.Attributes
		}
		return true
	})
}

func (r *MemoryRepository) Fail(_ context.Context, id, reason string) (bool, error) {
	return r.update(id, func(j *model.GenerationJob) bool {
		if !rules.CanTransition(j.Status, model.StatusFailed) {
			return false
		}
		j.Status = model.StatusFailed
		if j.Attributes == nil {
			j.Attributes, _ = model.EmptyAttributes(j.Kind)
		}
		j.Attributes = model.WithError(j.Attributes, reason)
		return true
	})
}

func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return false, nil
	}
	delete(r.jobs, id)
	r.Writes++
	return true, nil
}

// MemoryBlobStore keeps blobs in a map.
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	// PutErr, when set, is returned by every Put.
	PutErr error
	Puts   int
}

// NewMemoryBlobStore returns an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

// Bytes returns the stored content for key.
func (m *MemoryBlobStore) Bytes(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

// Keys returns every stored key, sorted.
func (m *MemoryBlobStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryBlobStore) Put(_ context.Context, key string, body io.Reader, opts core.BlobPutOptions) (core.BlobInfo, error) {
	if m.PutErr != nil {
		return core.BlobInfo{}, m.PutErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return core.BlobInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = opts.ContentType
	m.Puts++
	return core.BlobInfo{Key: key, ContentType: opts.ContentType, Size: int64(len(b))}, nil
}

func (m *MemoryBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, core.BlobInfo, error) {
	info, err := m.Stat(ctx, key)
	if err != nil {
		return nil, core.BlobInfo{}, err
	}
	b, _ := m.Bytes(key)
	return io.NopCloser(bytes.NewReader(b)), info, nil
}

func (m *MemoryBlobStore) GetRange(ctx context.Context, key string, r core.BlobRange) (io.ReadCloser, core.BlobInfo, error) {
	info, err := m.Stat(ctx, key)
	if err != nil {
		return nil, core.BlobInfo{}, err
	}
	if r.Start < 0 || r.End >= info.Size || r.End < r.Start {
		return nil, core.BlobInfo{}, fmt.Errorf("range %d-%d outside object of %d bytes", r.Start, r.End, info.Size)
	}
	b, _ := m.Bytes(key)
	return io.NopCloser(bytes.NewReader(b[r.Start : r.End+1])), info, nil
}

func (m *MemoryBlobStore) Stat(_ context.Context, key string) (core.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return core.BlobInfo{}, core.ErrBlobNotFound
	}
	return core.BlobInfo{Key: key, ContentType: m.types[key], Size: int64(len(b))}, nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

// RecordingPublisher captures published events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []model.GenerationEvent
	Err    error
}

func (p *RecordingPublisher) PublishGenerationEvent(_ context.Context, evt model.GenerationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evt)
	return nil
}

// Events returns a copy of the captured events.
func (p *RecordingPublisher) Events() []model.GenerationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// MemoryLock is a process-local DistributedLock.
type MemoryLock struct {
	mu    sync.Mutex
	held  map[string]string
	count int
}

func (l *MemoryLock) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, busy := l.held[key]; busy {
		return "", false, nil
	}
	l.count++
	token := fmt.Sprintf("token-%d", l.count)
	l.held[key] = token
	return token, true, nil
}

func (l *MemoryLock) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// Hold marks key as held by someone else.
func (l *MemoryLock) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	l.held[key] = "other"
}
