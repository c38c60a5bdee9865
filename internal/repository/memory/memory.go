// Package memory holds mutex-guarded repositories for tests and local runs
// without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
)

type ReferenceRepository struct {
	bloodTypes map[int64]*model.BloodType
	locations  map[int64]*model.Location
}

// NewReferenceRepository seeds the standard blood types and locations with
// ids starting at 1.
func NewReferenceRepository() *ReferenceRepository {
	r := &ReferenceRepository{
		bloodTypes: make(map[int64]*model.BloodType),
		locations:  make(map[int64]*model.Location),
	}
	for i, name := range model.BloodTypeNames {
		id := int64(i + 1)
		r.bloodTypes[id] = &model.BloodType{ID: id, Name: name}
	}
	for i, name := range model.LocationNames {
		id := int64(i + 1)
		r.locations[id] = &model.Location{ID: id, Name: name}
	}
	return r
}

func (r *ReferenceRepository) GetBloodType(_ context.Context, id int64) (*model.BloodType, error) {
	bt, ok := r.bloodTypes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return bt, nil
}

func (r *ReferenceRepository) GetLocation(_ context.Context, id int64) (*model.Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return loc, nil
}

func (r *ReferenceRepository) ListBloodTypes(_ context.Context) ([]*model.BloodType, error) {
	out := make([]*model.BloodType, 0, len(r.bloodTypes))
	for _, bt := range r.bloodTypes {
		out = append(out, bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ReferenceRepository) ListLocations(_ context.Context) ([]*model.Location, error) {
	out := make([]*model.Location, 0, len(r.locations))
	for _, loc := range r.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type DonorRepository struct {
	mu     sync.RWMutex
	donors map[int64]*model.DonorProfile
}

func NewDonorRepository(donors ...*model.DonorProfile) *DonorRepository {
	r := &DonorRepository{donors: make(map[int64]*model.DonorProfile)}
	for _, d := range donors {
		r.Put(d)
	}
	return r
}

// Put inserts or replaces a donor.
func (r *DonorRepository) Put(d *model.DonorProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *d
	r.donors[d.ID] = &copied
}

func (r *DonorRepository) Get(_ context.Context, id int64) (*model.DonorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.donors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *DonorRepository) GetMany(_ context.Context, ids []int64) ([]*model.DonorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.DonorProfile
	for _, id := range ids {
		if d, ok := r.donors[id]; ok {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *DonorRepository) List(_ context.Context, filter model.DonorFilter) ([]*model.DonorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.DonorProfile
	for _, d := range r.donors {
		if filter.Matches(d) {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type RequestRepository struct {
	mu       sync.RWMutex
	nextID   int64
	requests map[int64]*model.DonorRequest
	refs     *ReferenceRepository
}

func NewRequestRepository(refs *ReferenceRepository) *RequestRepository {
	return &RequestRepository{
		requests: make(map[int64]*model.DonorRequest),
		refs:     refs,
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *model.DonorRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	if bt, err := r.refs.GetBloodType(ctx, req.BloodTypeID); err == nil {
		req.BloodType = bt.Name
	}
	if loc, err := r.refs.GetLocation(ctx, req.LocationID); err == nil {
		req.Location = loc.Name
	}
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *RequestRepository) Get(_ context.Context, id int64) (*model.DonorRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (r *RequestRepository) List(_ context.Context, filter model.RequestFilter) ([]*model.DonorRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*model.DonorRequest
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		copied := *req
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	page := filter.Pagination.Normalize()
	start := page.Offset()
	if start >= len(all) {
		return nil, nil
	}
	end := start + page.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *RequestRepository) UpdateStatus(_ context.Context, id int64, from, to model.RequestStatus, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != from {
		return repository.ErrStatusChanged
	}
	req.Status = to
	if completedAt != nil {
		req.CompletedAt = completedAt
	}
	req.UpdatedAt = time.Now()
	return nil
}

func (r *RequestRepository) RecordDispatch(_ context.Context, stats model.DispatchStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[stats.RequestID]
	if !ok {
		return repository.ErrNotFound
	}
	req.NotifiedCount += stats.Succeeded
	req.NotifyFailedCount += stats.Failed
	return nil
}

type confirmationKey struct {
	requestID int64
	donorID   int64
}

// ConfirmationRepository serializes all upserts behind one mutex, which
// gives the same per-key guarantee as the row lock in Postgres.
type ConfirmationRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[confirmationKey]*model.DonorConfirmation
}

func NewConfirmationRepository() *ConfirmationRepository {
	return &ConfirmationRepository{rows: make(map[confirmationKey]*model.DonorConfirmation)}
}

func (r *ConfirmationRepository) Upsert(_ context.Context, requestID, donorID int64, mutate repository.MutateFunc) (*model.DonorConfirmation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := confirmationKey{requestID, donorID}
	existing, ok := r.rows[key]
	var current *model.DonorConfirmation
	if ok {
		copied := *existing
		current = &copied
	}

	next := mutate(current)
	next.RequestID, next.DonorID = requestID, donorID
	if ok {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		next.ID = r.nextID
		next.CreatedAt = time.Now()
	}
	stored := *next
	r.rows[key] = &stored
	return next, !ok, nil
}

func (r *ConfirmationRepository) Get(_ context.Context, requestID, donorID int64) (*model.DonorConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[confirmationKey{requestID, donorID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *ConfirmationRepository) ListByRequest(_ context.Context, requestID int64) ([]*model.DonorConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DonorConfirmation
	for key, row := range r.rows {
		if key.requestID == requestID {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConfirmedAt.Equal(out[j].ConfirmedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ConfirmedAt.After(out[j].ConfirmedAt)
	})
	return out, nil
}

// CheckpointStore keeps checkpoints for the life of the process.
type CheckpointStore struct {
	mu     sync.Mutex
	values map[string]time.Time
}

func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{values: make(map[string]time.Time)}
}

func (s *CheckpointStore) Load(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.values[key]
	return t, ok, nil
}

func (s *CheckpointStore) Save(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = at
	return nil
}

var (
	_ repository.ReferenceRepository    = (*ReferenceRepository)(nil)
	_ repository.DonorRepository        = (*DonorRepository)(nil)
	_ repository.RequestRepository      = (*RequestRepository)(nil)
	_ repository.ConfirmationRepository = (*ConfirmationRepository)(nil)
	_ repository.CheckpointStore        = (*CheckpointStore)(nil)
)
