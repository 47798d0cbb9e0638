package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"job-marketplace-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) Create(ctx context.Context, job *domain.Job, evt *domain.Event) error {
	return m.Called(ctx, job, evt).Error(0)
}

func (m *MockJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepo) Update(ctx context.Context, job *domain.Job, evt *domain.Event) error {
	return m.Called(ctx, job, evt).Error(0)
}

func (m *MockJobRepo) Delete(ctx context.Context, id string, evt *domain.Event) error {
	return m.Called(ctx, id, evt).Error(0)
}

func (m *MockJobRepo) FetchOpen(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}

func (m *MockJobRepo) FetchByEmployer(ctx context.Context, employerID string, limit, offset int) ([]domain.Job, error) {
	args := m.Called(ctx, employerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}

func (m *MockJobRepo) FetchAll(ctx context.Context, limit, offset int) ([]domain.Job, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) FetchPending(ctx context.Context, olderThan time.Time, limit int) ([]domain.OutboxRecord, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxRecord), args.Error(1)
}

func (m *MockOutboxRepo) MarkPublished(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockOutboxRepo) MarkFailed(ctx context.Context, eventID string, cause error) error {
	return m.Called(ctx, eventID, cause).Error(0)
}

func (m *MockOutboxRepo) PurgePublished(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evt *domain.Event) error {
	return m.Called(ctx, evt).Error(0)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) OwnershipViolation(ctx context.Context, action, jobID, callerID string) {
	m.Called(ctx, action, jobID, callerID)
}

// fakeIndex is an in-memory search index that honours external versioning.
type fakeIndex struct {
	mu        sync.Mutex
	docs      map[string]domain.SearchDocument
	versions  map[string]int64
	failNext  error
	upserts   int
	deletions int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[string]domain.SearchDocument{}, versions: map[string]int64{}}
}

func (f *fakeIndex) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeIndex) Upsert(_ context.Context, doc domain.SearchDocument, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if cur, ok := f.versions[doc.ID]; ok && cur > version {
		return domain.ErrStaleDocument
	}
	f.docs[doc.ID] = doc
	f.versions[doc.ID] = version
	f.upserts++
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if cur, ok := f.versions[id]; ok && cur > version {
		return domain.ErrStaleDocument
	}
	delete(f.docs, id)
	f.versions[id] = version
	f.deletions++
	return nil
}

func (f *fakeIndex) Search(_ context.Context, text string, fields []string, limit int) ([]domain.SearchDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	var out []domain.SearchDocument
	for _, id := range f.sortedIDs() {
		doc := f.docs[id]
		for _, skill := range doc.RequiredSkills {
			if skill == text {
				out = append(out, doc)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeIndex) IDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	return f.sortedIDs(), nil
}

func (f *fakeIndex) sortedIDs() []string {
	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeIndex) get(id string) (domain.SearchDocument, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	return doc, ok
}

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func sampleJob(id, employerID string, at time.Time) *domain.Job {
	return &domain.Job{
		ID:              id,
		EmployerID:      employerID,
		Title:           "Backend Engineer",
		Description:     "Build APIs",
		JobType:         domain.JobTypeFullTime,
		ExperienceLevel: domain.ExperienceMid,
		MinSalary:       intPtr(50000),
		MaxSalary:       intPtr(90000),
		RequiredSkills:  []string{"Go", "SQL"},
		Status:          domain.JobStatusOpen,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}
