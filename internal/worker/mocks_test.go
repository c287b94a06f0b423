package worker_test

import (
	"context"
	"sync"
	"time"

	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/store"
	"basegraph.app/trigger/internal/trigger"
)

type mockBuildStore struct {
	mu     sync.Mutex
	builds map[int64]*model.Build
	getErr error
	// afterGet runs once the snapshot is taken, standing in for a concurrent delivery.
	afterGet func(id int64)

	started   []int64
	completed []int64
}

func newMockBuildStore(builds ...*model.Build) *mockBuildStore {
	m := &mockBuildStore{builds: make(map[int64]*model.Build)}
	for _, b := range builds {
		m.builds[b.ID] = b
	}
	return m
}

func (m *mockBuildStore) GetByID(_ context.Context, id int64) (*model.Build, error) {
	m.mu.Lock()
	if m.getErr != nil {
		m.mu.Unlock()
		return nil, m.getErr
	}
	b, ok := m.builds[id]
	if !ok {
		m.mu.Unlock()
		return nil, store.ErrNotFound
	}
	cp := *b
	m.mu.Unlock()

	if m.afterGet != nil {
		m.afterGet(id)
	}
	return &cp, nil
}

// setStatus changes a stored build behind the processor's back.
func (m *mockBuildStore) setStatus(id int64, status model.BuildStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds[id].Status = status
}

func (m *mockBuildStore) MarkStarted(_ context.Context, id int64, description *string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.builds[id]
	if b.Status != model.BuildStatusQueued {
		return store.ErrAlreadyTransitioned
	}
	b.Status = model.BuildStatusStarted
	b.Description = description
	b.StartedAt = &at
	m.started = append(m.started, id)
	return nil
}

func (m *mockBuildStore) MarkCompleted(_ context.Context, id int64, result, url string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.builds[id]
	if b.Status == model.BuildStatusCompleted {
		return store.ErrAlreadyTransitioned
	}
	b.Status = model.BuildStatusCompleted
	b.Result = &result
	b.URL = &url
	b.FinishedAt = &at
	m.completed = append(m.completed, id)
	return nil
}

type mockTriggers struct {
	svc *trigger.Service
	err error
}

func (m *mockTriggers) Service(context.Context, string) (*trigger.Service, error) {
	return m.svc, m.err
}

type releaseCall struct {
	Key   string
	Owner string
}

type mockPending struct {
	calls []releaseCall
}

func (m *mockPending) Release(_ context.Context, key, owner string) error {
	m.calls = append(m.calls, releaseCall{Key: key, Owner: owner})
	return nil
}

type noteCall struct {
	ProjectID int64
	IID       int64
	Body      string
}

type mockNotePoster struct {
	calls []noteCall
}

func (m *mockNotePoster) PostMergeRequestNote(_ context.Context, projectID, iid int64, body string) error {
	m.calls = append(m.calls, noteCall{ProjectID: projectID, IID: iid, Body: body})
	return nil
}

type mockConsumer struct {
	mu       sync.Mutex
	batches  [][]queue.Message
	acked    []string
	requeued []string
	dlq      []string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(_ context.Context, msg queue.Message, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, msg.ID)
	return nil
}

func (m *mockConsumer) SendDLQ(_ context.Context, msg queue.Message, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlq = append(m.dlq, msg.ID)
	return nil
}

func (m *mockConsumer) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

type mockClaimer struct {
	mu      sync.Mutex
	batches [][]queue.StaleMessage
	err     error
	calls   int
}

func (m *mockClaimer) ClaimStale(context.Context, time.Duration, int64) ([]queue.StaleMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func (m *mockClaimer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockConsumer) DLQ() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dlq...)
}
