package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/healthtrack/backend/internal/db"
	"github.com/healthtrack/backend/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeAccounts struct {
	mu      sync.Mutex
	byID    map[string]*model.User
	byEmail map[string]*model.User
	err     error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}}
}

func (f *fakeAccounts) CreateUser(_ context.Context, email, passwordHash, name string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.byEmail[email]; ok {
		return nil, db.ErrDuplicate
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		IsActive:     true,
	}
	f.byID[u.ID] = u
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeAccounts) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAccounts) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAccounts) deactivate(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].IsActive = false
}

func (f *fakeAccounts) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	delete(f.byID, id)
	delete(f.byEmail, u.Email)
}

type memRefreshRepo struct {
	mu      sync.Mutex
	records map[string]model.RefreshRecord
	err     error
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{records: map[string]model.RefreshRecord{}}
}

func (m *memRefreshRepo) InsertRefreshRecord(_ context.Context, rec model.RefreshRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.records[rec.SecretHash]; ok {
		return db.ErrDuplicate
	}
	m.records[rec.SecretHash] = rec
	return nil
}

func (m *memRefreshRepo) GetRefreshRecordByHash(_ context.Context, hash string) (*model.RefreshRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.records[hash]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &rec, nil
}

func (m *memRefreshRepo) DeleteRefreshRecordByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.records, hash)
	return nil
}

func (m *memRefreshRepo) DeleteExpiredRefreshRecords(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for h, rec := range m.records {
		if !now.Before(rec.ExpiresAt) {
			delete(m.records, h)
			n++
		}
	}
	return n, nil
}

func (m *memRefreshRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
