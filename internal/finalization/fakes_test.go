package finalization

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/locks"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

var fixedNow = time.Date(2025, 5, 20, 15, 30, 0, 0, time.UTC)

type memStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*SessionState
	portraits map[uuid.UUID]string
	completed map[uuid.UUID]time.Time
	gets      int
	updates   []SessionUpdate
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  map[uuid.UUID]*SessionState{},
		portraits: map[uuid.UUID]string{},
		completed: map[uuid.UUID]time.Time{},
	}
}

func (s *memStore) put(st SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := st
	s.sessions[st.ID] = &cp
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	st, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, upd SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	st, ok := s.sessions[id]
	if !ok {
		return nil
	}
	s.updates = append(s.updates, upd)
	if upd.Status != nil {
		st.Status = *upd.Status
	}
	if upd.Progress != nil {
		st.Progress = *upd.Progress
	}
	if upd.Profile != nil {
		st.Profile = upd.Profile
	}
	if upd.Portrait != nil {
		s.portraits[id] = *upd.Portrait
	}
	if upd.CompletedAt != nil {
		s.completed[id] = *upd.CompletedAt
	}
	return nil
}

func (s *memStore) snapshot(id uuid.UUID) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.sessions[id]
}

func (s *memStore) progressWrites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, u := range s.updates {
		if u.Progress != nil {
			out = append(out, *u.Progress)
		}
	}
	return out
}

func (s *memStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

// memLocker is an in-process SessionLocker that counts calls.
type memLocker struct {
	mu        sync.Mutex
	held      map[uuid.UUID]string
	acquires  int
	releases  int
	contended bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[uuid.UUID]string{}}
}

func (l *memLocker) Acquire(_ context.Context, id uuid.UUID) (*locks.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if l.contended {
		return nil, locks.ErrContended
	}
	if _, ok := l.held[id]; ok {
		return nil, locks.ErrContended
	}
	token := uuid.NewString()
	l.held[id] = token
	return &locks.Lease{SessionID: id, Token: token}, nil
}

func (l *memLocker) Release(ctx context.Context, lease *locks.Lease) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases++
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if l.held[lease.SessionID] != lease.Token {
		return locks.ErrLeaseLost
	}
	delete(l.held, lease.SessionID)
	return nil
}

func (l *memLocker) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquires, l.releases
}

func (l *memLocker) isHeld(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[id]
	return ok
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan struct{}
	proceed chan struct{}
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, _ uuid.UUID) (*scoring.Profile, error) {
	a.mu.Lock()
	a.calls++
	err := a.err
	a.mu.Unlock()
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.proceed != nil {
		select {
		case <-a.proceed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return scoring.BuildProfile(nil, nil)
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakePortrait struct {
	mu    sync.Mutex
	calls int
	seen  *scoring.Profile
	err   error
}

func (p *fakePortrait) Write(_ context.Context, _ uuid.UUID, profile *scoring.Profile) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.seen = profile
	if p.err != nil {
		return "", p.err
	}
	return "A steady navigator.", nil
}

func (p *fakePortrait) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func finalizingSession(owner *uuid.UUID, progress string) SessionState {
	return SessionState{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      types.SessionStatusFinalizing,
		Progress:    progress,
	}
}
