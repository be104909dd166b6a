package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/peakfit/peakfit/models"
)

// NewMemoryStore returns a Store backed by in-process maps. It mirrors the
// gorm store's contract, including the uniqueness guards on attendance days
// and ledger references (both reported as gorm.ErrDuplicatedKey), so the
// service layer behaves identically against either backend. Used by tests
// and local tooling.
func NewMemoryStore() Store {
	return &memoryStore{state: newMemoryState()}
}

type memoryState struct {
	nextID      uint
	gyms        map[uint]models.Gym
	presences   map[uint]models.Presence
	attendances map[uint]models.Attendance
	frequencies map[uint]models.Frequency
	histories   []models.FrequencyHistory
	streaks     map[uint]models.Streak
	ledger      []models.TokenLedgerEntry
}

func newMemoryState() *memoryState {
	return &memoryState{
		gyms:        map[uint]models.Gym{},
		presences:   map[uint]models.Presence{},
		attendances: map[uint]models.Attendance{},
		frequencies: map[uint]models.Frequency{},
		streaks:     map[uint]models.Streak{},
	}
}

// clone copies the state for rollback. Values are stored by value, so a
// shallow map copy is a sufficient snapshot: mutations always go through
// Save/Create with fresh copies.
func (st *memoryState) clone() *memoryState {
	c := newMemoryState()
	c.nextID = st.nextID
	for k, v := range st.gyms {
		c.gyms[k] = v
	}
	for k, v := range st.presences {
		c.presences[k] = v
	}
	for k, v := range st.attendances {
		c.attendances[k] = v
	}
	for k, v := range st.frequencies {
		c.frequencies[k] = v
	}
	for k, v := range st.streaks {
		c.streaks[k] = v
	}
	c.histories = append([]models.FrequencyHistory(nil), st.histories...)
	c.ledger = append([]models.TokenLedgerEntry(nil), st.ledger...)
	return c
}

func (st *memoryState) id() uint {
	st.nextID++
	return st.nextID
}

type memoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func (s *memoryStore) Atomically(ctx context.Context, fn func(uow UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(&memoryUow{s: s, locked: true}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *memoryStore) Gyms() GymRepository               { return (&memoryUow{s: s}).Gyms() }
func (s *memoryStore) Presences() PresenceRepository     { return (&memoryUow{s: s}).Presences() }
func (s *memoryStore) Attendances() AttendanceRepository { return (&memoryUow{s: s}).Attendances() }
func (s *memoryStore) Frequencies() FrequencyRepository  { return (&memoryUow{s: s}).Frequencies() }
func (s *memoryStore) Streaks() StreakRepository         { return (&memoryUow{s: s}).Streaks() }
func (s *memoryStore) Ledger() LedgerRepository          { return (&memoryUow{s: s}).Ledger() }

// memoryUow carries whether the surrounding Atomically already holds the
// store lock.
type memoryUow struct {
	s      *memoryStore
	locked bool
}

func (u *memoryUow) acquire() func() {
	if u.locked {
		return func() {}
	}
	u.s.mu.Lock()
	return u.s.mu.Unlock
}

func (u *memoryUow) Gyms() GymRepository               { return memGyms{u} }
func (u *memoryUow) Presences() PresenceRepository     { return memPresences{u} }
func (u *memoryUow) Attendances() AttendanceRepository { return memAttendances{u} }
func (u *memoryUow) Frequencies() FrequencyRepository  { return memFrequencies{u} }
func (u *memoryUow) Streaks() StreakRepository         { return memStreaks{u} }
func (u *memoryUow) Ledger() LedgerRepository          { return memLedger{u} }

type memGyms struct{ u *memoryUow }

func (r memGyms) ByID(_ context.Context, id uint) (*models.Gym, error) {
	defer r.u.acquire()()
	if g, ok := r.u.s.state.gyms[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (r memGyms) List(_ context.Context) ([]models.Gym, error) {
	defer r.u.acquire()()
	out := make([]models.Gym, 0, len(r.u.s.state.gyms))
	for _, g := range r.u.s.state.gyms {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memGyms) Create(_ context.Context, gym *models.Gym) error {
	defer r.u.acquire()()
	gym.ID = r.u.s.state.id()
	r.u.s.state.gyms[gym.ID] = *gym
	return nil
}

func (r memGyms) Save(_ context.Context, gym *models.Gym) error {
	defer r.u.acquire()()
	r.u.s.state.gyms[gym.ID] = *gym
	return nil
}

type memPresences struct{ u *memoryUow }

func (r memPresences) ActiveForUserGym(_ context.Context, userID, gymID uint) (*models.Presence, error) {
	defer r.u.acquire()()
	var found *models.Presence
	for _, p := range r.u.s.state.presences {
		p := p
		if p.UserID == userID && p.GymID == gymID && p.Active() {
			if found == nil || p.ID > found.ID {
				found = &p
			}
		}
	}
	return found, nil
}

func (r memPresences) ActiveForUser(_ context.Context, userID uint) ([]models.Presence, error) {
	defer r.u.acquire()()
	var out []models.Presence
	for _, p := range r.u.s.state.presences {
		if p.UserID == userID && p.Active() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memPresences) Create(_ context.Context, p *models.Presence) error {
	defer r.u.acquire()()
	p.ID = r.u.s.state.id()
	r.u.s.state.presences[p.ID] = *p
	return nil
}

func (r memPresences) Save(_ context.Context, p *models.Presence) error {
	defer r.u.acquire()()
	r.u.s.state.presences[p.ID] = *p
	return nil
}

type memAttendances struct{ u *memoryUow }

func (r memAttendances) ByID(_ context.Context, id uint) (*models.Attendance, error) {
	defer r.u.acquire()()
	if a, ok := r.u.s.state.attendances[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r memAttendances) ForUserGymDay(_ context.Context, userID, gymID uint, day time.Time) (*models.Attendance, error) {
	defer r.u.acquire()()
	for _, a := range r.u.s.state.attendances {
		a := a
		if a.UserID == userID && a.GymID == gymID && a.Day.Equal(day) {
			return &a, nil
		}
	}
	return nil, nil
}

func (r memAttendances) ListForUser(_ context.Context, userID uint, limit int) ([]models.Attendance, error) {
	defer r.u.acquire()()
	var out []models.Attendance
	for _, a := range r.u.s.state.attendances {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInAt.After(out[j].CheckInAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memAttendances) Create(_ context.Context, a *models.Attendance) error {
	defer r.u.acquire()()
	for _, existing := range r.u.s.state.attendances {
		if existing.UserID == a.UserID && existing.GymID == a.GymID && existing.Day.Equal(a.Day) {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = r.u.s.state.id()
	r.u.s.state.attendances[a.ID] = *a
	return nil
}

func (r memAttendances) Save(_ context.Context, a *models.Attendance) error {
	defer r.u.acquire()()
	r.u.s.state.attendances[a.ID] = *a
	return nil
}

type memFrequencies struct{ u *memoryUow }

func (r memFrequencies) ForUser(_ context.Context, userID uint) (*models.Frequency, error) {
	defer r.u.acquire()()
	for _, f := range r.u.s.state.frequencies {
		f := f
		if f.UserID == userID {
			return &f, nil
		}
	}
	return nil, nil
}

func (r memFrequencies) Create(_ context.Context, f *models.Frequency) error {
	defer r.u.acquire()()
	f.ID = r.u.s.state.id()
	r.u.s.state.frequencies[f.ID] = *f
	return nil
}

func (r memFrequencies) Save(_ context.Context, f *models.Frequency) error {
	defer r.u.acquire()()
	r.u.s.state.frequencies[f.ID] = *f
	return nil
}

func (r memFrequencies) Archive(_ context.Context, h *models.FrequencyHistory) error {
	defer r.u.acquire()()
	h.ID = r.u.s.state.id()
	r.u.s.state.histories = append(r.u.s.state.histories, *h)
	return nil
}

func (r memFrequencies) History(_ context.Context, userID uint, limit int) ([]models.FrequencyHistory, error) {
	defer r.u.acquire()()
	var out []models.FrequencyHistory
	for _, h := range r.u.s.state.histories {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memStreaks struct{ u *memoryUow }

func (r memStreaks) ForUser(_ context.Context, userID uint) (*models.Streak, error) {
	defer r.u.acquire()()
	for _, s := range r.u.s.state.streaks {
		s := s
		if s.UserID == userID {
			return &s, nil
		}
	}
	return nil, nil
}

func (r memStreaks) Create(_ context.Context, s *models.Streak) error {
	defer r.u.acquire()()
	s.ID = r.u.s.state.id()
	r.u.s.state.streaks[s.ID] = *s
	return nil
}

func (r memStreaks) Save(_ context.Context, s *models.Streak) error {
	defer r.u.acquire()()
	r.u.s.state.streaks[s.ID] = *s
	return nil
}

type memLedger struct{ u *memoryUow }

func (r memLedger) Latest(_ context.Context, userID uint) (*models.TokenLedgerEntry, error) {
	defer r.u.acquire()()
	for i := len(r.u.s.state.ledger) - 1; i >= 0; i-- {
		if r.u.s.state.ledger[i].UserID == userID {
			e := r.u.s.state.ledger[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (r memLedger) RefExists(_ context.Context, userID uint, refType string, refID uint, reason string) (bool, error) {
	defer r.u.acquire()()
	for _, e := range r.u.s.state.ledger {
		if e.UserID == userID && e.Reason == reason &&
			e.RefType != nil && *e.RefType == refType &&
			e.RefID != nil && *e.RefID == refID {
			return true, nil
		}
	}
	return false, nil
}

func (r memLedger) Append(_ context.Context, e *models.TokenLedgerEntry) error {
	defer r.u.acquire()()
	if e.RefType != nil && e.RefID != nil {
		for _, prev := range r.u.s.state.ledger {
			if prev.UserID == e.UserID && prev.Reason == e.Reason &&
				prev.RefType != nil && *prev.RefType == *e.RefType &&
				prev.RefID != nil && *prev.RefID == *e.RefID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	e.ID = r.u.s.state.id()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.u.s.state.ledger = append(r.u.s.state.ledger, *e)
	return nil
}

func (r memLedger) List(_ context.Context, userID uint, limit, offset int) ([]models.TokenLedgerEntry, error) {
	defer r.u.acquire()()
	var out []models.TokenLedgerEntry
	for i := len(r.u.s.state.ledger) - 1; i >= 0; i-- {
		if r.u.s.state.ledger[i].UserID == userID {
			out = append(out, r.u.s.state.ledger[i])
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
