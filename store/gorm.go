package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/peakfit/peakfit/models"
)

// NewGormStore wraps a gorm connection in the Store interface. Atomically
// maps onto gorm's Transaction, so nested units of work reuse MySQL
// savepoints the way gorm defines them.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) Atomically(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Gyms() GymRepository               { return gormGyms{s.db} }
func (s *gormStore) Presences() PresenceRepository     { return gormPresences{s.db} }
func (s *gormStore) Attendances() AttendanceRepository { return gormAttendances{s.db} }
func (s *gormStore) Frequencies() FrequencyRepository  { return gormFrequencies{s.db} }
func (s *gormStore) Streaks() StreakRepository         { return gormStreaks{s.db} }
func (s *gormStore) Ledger() LedgerRepository          { return gormLedger{s.db} }

// firstOrNil normalizes gorm's not-found error into a nil row.
func firstOrNil[T any](err error, row *T) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

type gormGyms struct{ db *gorm.DB }

func (r gormGyms) ByID(ctx context.Context, id uint) (*models.Gym, error) {
	var gym models.Gym
	err := r.db.WithContext(ctx).First(&gym, id).Error
	return firstOrNil(err, &gym)
}

func (r gormGyms) List(ctx context.Context) ([]models.Gym, error) {
	var gyms []models.Gym
	err := r.db.WithContext(ctx).Order("id").Find(&gyms).Error
	return gyms, err
}

func (r gormGyms) Create(ctx context.Context, gym *models.Gym) error {
	return r.db.WithContext(ctx).Create(gym).Error
}

func (r gormGyms) Save(ctx context.Context, gym *models.Gym) error {
	return r.db.WithContext(ctx).Save(gym).Error
}

type gormPresences struct{ db *gorm.DB }

func (r gormPresences) ActiveForUserGym(ctx context.Context, userID, gymID uint) (*models.Presence, error) {
	var p models.Presence
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND gym_id = ? AND status <> ?", userID, gymID, models.PresenceExited).
		Order("id DESC").
		First(&p).Error
	return firstOrNil(err, &p)
}

func (r gormPresences) ActiveForUser(ctx context.Context, userID uint) ([]models.Presence, error) {
	var out []models.Presence
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, models.PresenceExited).
		Order("id DESC").
		Find(&out).Error
	return out, err
}

func (r gormPresences) Create(ctx context.Context, p *models.Presence) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r gormPresences) Save(ctx context.Context, p *models.Presence) error {
	return r.db.WithContext(ctx).Save(p).Error
}

type gormAttendances struct{ db *gorm.DB }

func (r gormAttendances) ByID(ctx context.Context, id uint) (*models.Attendance, error) {
	var a models.Attendance
	err := r.db.WithContext(ctx).First(&a, id).Error
	return firstOrNil(err, &a)
}

func (r gormAttendances) ForUserGymDay(ctx context.Context, userID, gymID uint, day time.Time) (*models.Attendance, error) {
	var a models.Attendance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND gym_id = ? AND day = ?", userID, gymID, day).
		First(&a).Error
	return firstOrNil(err, &a)
}

func (r gormAttendances) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Attendance, error) {
	var out []models.Attendance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("check_in_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r gormAttendances) Create(ctx context.Context, a *models.Attendance) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r gormAttendances) Save(ctx context.Context, a *models.Attendance) error {
	return r.db.WithContext(ctx).Save(a).Error
}

type gormFrequencies struct{ db *gorm.DB }

func (r gormFrequencies) ForUser(ctx context.Context, userID uint) (*models.Frequency, error) {
	var f models.Frequency
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&f).Error
	return firstOrNil(err, &f)
}

func (r gormFrequencies) Create(ctx context.Context, f *models.Frequency) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r gormFrequencies) Save(ctx context.Context, f *models.Frequency) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r gormFrequencies) Archive(ctx context.Context, h *models.FrequencyHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r gormFrequencies) History(ctx context.Context, userID uint, limit int) ([]models.FrequencyHistory, error) {
	var out []models.FrequencyHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("week_start DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

type gormStreaks struct{ db *gorm.DB }

func (r gormStreaks) ForUser(ctx context.Context, userID uint) (*models.Streak, error) {
	var s models.Streak
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&s).Error
	return firstOrNil(err, &s)
}

func (r gormStreaks) Create(ctx context.Context, s *models.Streak) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r gormStreaks) Save(ctx context.Context, s *models.Streak) error {
	return r.db.WithContext(ctx).Save(s).Error
}

type gormLedger struct{ db *gorm.DB }

func (r gormLedger) Latest(ctx context.Context, userID uint) (*models.TokenLedgerEntry, error) {
	var e models.TokenLedgerEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&e).Error
	return firstOrNil(err, &e)
}

func (r gormLedger) RefExists(ctx context.Context, userID uint, refType string, refID uint, reason string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.TokenLedgerEntry{}).
		Where("user_id = ? AND ref_type = ? AND ref_id = ? AND reason = ?", userID, refType, refID, reason).
		Count(&n).Error
	return n > 0, err
}

func (r gormLedger) Append(ctx context.Context, e *models.TokenLedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r gormLedger) List(ctx context.Context, userID uint, limit, offset int) ([]models.TokenLedgerEntry, error) {
	var out []models.TokenLedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}
