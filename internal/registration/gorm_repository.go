package registration

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursely/internal/waitlist"
)

// GormRepository persists registration state in Postgres.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps a gorm handle.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the registration tables.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&SeatConfig{}, &SeatBooking{}, &waitlist.Entry{}, &RegistrationEvent{})
}

func (r *GormRepository) Apply(ctx context.Context, cs ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(cs.ReleaseBookings) > 0 {
			now := time.Now().UTC()
			if err := tx.Model(&SeatBooking{}).
				Where("id IN ?", cs.ReleaseBookings).
				Updates(map[string]interface{}{"active": false, "released_at": now}).Error; err != nil {
				return err
			}
		}
		for i := range cs.CreateBookings {
			if err := tx.Create(&cs.CreateBookings[i]).Error; err != nil {
				return err
			}
		}
		for i := range cs.UpsertEntries {
			entry := cs.UpsertEntries[i]
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&entry).Error; err != nil {
				return err
			}
		}
		if cs.UpsertConfig != nil {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "course_id"}},
				UpdateAll: true,
			}).Create(cs.UpsertConfig).Error; err != nil {
				return err
			}
		}
		if len(cs.Events) > 0 {
			if err := tx.Create(&cs.Events).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRepoConflict
		}
		return err
	}
	return nil
}

func (r *GormRepository) SeatConfigs(ctx context.Context) ([]SeatConfig, error) {
	var out []SeatConfig
	err := r.db.WithContext(ctx).Order("course_id").Find(&out).Error
	return out, err
}

func (r *GormRepository) SeatConfig(ctx context.Context, courseID string) (*SeatConfig, error) {
	var cfg SeatConfig
	err := r.db.WithContext(ctx).Where("course_id = ?", courseID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *GormRepository) ActiveBookings(ctx context.Context, courseID string) ([]SeatBooking, error) {
	var out []SeatBooking
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND active = ?", courseID, true).
		Order("seat_label").
		Find(&out).Error
	return out, err
}

func (r *GormRepository) StudentBookings(ctx context.Context, studentID string) ([]SeatBooking, error) {
	var out []SeatBooking
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("booked_at").
		Find(&out).Error
	return out, err
}

func (r *GormRepository) WaitingEntries(ctx context.Context, courseID string) ([]waitlist.Entry, error) {
	var out []waitlist.Entry
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND status NOT IN ?", courseID, []waitlist.Status{
			waitlist.StatusAllocated, waitlist.StatusExpired, waitlist.StatusCancelled,
		}).
		Order("score_composite DESC, applied_at ASC, student_id ASC").
		Find(&out).Error
	return out, err
}

func (r *GormRepository) StudentEntries(ctx context.Context, studentID string) ([]waitlist.Entry, error) {
	var out []waitlist.Entry
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("applied_at").
		Find(&out).Error
	return out, err
}

func (r *GormRepository) Events(ctx context.Context, courseID string, limit int) ([]RegistrationEvent, error) {
	q := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []RegistrationEvent
	err := q.Find(&out).Error
	return out, err
}
