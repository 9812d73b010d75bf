package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"instaguard/internal/models"
)

// decisionRow is the SQLite shape of a decision.
type decisionRow struct {
	ID           string  `gorm:"primaryKey"`
	Username     string  `gorm:"not null;index"`
	RequestedBy  *string `gorm:"index"`
	Features     []byte
	Label        string `gorm:"not null"`
	Confidence   *float64
	ModelVersion string    `gorm:"not null"`
	Source       string    `gorm:"not null"`
	Note         string    `gorm:"not null;default:''"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (decisionRow) TableName() string { return "decisions" }

type userRow struct {
	ID        string `gorm:"primaryKey"`
	Sub       string `gorm:"not null;uniqueIndex"`
	Email     string `gorm:"not null;default:''"`
	Name      string `gorm:"not null;default:''"`
	Role      string `gorm:"not null;default:'user'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }

// SQLiteStore is the local single-file decision store.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// migrates its schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := gdb.AutoMigrate(&userRow{}, &decisionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return &SQLiteStore{db: gdb}, nil
}

func (s *SQLiteStore) RecordDecision(ctx context.Context, dec *models.Decision) (uuid.UUID, error) {
	if err := prepareDecision(dec); err != nil {
		return uuid.Nil, err
	}
	features, err := marshalSignals(dec.Signals)
	if err != nil {
		return uuid.Nil, err
	}

	row := decisionRow{
		ID:           dec.ID.String(),
		Username:     dec.Username,
		Features:     features,
		Label:        dec.Label,
		Confidence:   dec.Confidence,
		ModelVersion: dec.ModelVersion,
		Source:       dec.Source,
		Note:         dec.Note,
		CreatedAt:    dec.CreatedAt.UTC(),
	}
	if dec.RequestedBy != nil {
		id := dec.RequestedBy.String()
		row.RequestedBy = &id
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to record decision: %w", err)
	}
	return dec.ID, nil
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, f models.DecisionFilter) ([]models.Decision, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id").Limit(clampLimit(f.Limit))
	if f.RequestedBy != nil {
		q = q.Where("requested_by = ?", f.RequestedBy.String())
	}

	var rows []decisionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	decisions := make([]models.Decision, 0, len(rows))
	for _, r := range rows {
		dec, err := r.toModel()
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, dec)
	}
	return decisions, nil
}

func (r decisionRow) toModel() (models.Decision, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return models.Decision{}, fmt.Errorf("stored decision id: %w", err)
	}
	dec := models.Decision{
		ID:           id,
		Username:     r.Username,
		Label:        r.Label,
		Confidence:   r.Confidence,
		ModelVersion: r.ModelVersion,
		Source:       r.Source,
		Note:         r.Note,
		CreatedAt:    r.CreatedAt,
	}
	if r.RequestedBy != nil {
		by, err := uuid.Parse(*r.RequestedBy)
		if err != nil {
			return models.Decision{}, fmt.Errorf("stored requester id: %w", err)
		}
		dec.RequestedBy = &by
	}
	if dec.Signals, err = unmarshalSignals(r.Features); err != nil {
		return models.Decision{}, err
	}
	return dec, nil
}

func (s *SQLiteStore) CountDecisionsByLabel(ctx context.Context) ([]models.LabelCount, error) {
	var counts []models.LabelCount
	err := s.db.WithContext(ctx).
		Model(&decisionRow{}).
		Select("label, COUNT(*) AS count").
		Group("label").
		Order("label").
		Scan(&counts).Error
	return counts, err
}

// UpsertUser creates or updates a user based on their OIDC subject.
// The role is only set on insert.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		err := tx.Where("sub = ?", user.Sub).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = userRow{
				ID:    uuid.NewString(),
				Sub:   user.Sub,
				Email: user.Email,
				Name:  user.Name,
				Role:  user.Role,
			}
			if row.Role == "" {
				row.Role = models.RoleUser
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			row.Email = user.Email
			row.Name = user.Name
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return row.into(user)
	})
}

func (r userRow) into(u *models.User) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("stored user id: %w", err)
	}
	u.ID = id
	u.Sub = r.Sub
	u.Email = r.Email
	u.Name = r.Name
	u.Role = r.Role
	u.CreatedAt = r.CreatedAt
	u.UpdatedAt = r.UpdatedAt
	return nil
}

func (s *SQLiteStore) GetUserBySub(ctx context.Context, sub string) (*models.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("sub = ?", sub).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := row.into(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
