package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

var _ core.IdentityStore = (*PostgresIdentityStore)(nil)

// identityRecord is the row layout of the identities table.
type identityRecord struct {
	Ref         string `gorm:"primaryKey;size:128"`
	Email       string `gorm:"size:320;index"`
	Role        string `gorm:"size:64;default:'user'"`
	AccessLevel int    `gorm:"not null;default:0"`
	Active      bool   `gorm:"not null;default:true"`
	Enrolled    bool   `gorm:"not null;default:false"`
	EnrolledAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (identityRecord) TableName() string {
	return "identities"
}

func (r identityRecord) toCore() *core.Identity {
	return &core.Identity{
		Ref:         r.Ref,
		Email:       r.Email,
		Role:        r.Role,
		AccessLevel: r.AccessLevel,
		Active:      r.Active,
		Enrolled:    r.Enrolled,
	}
}

// PostgresIdentityStore reads identities from the user directory database.
type PostgresIdentityStore struct {
	db *gorm.DB
}

// NewPostgresIdentityStore connects to the database. With migrate set, the identities
// table is created or updated.
func NewPostgresIdentityStore(dsn string, migrate bool) (*PostgresIdentityStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to identity database: %w", err)
	}
	if migrate {
		if err := db.AutoMigrate(&identityRecord{}); err != nil {
			return nil, fmt.Errorf("migrating identities table: %w", err)
		}
	}
	return &PostgresIdentityStore{db: db}, nil
}

func (s *PostgresIdentityStore) Get(ctx context.Context, ref string) (*core.Identity, error) {
	var rec identityRecord
	err := s.db.WithContext(ctx).First(&rec, "ref = ?", ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("loading identity: %w", err)
	}
	return rec.toCore(), nil
}

func (s *PostgresIdentityStore) MarkEnrolled(ctx context.Context, ref string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&identityRecord{}).
		Where("ref = ?", ref).
		Updates(map[string]any{"enrolled": true, "enrolled_at": now})
	if res.Error != nil {
		return fmt.Errorf("marking identity enrolled: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrIdentityNotFound
	}
	return nil
}

func (s *PostgresIdentityStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
