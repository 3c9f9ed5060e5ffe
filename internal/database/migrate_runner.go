package database

import (
	"context"
	"fmt"
	"time"

	"foodgram/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog records one applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Migrator applies and rolls back a Catalog, tracking progress in migration_logs.
type Migrator struct {
	db      *gorm.DB
	catalog Catalog
}

// NewMigrator runs the embedded migrations against db.
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, catalog: embedded}
}

func newMigratorWithCatalog(db *gorm.DB, c Catalog) *Migrator {
	return &Migrator{db: db, catalog: c}
}

// Catalog returns the migrations this Migrator knows about.
func (m *Migrator) Catalog() Catalog {
	return m.catalog
}

func (m *Migrator) ensureLog(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}
	return nil
}

// Applied lists applied versions in ascending order. A database that was
// never migrated has none.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	versions := []int{}
	if !m.db.WithContext(ctx).Migrator().HasTable(&MigrationLog{}) {
		return versions, nil
	}
	if err := m.db.WithContext(ctx).Model(&MigrationLog{}).Order("version").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return versions, nil
}

// Up applies every pending migration in version order, each in its own
// transaction, and returns the ones it applied.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	if err := m.ensureLog(ctx); err != nil {
		return nil, err
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.catalog.checkApplied(applied); err != nil {
		return nil, err
	}

	var done []Migration
	for _, mig := range m.catalog.Pending(applied) {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationLog{Version: mig.Version, Name: mig.Name}).Error
		})
		if err != nil {
			return done, fmt.Errorf("apply %s: %w", mig.ID(), err)
		}
		middleware.Logger.InfoContext(ctx, "migration applied", "migration", mig.ID())
		done = append(done, mig)
	}
	return done, nil
}

// Down runs the rollback script of an applied migration and forgets it.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig, ok := m.catalog.Find(version)
	if !ok {
		return fmt.Errorf("migration %06d is not part of this build", version)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !containsVersion(applied, version) {
		return fmt.Errorf("migration %s has not been applied", mig.ID())
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.Down).Error; err != nil {
			return err
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return fmt.Errorf("roll back %s: %w", mig.ID(), err)
	}
	middleware.Logger.InfoContext(ctx, "migration rolled back", "migration", mig.ID())
	return nil
}

func containsVersion(versions []int, v int) bool {
	for _, x := range versions {
		if x == v {
			return true
		}
	}
	return false
}
