package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// Migrate creates the schema, seeds permissions and adds the composite indexes.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("Running database migrations")
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := SeedPermissions(db); err != nil {
		return err
	}
	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	log.Info("Database migrations completed")
	return nil
}

// SeedPermissions inserts the fixed permission codes, leaving existing rows alone.
func SeedPermissions(db *gorm.DB) error {
	perms := models.DefaultPermissions()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&perms).Error
	if err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}
	return nil
}

// AddIndexes adds the multi-column indexes the list and report queries rely on.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"tasks", "idx_tasks_org_status", "organization_id, status"},
		{"tasks", "idx_tasks_org_due_date", "organization_id, due_date"},
		{"tasks", "idx_tasks_org_project", "organization_id, project_id"},
		{"task_histories", "idx_task_histories_task_timestamp", "task_id, timestamp"},
		{"messages", "idx_messages_conversation_timestamp", "conversation_id, timestamp"},
		{"calendar_events", "idx_calendar_events_org_start", "organization_id, start_time"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.Debug("Created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}
