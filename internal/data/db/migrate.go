package db

import (
	"fmt"

	types "github.com/yungbote/weighting-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Weighting tree
		// =========================
		&types.WeightingPlan{},
		&types.WeightingTarget{},

		// =========================
		// Response weights
		// =========================
		&types.ResponseWeightingContext{},
		&types.ResponseWeight{},

		// =========================
		// Reports
		// =========================
		&types.SavedReport{},
	); err != nil {
		return err
	}
	if err := ensurePartialIndexes(db); err != nil {
		return err
	}
	if db.Dialector.Name() == "postgres" {
		return ensureForeignKeys(db)
	}
	return nil
}

// Partial unique indexes are not expressible through struct tags. Both
// Postgres and SQLite accept the same syntax.
var partialIndexes = []string{
	// one root plan per variable per subset; the composite index treats NULL parents as distinct
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_weighting_plan_root
		ON weighting_plan (product_short_code, sub_product_id, subset_id, variable_identifier)
		WHERE parent_weighting_target_id IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_rwc_target
		ON response_weighting_context (weighting_target_id)
		WHERE weighting_target_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_rwc_root
		ON response_weighting_context (product_short_code, sub_product_id, subset_id)
		WHERE weighting_target_id IS NULL`,
}

func ensurePartialIndexes(db *gorm.DB) error {
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}

type foreignKey struct {
	table, name, sql string
}

var foreignKeys = []foreignKey{
	{
		table: "weighting_target",
		name:  "fk_weighting_target_plan",
		sql: `ALTER TABLE weighting_target ADD CONSTRAINT fk_weighting_target_plan
			FOREIGN KEY (parent_weighting_plan_id) REFERENCES weighting_plan(id) ON DELETE CASCADE`,
	},
	{
		table: "weighting_plan",
		name:  "fk_weighting_plan_parent_target",
		sql: `ALTER TABLE weighting_plan ADD CONSTRAINT fk_weighting_plan_parent_target
			FOREIGN KEY (parent_weighting_target_id) REFERENCES weighting_target(id) ON DELETE NO ACTION`,
	},
	{
		table: "response_weighting_context",
		name:  "fk_rwc_target",
		sql: `ALTER TABLE response_weighting_context ADD CONSTRAINT fk_rwc_target
			FOREIGN KEY (weighting_target_id) REFERENCES weighting_target(id) ON DELETE NO ACTION`,
	},
	{
		table: "response_weight",
		name:  "fk_response_weight_context",
		sql: `ALTER TABLE response_weight ADD CONSTRAINT fk_response_weight_context
			FOREIGN KEY (response_weighting_context_id) REFERENCES response_weighting_context(id) ON DELETE CASCADE`,
	},
}

func ensureForeignKeys(db *gorm.DB) error {
	m := db.Migrator()
	for _, fk := range foreignKeys {
		if m.HasConstraint(fk.table, fk.name) {
			continue
		}
		if err := db.Exec(fk.sql).Error; err != nil {
			return fmt.Errorf("add %s: %w", fk.name, err)
		}
	}
	return nil
}
