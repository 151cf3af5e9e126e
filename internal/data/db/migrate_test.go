package db

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
	"gorm.io/gorm"
)

func openMigrated(t *testing.T) *gorm.DB {
	t.Helper()
	svc, err := NewSQLiteService(logger.NewNop(), ":memory:", true)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// idempotent
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	return svc.DB()
}

func TestAutoMigrateCreatesTablesAndIndexes(t *testing.T) {
	db := openMigrated(t)
	m := db.Migrator()
	for _, table := range []string{"weighting_plan", "weighting_target", "response_weighting_context", "response_weight", "saved_report"} {
		if !m.HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	for _, idx := range []string{"ux_weighting_plan_root", "ux_rwc_target", "ux_rwc_root"} {
		var n int64
		if err := db.Raw(`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, idx).Scan(&n).Error; err != nil {
			t.Fatalf("lookup %s: %v", idx, err)
		}
		if n != 1 {
			t.Fatalf("missing index %s", idx)
		}
	}
}

func TestRootContextUniqueIndex(t *testing.T) {
	db := openMigrated(t)
	first := &types.ResponseWeightingContext{ProductShortCode: "eatingout", SubsetID: "UK"}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("create first root: %v", err)
	}
	second := &types.ResponseWeightingContext{ProductShortCode: "eatingout", SubsetID: "UK"}
	err := db.Create(second).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	other := &types.ResponseWeightingContext{ProductShortCode: "eatingout", SubsetID: "US"}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("root for another subset: %v", err)
	}
}

func TestTargetContextUniqueIndex(t *testing.T) {
	db := openMigrated(t)
	target := uuid.New()
	if err := db.Create(&types.ResponseWeightingContext{ProductShortCode: "eatingout", SubsetID: "UK", WeightingTargetID: &target}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	err := db.Create(&types.ResponseWeightingContext{ProductShortCode: "eatingout", SubsetID: "UK", WeightingTargetID: &target}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestRootPlanVariableUniqueIndex(t *testing.T) {
	db := openMigrated(t)
	if err := db.Create(&types.WeightingPlan{ProductShortCode: "eatingout", SubsetID: "UK", VariableIdentifier: "gender"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	err := db.Create(&types.WeightingPlan{ProductShortCode: "eatingout", SubsetID: "UK", VariableIdentifier: "gender"}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	got := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "weighting"}.DSN()
	if got != "postgres://u:p@db:5432/weighting?sslmode=disable" {
		t.Fatalf("dsn: %s", got)
	}
}
