//go:build !wasm
// +build !wasm

package gorm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	hb "github.com/panyam/habitbuddy"
	gormstore "github.com/panyam/habitbuddy/stores/gorm"
	"github.com/panyam/habitbuddy/stores/storetest"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := gormstore.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	return db
}

func TestGormStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) hb.Store {
		return gormstore.NewStore(openTestDB(t))
	})
}

func TestGormUniqueEmailIndex(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Bypass the store's pre-check to make sure the index itself rejects duplicates
	first := &gormstore.UserModel{ID: "u1", Email: "dup@x.com", CreatedAt: time.Now()}
	if err := db.WithContext(ctx).Create(first).Error; err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	second := &gormstore.UserModel{ID: "u2", Email: "dup@x.com", CreatedAt: time.Now()}
	err := db.WithContext(ctx).Create(second).Error
	if err == nil {
		t.Fatal("expected unique index violation")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Logf("driver returned untranslated error: %v", err)
	}
}

func TestStringSliceScan(t *testing.T) {
	var s gormstore.StringSlice
	if err := s.Scan(`["2026-01-01"]`); err != nil {
		t.Fatalf("Scan(string) failed: %v", err)
	}
	if len(s) != 1 || s[0] != "2026-01-01" {
		t.Errorf("Scan(string) = %v", s)
	}
	if err := s.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if len(s) != 2 {
		t.Errorf("Scan([]byte) = %v", s)
	}
	if err := s.Scan(nil); err != nil || s == nil || len(s) != 0 {
		t.Errorf("Scan(nil) = %v, %v", s, err)
	}
	if err := s.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}

	v, err := gormstore.StringSlice(nil).Value()
	if err != nil || v != "[]" {
		t.Errorf("nil Value() = %v, %v", v, err)
	}
}
