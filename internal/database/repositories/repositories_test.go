package repositories

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openlumen/pixelnode/internal/database/models"
)

// setupTestDB creates an in-memory SQLite database for testing repositories.
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	cleanup := func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}

	return db, cleanup
}

// TestSettingRepository_CRUD tests basic CRUD operations on the SettingRepository.
func TestSettingRepository_CRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	ctx := context.Background()

	testKey := "test_key_" + cuid.Slug()

	// Test FindByKey (not found)
	found, err := repo.FindByKey(ctx, testKey)
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if found != nil {
		t.Error("Expected nil for non-existent setting")
	}

	// Test Upsert (create)
	setting, err := repo.Upsert(ctx, testKey, "test_value")
	if err != nil {
		t.Fatalf("Upsert (create) failed: %v", err)
	}
	if setting.ID == "" {
		t.Error("Expected setting ID to be set")
	}
	if setting.Key != testKey {
		t.Errorf("Key mismatch: got %s, want %s", setting.Key, testKey)
	}
	if setting.Value != "test_value" {
		t.Errorf("Value mismatch: got %s, want test_value", setting.Value)
	}

	// Test Upsert (update)
	updated, err := repo.Upsert(ctx, testKey, "updated_value")
	if err != nil {
		t.Fatalf("Upsert (update) failed: %v", err)
	}
	if updated.ID != setting.ID {
		t.Error("Expected same ID after update")
	}
	if updated.Value != "updated_value" {
		t.Errorf("Value mismatch after update: got %s", updated.Value)
	}

	// Test FindByKey (found)
	found, err = repo.FindByKey(ctx, testKey)
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if found == nil {
		t.Fatal("Expected to find setting")
	}
	if found.Value != "updated_value" {
		t.Errorf("Value mismatch: got %s", found.Value)
	}
}

// TestSettingRepository_ValueOr tests the fallback read used by the device
// identity endpoints.
func TestSettingRepository_ValueOr(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	ctx := context.Background()

	value, err := repo.ValueOr(ctx, "device_name", "PixelNode")
	if err != nil {
		t.Fatalf("ValueOr failed: %v", err)
	}
	if value != "PixelNode" {
		t.Errorf("Expected fallback for unset key, got %s", value)
	}

	if _, err := repo.Upsert(ctx, "device_name", "porch-node"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	value, err = repo.ValueOr(ctx, "device_name", "PixelNode")
	if err != nil {
		t.Fatalf("ValueOr failed: %v", err)
	}
	if value != "porch-node" {
		t.Errorf("Expected stored value, got %s", value)
	}
}

// TestSettingRepository_FindAll tests key-ordered listing.
func TestSettingRepository_FindAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	ctx := context.Background()

	for _, kv := range [][2]string{
		{"device_name", "porch-node"},
		{"device_location", "front porch"},
		{"admin_contact", "ops@example.com"},
	} {
		if _, err := repo.Upsert(ctx, kv[0], kv[1]); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", kv[0], err)
		}
	}

	settings, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(settings) != 3 {
		t.Fatalf("Expected 3 settings, got %d", len(settings))
	}

	// Ordered by key
	wantKeys := []string{"admin_contact", "device_location", "device_name"}
	for i, want := range wantKeys {
		if settings[i].Key != want {
			t.Errorf("settings[%d].Key = %s, want %s", i, settings[i].Key, want)
		}
	}
}

// TestNewSettingRepository tests the constructor.
func TestNewSettingRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	if repo == nil {
		t.Fatal("Expected non-nil repository")
	}
	if repo.db != db {
		t.Error("Expected db to be set")
	}
}
