package repository

import (
	"context"
	"testing"

	"github.com/hray3182/Athena/internal/models"
)

func TestMemorySettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySettingsRepository()

	if _, ok, _ := repo.Get(ctx, models.KeyWaterInterval); ok {
		t.Fatal("expected empty repository")
	}

	saved := models.DefaultReminderSettings()
	saved.WaterInterval = 60
	if err := repo.SetMany(ctx, saved.ToMap()); err != nil {
		t.Fatalf("SetMany() error: %v", err)
	}

	kv, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	loaded := models.ReminderSettingsFromMap(kv)
	if loaded.WaterInterval != 60 {
		t.Errorf("WaterInterval = %d, want 60", loaded.WaterInterval)
	}

	// The snapshot returned by All is detached from the store
	kv[models.KeyWaterInterval] = "5"
	if v, _, _ := repo.Get(ctx, models.KeyWaterInterval); v != "60" {
		t.Errorf("store changed through snapshot: %q", v)
	}

	if err := repo.Delete(ctx, models.KeyWaterInterval); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, models.KeyWaterInterval); ok {
		t.Error("key still present after Delete")
	}
}
