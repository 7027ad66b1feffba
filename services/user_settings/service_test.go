package user_settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"streamseek/models"
)

func TestNewServiceRequiresDir(t *testing.T) {
	if _, err := NewService(""); !errors.Is(err, ErrStorageDirRequired) {
		t.Fatalf("expected ErrStorageDirRequired, got %v", err)
	}
}

func TestGetUnknownUserReturnsDefaults(t *testing.T) {
	svc, err := NewService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	settings, err := svc.Get("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(settings.SubscribedProviders) != 0 {
		t.Fatalf("expected empty subscription set, got %v", settings.SubscribedProviders)
	}
}

func TestUpdateAndReload(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(dir)
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Update("user-1", models.UserSettings{
		SubscribedProviders: []models.ProviderKey{models.ProviderNetflix, models.ProviderHBOMax},
		Region:              "GB",
	})
	if err != nil {
		t.Fatal(err)
	}

	// A fresh service must see the persisted data.
	reloaded, err := NewService(dir)
	if err != nil {
		t.Fatal(err)
	}
	keys, err := reloaded.SubscribedProviders("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != models.ProviderNetflix || keys[1] != models.ProviderHBOMax {
		t.Fatalf("unexpected providers after reload: %v", keys)
	}

	settings, _ := reloaded.Get("user-1")
	if settings.Region != "GB" {
		t.Fatalf("region not persisted: %q", settings.Region)
	}
}

func TestUpdateRejectsUnknownProvider(t *testing.T) {
	svc, err := NewService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Update("user-1", models.UserSettings{
		SubscribedProviders: []models.ProviderKey{"netflix", "hulu_classic"},
	})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	// Nothing should have been stored.
	keys, _ := svc.SubscribedProviders("user-1")
	if len(keys) != 0 {
		t.Fatalf("failed update must not persist, got %v", keys)
	}
}

func TestUpdateNormalizesAndDeduplicates(t *testing.T) {
	svc, err := NewService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Update("user-1", models.UserSettings{
		SubscribedProviders: []models.ProviderKey{"Netflix", " netflix ", "DISNEY_PLUS"},
	})
	if err != nil {
		t.Fatal(err)
	}
	keys, _ := svc.SubscribedProviders("user-1")
	if len(keys) != 2 || keys[0] != models.ProviderNetflix || keys[1] != models.ProviderDisneyPlus {
		t.Fatalf("expected normalized dedup set, got %v", keys)
	}
}

func TestDelete(t *testing.T) {
	svc, err := NewService(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Update("user-1", models.UserSettings{SubscribedProviders: []models.ProviderKey{"netflix"}}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete("user-1"); err != nil {
		t.Fatal(err)
	}
	keys, _ := svc.SubscribedProviders("user-1")
	if len(keys) != 0 {
		t.Fatalf("expected empty set after delete, got %v", keys)
	}

	// Deleting a missing user is a no-op.
	if err := svc.Delete("user-1"); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDropsRetiredProviderKeys(t *testing.T) {
	dir := t.TempDir()
	raw := `{"user-1":{"subscribedProviders":["netflix","blockbuster_online"]}}`
	if err := os.WriteFile(filepath.Join(dir, "user_settings.json"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, err := NewService(dir)
	if err != nil {
		t.Fatal(err)
	}
	keys, _ := svc.SubscribedProviders("user-1")
	if len(keys) != 1 || keys[0] != models.ProviderNetflix {
		t.Fatalf("retired keys should be dropped on load, got %v", keys)
	}
}
