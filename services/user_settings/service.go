package user_settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"streamseek/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUserIDRequired     = errors.New("user id is required")
	ErrUnknownProvider    = errors.New("unknown provider key")
)

// Service manages persistence and retrieval of per-user settings, most
// importantly the declared streaming-subscription set the filtering engine
// consumes.
type Service struct {
	mu       sync.RWMutex
	path     string
	settings map[string]models.UserSettings
}

// NewService creates a user settings service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user settings dir: %w", err)
	}

	svc := &Service{
		path:     filepath.Join(storageDir, "user_settings.json"),
		settings: make(map[string]models.UserSettings),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// Get returns the user's settings, falling back to defaults when nothing is
// stored yet. A user without stored settings has an empty subscription set,
// which downstream means "do not filter".
func (s *Service) Get(userID string) (models.UserSettings, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.UserSettings{}, ErrUserIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if settings, ok := s.settings[userID]; ok {
		return settings, nil
	}
	return models.DefaultUserSettings(), nil
}

// SubscribedProviders returns just the user's declared provider keys.
func (s *Service) SubscribedProviders(userID string) ([]models.ProviderKey, error) {
	settings, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	return settings.SubscribedProviders, nil
}

// Update validates and saves the user's settings. Unknown provider keys are
// rejected wholesale rather than silently dropped so a client typo cannot
// quietly shrink the declared set.
func (s *Service) Update(userID string, settings models.UserSettings) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	normalized := make([]models.ProviderKey, 0, len(settings.SubscribedProviders))
	seen := make(map[models.ProviderKey]struct{})
	for _, raw := range settings.SubscribedProviders {
		key, ok := models.ParseProviderKey(string(raw))
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, key)
	}
	settings.SubscribedProviders = normalized

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[userID] = settings
	return s.saveLocked()
}

// Delete removes a user's settings.
func (s *Service) Delete(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.settings[userID]; !exists {
		return nil
	}

	delete(s.settings, userID)
	return s.saveLocked()
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.settings = make(map[string]models.UserSettings)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open user settings: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read user settings: %w", err)
	}
	if len(data) == 0 {
		s.settings = make(map[string]models.UserSettings)
		return nil
	}

	var settings map[string]models.UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("decode user settings: %w", err)
	}

	// Drop provider keys that are no longer supported so the filtering
	// tables never see stale values.
	for userID, us := range settings {
		kept := us.SubscribedProviders[:0]
		for _, key := range us.SubscribedProviders {
			if _, ok := models.ParseProviderKey(string(key)); ok {
				kept = append(kept, key)
			}
		}
		us.SubscribedProviders = kept
		settings[userID] = us
	}

	s.settings = settings
	return nil
}

func (s *Service) saveLocked() error {
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create user settings temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.settings); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode user settings: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync user settings: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close user settings temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace user settings file: %w", err)
	}

	return nil
}
