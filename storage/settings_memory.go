package storage

import "sync"

// MemorySettingsStorage keeps settings for the lifetime of the process
type MemorySettingsStorage struct {
	settings *Settings
	mutex    sync.RWMutex
}

func NewMemorySettingsStorage() *MemorySettingsStorage {
	return &MemorySettingsStorage{}
}

func (m *MemorySettingsStorage) GetSettings() (*Settings, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.settings == nil {
		return nil, nil
	}
	s := *m.settings
	return &s, nil
}

func (m *MemorySettingsStorage) SaveSettings(settings *Settings) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s := *settings
	m.settings = &s
	return nil
}

func (m *MemorySettingsStorage) Close() error {
	return nil
}
