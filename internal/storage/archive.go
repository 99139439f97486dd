package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// archiveTimeFormat is fixed width so names sort chronologically
const archiveTimeFormat = "2006-01-02-15-04-05.000000000"

// ArchiveName returns a unique document name under prefix. Names taken at the
// same instant differ in their random suffix.
func ArchiveName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s/%s-%s.json", prefix, at.UTC().Format(archiveTimeFormat), uuid.NewString()[:8])
}

// ArchiveJSON marshals v and stores it under prefix with a timestamped name
func ArchiveJSON(ctx context.Context, archive Archive, prefix string, at time.Time, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", prefix, err)
	}

	name := ArchiveName(prefix, at)
	if err := archive.Store(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// LatestJSON decodes the newest document under prefix into v and returns its
// name. ErrNotFound means nothing has been archived under prefix yet.
func LatestJSON(ctx context.Context, archive Archive, prefix string, v interface{}) (string, error) {
	names, err := archive.List(ctx, prefix+"/")
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no %s archived: %w", prefix, ErrNotFound)
	}
	sort.Strings(names)
	name := names[len(names)-1]

	data, err := archive.Retrieve(ctx, name)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return "", fmt.Errorf("malformed archive %s: %w", name, err)
	}
	return name, nil
}

// MemoryArchive keeps archived documents in process memory
type MemoryArchive struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Archive = (*MemoryArchive)(nil)

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{data: make(map[string][]byte)}
}

func (m *MemoryArchive) Store(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	m.data[name] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryArchive) Retrieve(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[name]
	if !ok {
		return nil, fmt.Errorf("archive %s: %w", name, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryArchive) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name := range m.data {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
