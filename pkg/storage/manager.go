// Package storage stores uploaded files on a local directory or an
// S3-compatible bucket behind one Disk interface.
//
//	disks, _ := storage.Connect(ctx)
//	err := disks.Default().Put(ctx, "prescriptions/abc.pdf", file, "application/pdf")
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
)

// ErrNotExist is returned when a path has no stored object.
var ErrNotExist = errors.New("storage: file does not exist")

// Disk is the driver interface.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// Manager holds the configured disks.
type Manager struct {
	mu          sync.RWMutex
	disks       map[string]Disk
	defaultDisk string
}

// NewManager returns a manager whose default is name. Register disks on it.
func NewManager(defaultDisk string) *Manager {
	return &Manager{disks: map[string]Disk{}, defaultDisk: defaultDisk}
}

// Connect boots the local disk and, when S3_BUCKET is set, the s3 disk.
func Connect(ctx context.Context) (*Manager, error) {
	m := NewManager(config.StorageDefault())
	m.Register("local", NewLocalDisk(config.StorageLocalRoot(), config.StorageURL()))

	if config.StorageS3Bucket() != "" {
		d, err := NewS3Disk(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			m.Register("s3", d)
		}
	}

	if _, err := m.Use(m.defaultDisk); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) Register(name string, d Disk) {
	m.mu.Lock()
	m.disks[name] = d
	m.mu.Unlock()
}

// Use returns the named disk.
func (m *Manager) Use(name string) (Disk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the disk named by STORAGE_DISK.
func (m *Manager) Default() Disk {
	d, err := m.Use(m.defaultDisk)
	if err != nil {
		panic(err)
	}
	return d
}

// LocalRoot returns the local disk's directory when it is the default, for
// serving files over HTTP.
func (m *Manager) LocalRoot() (string, bool) {
	d, ok := m.Default().(*LocalDisk)
	if !ok {
		return "", false
	}
	return d.root, true
}
