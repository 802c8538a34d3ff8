package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	defaultInterval = 24 * time.Hour
	defaultKeepLast = 14
	filePrefix      = "reqchart-counters-"
)

// Manager runs periodic local exports and optional remote uploads.
type Manager struct {
	store    Exporter
	cfg      Config
	uploader Uploader
	clock    clock.Clock

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewManager validates cfg, takes a startup export and starts the loop.
// It returns nil when backups are disabled.
func NewManager(store Exporter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil exporter")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: local-dir is required when backup is enabled")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if _, err := extension(cfg.Format); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}

	var uploader Uploader
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(context.Background(), S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("backup: init s3 uploader: %w", err)
		}
		uploader = s3u
	}

	m := newManager(store, cfg, uploader)
	if _, err := m.RunOnce(m.ctx); err != nil {
		log.Printf("backup: startup export failed: %v", err)
	}
	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func newManager(store Exporter, cfg Config, uploader Uploader) *Manager {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    store,
		cfg:      cfg,
		uploader: uploader,
		clock:    clk,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := m.clock.Ticker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(m.ctx); err != nil {
				log.Printf("backup: periodic export failed: %v", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one export, uploads it when configured, and prunes old
// local copies. It returns the path of the new file.
func (m *Manager) RunOnce(ctx context.Context) (string, error) {
	ext, err := extension(m.cfg.Format)
	if err != nil {
		return "", err
	}
	name := filePrefix + m.clock.Now().UTC().Format("20060102-150405") + ext
	localPath := filepath.Join(m.cfg.LocalDir, name)

	if err := m.store.ExportCounters(ctx, localPath, m.cfg.Format); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	log.Printf("backup: wrote %s", localPath)

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, localPath); err != nil {
			return localPath, fmt.Errorf("upload: %w", err)
		}
		log.Printf("backup: uploaded %s", name)
	}

	if err := pruneLocalBackups(m.cfg.LocalDir, ext, m.cfg.KeepLast); err != nil {
		return localPath, fmt.Errorf("prune local backups: %w", err)
	}
	return localPath, nil
}

// Stop cancels any in-flight upload and terminates the loop. Safe to call twice.
func (m *Manager) Stop() {
	m.once.Do(func() {
		m.cancel()
		close(m.done)
	})
	m.wg.Wait()
}

func extension(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "parquet":
		return ".parquet", nil
	case "json":
		return ".json", nil
	default:
		return "", fmt.Errorf("backup: unknown format %q (want parquet or json)", format)
	}
}

func pruneLocalBackups(localDir, ext string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(localDir, filePrefix+"*"+ext))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	// The timestamp in the name sorts lexically in time order.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	for _, oldPath := range matches[keepLast:] {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
