// Package backup keeps periodic exports of the stored counter history and
// optionally ships them to an S3 bucket.
package backup

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Config controls periodic counter exports.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	LocalDir  string
	KeepLast  int
	Format    string // parquet (default) or json
	BucketURL string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3UseSSL       bool

	Clock clock.Clock
}

// Exporter writes the counter history to a file. Implemented by *duckdb.Store.
type Exporter interface {
	ExportCounters(ctx context.Context, dstPath, format string) error
}

// Uploader uploads one export artifact.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
