// Package artifacts stores debug captures (screenshots, page HTML) taken when
// a crawl fails, either on the local filesystem or in GCS.
package artifacts

import "context"

// Store persists a named artifact and returns its URI.
type Store interface {
	Put(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

// Config selects and configures the artifact backend.
type Config struct {
	Backend string `mapstructure:"backend"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
}

// NoOp discards artifacts. Used when debug capture is disabled.
type NoOp struct{}

func (NoOp) Put(context.Context, string, string, []byte) (string, error) {
	return "", nil
}
