// Package app implements the service layer: the paginated query engine,
// relation mutations and the file lifecycle. Dependencies are injected
// explicitly; handlers above it stay thin.
package app

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"postwall/internal/cache"
	"postwall/internal/storage"
	"postwall/internal/store"
)

// Service-level error categories. Handlers map these to status codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("constraint violation")
)

const (
	defaultBucket  = "post-files"
	defaultSignTTL = time.Hour
)

// Options tunes an App. Zero values fall back to defaults; Calendar may be
// nil to run without the cache.
type Options struct {
	Bucket       string
	SignedURLTTL time.Duration
	Calendar     *cache.CalendarCache
}

// App wires the store, the object store and the calendar cache.
type App struct {
	store    store.Store
	objects  storage.ObjectStore
	calendar *cache.CalendarCache
	bucket   string
	signTTL  time.Duration
}

// New builds the service layer.
func New(st store.Store, objects storage.ObjectStore, opts Options) *App {
	bucket := opts.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	ttl := opts.SignedURLTTL
	if ttl <= 0 {
		ttl = defaultSignTTL
	}
	return &App{
		store:    st,
		objects:  objects,
		calendar: opts.Calendar,
		bucket:   bucket,
		signTTL:  ttl,
	}
}

// conflictErr rewraps store constraint violations into the service error
// category, keeping the cause in the chain.
func conflictErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
