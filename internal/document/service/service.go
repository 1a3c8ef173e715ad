package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/jsonstash/jsonstash/internal/document/diff"
	"github.com/jsonstash/jsonstash/internal/document/keygen"
	"github.com/jsonstash/jsonstash/pkg/logger"
	"github.com/jsonstash/jsonstash/pkg/metrics"
)

// Repository is the authoritative key → document store.
// Implemented by repository.FileRepo and repository.MemoryRepo.
type Repository interface {
	Get(key string) (document.Document, error)
	Put(key string, doc document.Document) (*document.Entry, error)
	PutUnique(key string, doc document.Document) (*document.Entry, error)
	Delete(key string) (bool, error)
	Keys() []string
}

// Mirror is a best-effort replica notified after the repository accepted a
// mutation. Errors are logged and counted, never returned to the caller.
type Mirror interface {
	Name() string
	Put(ctx context.Context, e *document.Entry) error
	Delete(ctx context.Context, key string) error
}

// Service defines the document operations used by the handler layer.
type Service interface {
	Create(ctx context.Context, raw []byte) (string, error)
	Get(ctx context.Context, key string) (document.Document, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) []string
	Grouped(ctx context.Context) map[string][]string
	Diff(ctx context.Context, keyA, keyB string) (*diff.Result, error)
}

// Collision selects what Create does when a generated key is already taken.
type Collision string

const (
	CollisionOverwrite Collision = "overwrite"
	CollisionSuffix    Collision = "suffix"
)

// Options configures New. Zero values pick the defaults.
type Options struct {
	Keys          *keygen.Generator
	Collision     Collision
	Mirrors       []Mirror
	MirrorTimeout time.Duration
}

// DefaultMirrorTimeout bounds each mirror call when Options.MirrorTimeout is zero.
const DefaultMirrorTimeout = 5 * time.Second

type documentService struct {
	repo          Repository
	keys          *keygen.Generator
	collision     Collision
	mirrors       []Mirror
	mirrorTimeout time.Duration
}

// New returns a Service over repo.
func New(repo Repository, opts Options) Service {
	s := &documentService{
		repo:          repo,
		keys:          opts.Keys,
		collision:     opts.Collision,
		mirrors:       opts.Mirrors,
		mirrorTimeout: opts.MirrorTimeout,
	}
	if s.keys == nil {
		s.keys = keygen.New(false)
	}
	if s.collision == "" {
		s.collision = CollisionOverwrite
	}
	if s.mirrorTimeout <= 0 {
		s.mirrorTimeout = DefaultMirrorTimeout
	}
	return s
}

func (s *documentService) Create(ctx context.Context, raw []byte) (string, error) {
	key, err := s.keys.Generate(raw)
	if err != nil {
		record("create", err)
		return "", err
	}
	doc, err := document.Decode(raw)
	if err != nil {
		record("create", err)
		return "", err
	}

	var entry *document.Entry
	if s.collision == CollisionSuffix {
		entry, err = s.repo.PutUnique(key, doc)
	} else {
		entry, err = s.repo.Put(key, doc)
	}
	if err != nil {
		record("create", err)
		logger.Errorf("create %s: %v", key, err)
		return "", err
	}
	record("create", nil)
	logger.Debugf("stored %s (%d bytes)", entry.Key, len(entry.Body))

	s.notify(ctx, "put", entry.Key, func(ctx context.Context, m Mirror) error { return m.Put(ctx, entry) })
	return entry.Key, nil
}

func (s *documentService) Get(_ context.Context, key string) (document.Document, error) {
	doc, err := s.repo.Get(key)
	record("get", err)
	return doc, err
}

func (s *documentService) Delete(ctx context.Context, key string) error {
	existed, err := s.repo.Delete(key)
	if err != nil {
		record("delete", err)
		logger.Errorf("delete %s: %v", key, err)
		return err
	}
	record("delete", nil)
	if !existed {
		logger.Debugf("delete %s: already absent", key)
	}
	s.notify(ctx, "delete", key, func(ctx context.Context, m Mirror) error { return m.Delete(ctx, key) })
	return nil
}

func (s *documentService) Keys(_ context.Context) []string {
	return s.repo.Keys()
}

func (s *documentService) Grouped(_ context.Context) map[string][]string {
	return document.GroupByPrefix(s.repo.Keys())
}

func (s *documentService) Diff(_ context.Context, keyA, keyB string) (*diff.Result, error) {
	a, err := s.repo.Get(keyA)
	if err != nil {
		record("diff", err)
		return nil, err
	}
	b, err := s.repo.Get(keyB)
	if err != nil {
		record("diff", err)
		return nil, err
	}
	record("diff", nil)
	return diff.Compare(a, b), nil
}

// notify runs fn against every mirror sequentially, each under its own timeout.
// The parent's cancellation is ignored so a finished request still replicates.
func (s *documentService) notify(ctx context.Context, op, key string, fn func(context.Context, Mirror) error) {
	base := context.WithoutCancel(ctx)
	for _, m := range s.mirrors {
		mctx, cancel := context.WithTimeout(base, s.mirrorTimeout)
		err := fn(mctx, m)
		cancel()
		if err != nil {
			metrics.MirrorErrors.WithLabelValues(m.Name()).Inc()
			logger.Warnf("mirror %s: %s %s: %v", m.Name(), op, key, err)
		}
	}
}

func record(op string, err error) {
	metrics.DocumentOps.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, document.ErrNotFound):
		return "not_found"
	case errors.Is(err, document.ErrInvalidDocument), errors.Is(err, document.ErrInvalidKey):
		return "invalid"
	default:
		return "error"
	}
}

// ParseCollision maps a configuration value onto a Collision.
func ParseCollision(v string) (Collision, error) {
	switch Collision(v) {
	case "", CollisionOverwrite:
		return CollisionOverwrite, nil
	case CollisionSuffix:
		return CollisionSuffix, nil
	}
	return "", fmt.Errorf("unknown key collision policy %q", v)
}
