package repository

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/jsonstash/jsonstash/pkg/logger"
	"github.com/jsonstash/jsonstash/pkg/metrics"
)

// DefaultExtension is the suffix of backing files.
const DefaultExtension = ".json"

// LoadPolicy decides what Load does with a backing file it cannot read or parse.
type LoadPolicy string

const (
	// LoadFail aborts Load on the first bad file.
	LoadFail LoadPolicy = "fail"
	// LoadSkip logs the bad file, leaves it on disk and keeps going.
	LoadSkip LoadPolicy = "skip"
)

// SkippedFile is a backing file ignored under LoadSkip.
type SkippedFile struct {
	Name string
	Err  error
}

// LoadReport summarises a directory scan.
type LoadReport struct {
	Loaded  int
	Skipped []SkippedFile
	Cleaned int // stale temp files removed
}

// FileRepo keeps every document in memory and mirrors it to one file per key
// in a flat directory. The in-memory map is authoritative after Load.
//
// Mutations write the file first and update the map second, both under the
// write lock. A crash between the two steps leaves the file ahead of the map;
// the next Load re-derives the map from disk.
type FileRepo struct {
	mu     sync.RWMutex
	dir    string
	ext    string
	policy LoadPolicy
	docs   map[string]document.Document
}

// NewFileRepo returns an empty repo over dir. Call Load before serving.
func NewFileRepo(dir, ext string, policy LoadPolicy) *FileRepo {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if policy == "" {
		policy = LoadFail
	}
	return &FileRepo{dir: dir, ext: ext, policy: policy, docs: make(map[string]document.Document)}
}

// Dir returns the backing directory.
func (r *FileRepo) Dir() string { return r.dir }

// Load creates the backing directory if needed and replaces the in-memory
// map with the contents of every file ending in the repo extension.
func (r *FileRepo) Load() (*LoadReport, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, &document.StorageError{Op: "mkdir", Path: r.dir, Err: err}
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, &document.StorageError{Op: "scan", Path: r.dir, Err: err}
	}

	report := &LoadReport{}
	docs := make(map[string]document.Document, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, name)
		if isTempFile(name, r.ext) {
			if err := os.Remove(path); err == nil {
				report.Cleaned++
				logger.Debugf("removed stale temp file %s", path)
			}
			continue
		}
		if !strings.HasSuffix(name, r.ext) {
			continue
		}
		key := strings.TrimSuffix(name, r.ext)
		doc, err := readDocument(path, key)
		if err != nil {
			if r.policy == LoadFail {
				return nil, err
			}
			report.Skipped = append(report.Skipped, SkippedFile{Name: name, Err: err})
			metrics.LoadSkipped.Inc()
			logger.Warnf("skipping unreadable document file: %v", err)
			continue
		}
		docs[key] = doc
	}
	report.Loaded = len(docs)

	r.mu.Lock()
	r.docs = docs
	r.mu.Unlock()
	metrics.DocumentsStored.Set(float64(report.Loaded))
	return report, nil
}

func readDocument(path, key string) (document.Document, error) {
	if err := document.ValidateKey(key); err != nil {
		return nil, &document.StorageError{Op: "load", Key: key, Path: path, Err: err}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &document.StorageError{Op: "read", Key: key, Path: path, Err: err}
	}
	doc, err := document.Decode(raw)
	if err != nil {
		return nil, &document.StorageError{Op: "parse", Key: key, Path: path, Err: err}
	}
	return doc, nil
}

// Get returns a copy of the document stored under key.
func (r *FileRepo) Get(key string) (document.Document, error) {
	if err := document.ValidateKey(key); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, key)
	}
	return document.Clone(d), nil
}

// Put writes doc under key, replacing any previous document.
func (r *FileRepo) Put(key string, doc document.Document) (*document.Entry, error) {
	if err := document.ValidateKey(key); err != nil {
		return nil, err
	}
	body, err := document.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(key, doc, body)
}

// PutUnique writes doc under key, or under key-2, key-3, ... when key is
// already taken in memory or on disk. It never overwrites.
func (r *FileRepo) PutUnique(key string, doc document.Document) (*document.Entry, error) {
	if err := document.ValidateKey(key); err != nil {
		return nil, err
	}
	body, err := document.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate := key
	for n := 2; r.taken(candidate); n++ {
		candidate = fmt.Sprintf("%s-%d", key, n)
	}
	return r.write(candidate, doc, body)
}

func (r *FileRepo) taken(key string) bool {
	if _, ok := r.docs[key]; ok {
		return true
	}
	_, err := os.Lstat(r.path(key))
	return err == nil
}

// write must be called with the write lock held.
func (r *FileRepo) write(key string, doc document.Document, body []byte) (*document.Entry, error) {
	path := r.path(key)
	if err := atomicWrite(path, body); err != nil {
		return nil, &document.StorageError{Op: "write", Key: key, Path: path, Err: err}
	}
	r.docs[key] = document.Clone(doc)
	metrics.DocumentsStored.Set(float64(len(r.docs)))
	return &document.Entry{
		Key:      key,
		Prefix:   document.Prefix(key),
		Value:    doc,
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

// Delete removes the backing file and the in-memory entry. A missing key is
// not an error; existed reports whether anything was removed.
func (r *FileRepo) Delete(key string) (existed bool, err error) {
	if err := document.ValidateKey(key); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	path := r.path(key)
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			return false, &document.StorageError{Op: "delete", Key: key, Path: path, Err: err}
		}
	} else {
		existed = true
	}
	if _, ok := r.docs[key]; ok {
		delete(r.docs, key)
		existed = true
	}
	metrics.DocumentsStored.Set(float64(len(r.docs)))
	return existed, nil
}

// Keys returns the stored keys in ascending order.
func (r *FileRepo) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.docs))
	for k := range r.docs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Grouped partitions Keys by prefix. It is recomputed on every call.
func (r *FileRepo) Grouped() map[string][]string {
	return document.GroupByPrefix(r.Keys())
}

// Len returns the number of stored documents.
func (r *FileRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func (r *FileRepo) path(key string) string {
	return filepath.Join(r.dir, key+r.ext)
}

// tmpSuffixBytes is the number of random bytes in a temp file suffix.
const tmpSuffixBytes = 8

// isTempFile reports whether name is exactly what atomicWrite leaves behind:
// <key><ext>.tmp.<16 hex>. Stored documents always end in ext, so a key that
// merely contains ".tmp." is never mistaken for one.
func isTempFile(name, ext string) bool {
	if strings.HasSuffix(name, ext) {
		return false
	}
	i := strings.LastIndex(name, ".tmp.")
	if i < 0 || !strings.HasSuffix(name[:i], ext) {
		return false
	}
	suffix := name[i+len(".tmp."):]
	if len(suffix) != hex.EncodedLen(tmpSuffixBytes) || strings.ToLower(suffix) != suffix {
		return false
	}
	_, err := hex.DecodeString(suffix)
	return err == nil
}

// atomicWrite writes data to a file atomically via a temporary file and rename.
func atomicWrite(path string, data []byte) error {
	randBytes := make([]byte, tmpSuffixBytes)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generating random suffix: %w", err)
	}
	tmp := path + ".tmp." + hex.EncodeToString(randBytes)

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best effort cleanup
		return err
	}
	return nil
}
