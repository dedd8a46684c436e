package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// AferoStore implements Store on top of an afero.Fs. In production this
// wraps afero.NewOsFs() rooted at the configured bucket/output prefix; in
// tests it wraps afero.NewMemMapFs(), giving every test in this repository a
// hermetic, in-memory object store with identical semantics.
type AferoStore struct {
	fs   afero.Fs
	root string
}

// osExclCreateFlags opens a lock file exclusively: it fails if the file
// already exists, giving us the CAS primitive UploadIfAbsent needs.
const osExclCreateFlags = os.O_CREATE | os.O_EXCL | os.O_WRONLY

// NewAferoStore returns a Store rooted at root on fs. root is created lazily
// on first write.
func NewAferoStore(fs afero.Fs, root string) *AferoStore {
	return &AferoStore{fs: fs, root: root}
}

func (s *AferoStore) path(key string) string {
	return path.Join(s.root, key)
}

func (s *AferoStore) List(_ context.Context, prefix string) ([]string, error) {
	base := s.path(prefix)
	var keys []string
	err := afero.Walk(s.fs, base, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepathRel(s.root, p)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, rel)
		return nil
	})
	if err != nil {
		return nil, NewOpError("list", prefix, classifyErr(err))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *AferoStore) Exists(_ context.Context, key string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.path(key))
	if err != nil {
		return false, NewOpError("exists", key, classifyErr(err))
	}
	return ok, nil
}

func (s *AferoStore) ReadBytes(_ context.Context, key string) ([]byte, error) {
	b, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		return nil, NewOpError("read", key, classifyErr(err))
	}
	return b, nil
}

func (s *AferoStore) WriteBytes(_ context.Context, key string, b []byte) error {
	p := s.path(key)
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return NewOpError("write", key, classifyErr(err))
	}
	if err := afero.WriteFile(s.fs, p, b, 0o644); err != nil {
		return NewOpError("write", key, classifyErr(err))
	}
	return nil
}

func (s *AferoStore) ReadJSON(ctx context.Context, key string, v any) error {
	b, err := s.ReadBytes(ctx, key)
	if err != nil {
		return err
	}
	return unmarshalOrFatal(key, b, v)
}

func (s *AferoStore) WriteJSON(ctx context.Context, key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NewOpError("write", key, fmt.Errorf("%w: %v", ErrFatal, err))
	}
	return s.UploadAtomic(ctx, key, b)
}

// UploadAtomic writes b to a temp sibling of key and renames it into place,
// so a reader racing the writer either sees the old content or the full new
// content, never a partial write.
func (s *AferoStore) UploadAtomic(_ context.Context, key string, b []byte) error {
	p := s.path(key)
	dir := path.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return NewOpError("write", key, classifyErr(err))
	}
	tmp := path.Join(dir, fmt.Sprintf(".%s.%s.tmp", path.Base(p), uuid.NewString()))
	if err := afero.WriteFile(s.fs, tmp, b, 0o644); err != nil {
		return NewOpError("write", key, classifyErr(err))
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return NewOpError("write", key, classifyErr(err))
	}
	return nil
}

// UploadIfAbsent atomically writes b to key only if key does not already
// exist, returning (wrote=false, nil) if another writer won the race. It is
// used by components that need "first writer wins" idempotent initialization
// (the Document Finder's document map).
func (s *AferoStore) UploadIfAbsent(ctx context.Context, key string, b []byte) (wrote bool, err error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	lockKey := key + ".lock"
	gotLock, err := s.acquireLock(lockKey)
	if err != nil {
		return false, err
	}
	if !gotLock {
		return false, nil
	}
	defer func() { _ = s.fs.Remove(s.path(lockKey)) }()

	exists, err = s.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.UploadAtomic(ctx, key, b); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AferoStore) acquireLock(lockKey string) (bool, error) {
	p := s.path(lockKey)
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return false, NewOpError("write", lockKey, classifyErr(err))
	}
	f, err := s.fs.OpenFile(p, osExclCreateFlags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, NewOpError("write", lockKey, classifyErr(err))
	}
	_ = f.Close()
	return true, nil
}

func (s *AferoStore) Move(_ context.Context, src, dst string) error {
	if err := s.fs.MkdirAll(path.Dir(s.path(dst)), 0o755); err != nil {
		return NewOpError("move", dst, classifyErr(err))
	}
	if err := s.fs.Rename(s.path(src), s.path(dst)); err != nil {
		return NewOpError("move", src, classifyErr(err))
	}
	return nil
}

func (s *AferoStore) Delete(_ context.Context, prefix string) error {
	if err := s.fs.RemoveAll(s.path(prefix)); err != nil {
		return NewOpError("delete", prefix, classifyErr(err))
	}
	return nil
}

// HealthCheck verifies the store is reachable and writable, modeled on the
// teacher's database health-check pattern: a cheap round-trip write+read+
// delete against a sentinel key, timed and reported.
func (s *AferoStore) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	sentinel := ".health/" + uuid.NewString()
	payload := []byte(time.Now().UTC().Format(time.RFC3339Nano))

	if err := s.WriteBytes(ctx, sentinel, payload); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start)}, err
	}
	defer func() { _ = s.Delete(ctx, sentinel) }()

	if _, err := s.ReadBytes(ctx, sentinel); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start)}, err
	}
	return &HealthStatus{Status: "healthy", ResponseTime: time.Since(start)}, nil
}

// HealthStatus reports object-store reachability, mirroring the shape of
// pkg/database's health report for the equivalent durable dependency.
type HealthStatus struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time_ms"`
}

func classifyErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", ErrFatal, err)
	}
}

func filepathRel(root, p string) (string, error) {
	if !strings.HasPrefix(p, root) {
		return p, nil
	}
	rel := strings.TrimPrefix(p, root)
	rel = strings.TrimPrefix(rel, "/")
	return rel, nil
}
