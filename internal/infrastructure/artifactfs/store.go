// Package artifactfs keeps pipeline snapshots as JSON files plus an append-only manifest.
package artifactfs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsMerger/internal/domain"
	"NewsMerger/internal/ports"
)

const manifestName = "manifest.jsonl"

// Store writes payloads under <dir>/<kind>/<id>.json and indexes them in <dir>/manifest.jsonl.
type Store struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seq int64
}

var _ ports.ArtifactStore = (*Store)(nil)

// New prepares the directory and resumes the sequence counter from the manifest.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifact directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	s := &Store{dir: dir, now: func() time.Time { return time.Now().UTC() }}
	refs, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if ref.Seq > s.seq {
			s.seq = ref.Seq
		}
	}
	return s, nil
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Write persists payload and then records meta in the manifest, so every listed ref is readable.
// ID, Seq and CreatedAt are assigned here.
func (s *Store) Write(ctx context.Context, meta domain.ArtifactRef, payload any) (domain.ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArtifactRef{}, err
	}
	if !meta.Kind.Valid() {
		return domain.ArtifactRef{}, fmt.Errorf("unknown artifact kind %q", meta.Kind)
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("marshal %s artifact: %w", meta.Kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	meta.ID = uuid.NewString()
	meta.Seq = s.seq
	meta.CreatedAt = s.now()

	path := s.payloadPath(meta)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("create kind dir: %w", err)
	}
	if err := writeFileAtomic(path, body); err != nil {
		return domain.ArtifactRef{}, err
	}

	line, err := json.Marshal(meta)
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("marshal manifest entry: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, manifestName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("open manifest: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return domain.ArtifactRef{}, fmt.Errorf("append manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("close manifest: %w", err)
	}

	return meta, nil
}

// List returns every ref of the given kind in manifest order.
func (s *Store) List(ctx context.Context, kind domain.ArtifactKind) ([]domain.ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	refs, err := s.readManifest()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := refs[:0]
	for _, ref := range refs {
		if ref.Kind == kind {
			out = append(out, ref)
		}
	}
	return out, nil
}

// Read decodes the payload behind ref into v.
func (s *Store) Read(ctx context.Context, ref domain.ArtifactRef, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := os.ReadFile(s.payloadPath(ref))
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", ref.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode artifact %s: %w", ref.ID, err)
	}
	return nil
}

func (s *Store) payloadPath(ref domain.ArtifactRef) string {
	return filepath.Join(s.dir, string(ref.Kind), ref.ID+".json")
}

func (s *Store) readManifest() ([]domain.ArtifactRef, error) {
	f, err := os.Open(filepath.Join(s.dir, manifestName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var refs []domain.ArtifactRef
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var ref domain.ArtifactRef
		if err := json.Unmarshal(scanner.Bytes(), &ref); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		refs = append(refs, ref)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return refs, nil
}

func writeFileAtomic(path string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}
