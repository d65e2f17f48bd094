package content

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"localdeck/internal/media"
)

// ErrNotFound indicates that no fully published entry exists for a reference.
var ErrNotFound = errors.New("content not found")

// ErrStorage tags local I/O failures so callers can map them distinctly from
// source errors. Storage errors are never swallowed.
var ErrStorage = errors.New("storage error")

var refPattern = regexp.MustCompile(`^[0-9a-f]{64}\.[0-9a-z]{1,8}$`)

// Entry describes one fully published audio payload.
type Entry struct {
	Ref    string
	Hash   string
	Format string
	Size   int64
}

// Store is a content-addressed blob store over a local directory.
//
// Payloads are streamed into a temp file while hashing, then renamed to
// objects/<hash[0:2]>/<hash>.<format>. The rename is the publish step: a
// reference either names a complete file or nothing. References are the final
// base name and are treated as opaque strings by every other component.
type Store struct {
	root string

	// publishMu serializes the dedup check and the publish rename so two
	// concurrent writes of identical bytes with different format hints
	// cannot both publish under the same hash.
	publishMu sync.Mutex
}

// Open prepares the store directories below root and sweeps temp files left
// behind by interrupted writes.
func Open(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: content root is required", ErrStorage)
	}
	for _, dir := range []string{root, filepath.Join(root, "objects"), filepath.Join(root, "tmp")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %q: %v", ErrStorage, dir, err)
		}
	}
	store := &Store{root: root}
	store.sweepTemp()
	return store, nil
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// sweepTemp removes leftovers from writes interrupted by a crash. Best
// effort: a failure here never blocks opening the store.
func (s *Store) sweepTemp() {
	entries, err := os.ReadDir(filepath.Join(s.root, "tmp"))
	if err != nil {
		return
	}
	for _, entry := range entries {
		_ = os.Remove(filepath.Join(s.root, "tmp", entry.Name()))
	}
}

// Put streams r into the store and returns the reference of the published
// entry. Identical payloads converge on the same reference regardless of the
// format hint order; the first published format wins. No partially written
// file is ever visible under a final name.
func (s *Store) Put(r io.Reader, formatHint string) (string, error) {
	tmpPath := filepath.Join(s.root, "tmp", uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrStorage, err)
	}

	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		discard()
		return "", fmt.Errorf("%w: write payload: %v", ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		discard()
		return "", fmt.Errorf("%w: sync payload: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: close payload: %v", ErrStorage, err)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))

	// The lock covers only the check-then-rename transition, never the
	// payload write above.
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	// Same bytes, different hint: reuse whatever format was published first.
	if existing, err := s.refForHash(hash); err == nil {
		_ = os.Remove(tmpPath)
		return existing, nil
	}

	format := media.NormalizeFormat(formatHint, "bin")
	ref := hash + "." + format
	finalPath := s.objectPath(ref)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: create object directory: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: publish object: %v", ErrStorage, err)
	}
	return ref, nil
}

// Open returns a readable handle on a published entry along with its
// metadata. The caller owns the returned file.
func (s *Store) Open(ref string) (*os.File, Entry, error) {
	entry, err := s.Stat(ref)
	if err != nil {
		return nil, Entry{}, err
	}
	file, err := os.Open(s.objectPath(ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, Entry{}, fmt.Errorf("%w: open %s: %v", ErrStorage, ref, err)
	}
	return file, entry, nil
}

// Stat returns metadata for a published entry.
func (s *Store) Stat(ref string) (Entry, error) {
	if !ValidRef(ref) {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	info, err := os.Stat(s.objectPath(ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return Entry{}, fmt.Errorf("%w: stat %s: %v", ErrStorage, ref, err)
	}
	hash, format, _ := strings.Cut(ref, ".")
	return Entry{Ref: ref, Hash: hash, Format: format, Size: info.Size()}, nil
}

// Exists reports whether a fully published entry exists for the reference.
func (s *Store) Exists(ref string) bool {
	_, err := s.Stat(ref)
	return err == nil
}

// ValidRef reports whether a string has the shape of a content reference.
func ValidRef(ref string) bool {
	return refPattern.MatchString(ref)
}

func (s *Store) objectPath(ref string) string {
	return filepath.Join(s.root, "objects", ref[:2], ref)
}

func (s *Store) refForHash(hash string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "objects", hash[:2], hash+".*"))
	if err != nil || len(matches) == 0 {
		return "", os.ErrNotExist
	}
	return filepath.Base(matches[0]), nil
}
