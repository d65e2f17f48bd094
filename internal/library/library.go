package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"localdeck/internal/content"
	"localdeck/internal/logging"
	"localdeck/internal/media"
	"localdeck/internal/registry"
)

// ScannedFile is one music file found under a library root. CardID is the
// hex content hash, the same identifier a printed card for this file
// carries.
type ScannedFile struct {
	Path   string
	Size   int64
	CardID string
	Format string
}

// Manager walks library roots and keeps the registry and content store in
// step with what is on disk.
type Manager struct {
	roots       []string
	ignoredDirs map[string]struct{}
	followLinks bool
	store       *content.Store
	registry    *registry.Store
	logger      *slog.Logger
}

// Options configure a Manager.
type Options struct {
	Roots          []string
	IgnoredDirs    []string
	FollowSymlinks bool
}

// NewManager builds a Manager over the given stores.
func NewManager(opts Options, store *content.Store, reg *registry.Store, logger *slog.Logger) *Manager {
	ignored := make(map[string]struct{}, len(opts.IgnoredDirs))
	for _, dir := range opts.IgnoredDirs {
		ignored[dir] = struct{}{}
	}
	return &Manager{
		roots:       opts.Roots,
		ignoredDirs: ignored,
		followLinks: opts.FollowSymlinks,
		store:       store,
		registry:    reg,
		logger:      logging.NewComponentLogger(logger, "library"),
	}
}

// Scan walks all roots and hashes every music file found. Roots that do not
// exist are skipped with a warning so an unplugged USB drive does not fail
// the whole scan.
func (m *Manager) Scan(ctx context.Context) ([]ScannedFile, error) {
	var files []ScannedFile
	for _, root := range m.roots {
		if _, err := os.Stat(root); err != nil {
			m.logger.Warn("library root unavailable, skipping",
				logging.String("root", root),
				logging.Error(err))
			continue
		}
		if err := m.scanRoot(ctx, root, &files); err != nil {
			return nil, err
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (m *Manager) scanRoot(ctx context.Context, root string, files *[]ScannedFile) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if _, skip := m.ignoredDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 && !m.followLinks {
			return nil
		}
		if !media.IsMusicFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hash, err := hashFile(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}
		*files = append(*files, ScannedFile{
			Path:   path,
			Size:   info.Size(),
			CardID: hash,
			Format: media.FormatForPath(path),
		})
		return nil
	})
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
