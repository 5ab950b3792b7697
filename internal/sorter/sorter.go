// Package sorter moves media files into their event or season folders.
// Files are handled one at a time in lexical order.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	appLog "mediasort/internal/log"
)

// Options controls a sort run.
type Options struct {
	// InputDir is scanned recursively.
	InputDir string
	// Root receives the folder tree. Empty means InputDir.
	Root string
	// Extensions restricts the run to these lowercase extensions. Empty
	// accepts every file.
	Extensions []string
	DryRun     bool
	// KeepEmptyDirs disables removal of emptied input directories.
	KeepEmptyDirs bool
}

// Stats summarizes one run.
type Stats struct {
	Total   int `json:"total"`
	Moved   int `json:"moved"`
	Events  int `json:"events"`
	Seasons int `json:"seasons"`
	Unknown int `json:"unknown"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Pruned  int `json:"pruned"`
}

// Move is one planned relocation.
type Move struct {
	From     string
	To       string
	Decision Decision
}

// Sorter runs sort passes over a filesystem. Runs are serialized, so the
// scheduler, the watcher and the API may trigger them concurrently.
type Sorter struct {
	fs       afero.Fs
	opts     Options
	resolver *Resolver
	exts     map[string]bool

	runMu sync.Mutex
}

// New creates a Sorter. Use afero.NewOsFs() for the real filesystem.
func New(fs afero.Fs, opts Options, resolver *Resolver) *Sorter {
	if opts.Root == "" {
		opts.Root = opts.InputDir
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Sorter{fs: fs, opts: opts, resolver: resolver, exts: exts}
}

// Resolver returns the resolver used for planning.
func (s *Sorter) Resolver() *Resolver { return s.resolver }

// Discover walks the input directory and returns candidate files sorted
// lexically. Hidden entries are skipped, as is a separate output root
// nested inside the input.
func (s *Sorter) Discover() ([]string, error) {
	root := filepath.Clean(s.opts.Root)
	input := filepath.Clean(s.opts.InputDir)

	var files []string
	err := afero.Walk(s.fs, input, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if path != input && (strings.HasPrefix(name, ".") || (root != input && path == root)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if len(s.exts) > 0 && !s.exts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", input, err)
	}
	sort.Strings(files)
	return files, nil
}

// Plan computes the destination for each file without touching the
// filesystem. Destinations are relative to the output root; clashes get a
// " - dupN" suffix.
func (s *Sorter) Plan(files []string) []Move {
	claimed := make(map[string]string, len(files))
	moves := make([]Move, 0, len(files))
	for _, from := range files {
		d := s.resolver.Resolve(from)
		dir, ok := s.destDir(d.Segments)
		if !ok && d.Bucket == BucketEvent {
			appLog.Warn("event folder leaves the output root; using fallback",
				"file", from, "event", d.Match.Name)
			d = s.resolver.Fallback(d)
			dir, ok = s.destDir(d.Segments)
		}
		if !ok {
			appLog.Warn("folder leaves the output root; leaving file in place",
				"file", from, "folder", filepath.Join(d.Segments...))
			moves = append(moves, Move{From: from, To: from, Decision: d})
			continue
		}
		to := s.claim(claimed, from, filepath.Join(dir, filepath.Base(from)))
		moves = append(moves, Move{From: from, To: to, Decision: d})
	}
	return moves
}

// destDir joins segments onto the output root and reports whether the
// result stays below it.
func (s *Sorter) destDir(segments []string) (string, bool) {
	root := filepath.Clean(s.opts.Root)
	dir := filepath.Join(append([]string{root}, segments...)...)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return dir, true
}

// claim returns want, or a " - dupN" variant when want is already taken by
// another file on disk or earlier in this plan.
func (s *Sorter) claim(claimed map[string]string, from, want string) string {
	taken := func(p string) bool {
		if p == from {
			return false
		}
		if owner, ok := claimed[p]; ok && owner != from {
			return true
		}
		exists, _ := afero.Exists(s.fs, p)
		return exists
	}

	to := want
	if taken(want) {
		ext := filepath.Ext(want)
		stem := strings.TrimSuffix(want, ext)
		for n := 1; ; n++ {
			to = fmt.Sprintf("%s - dup%d%s", stem, n, ext)
			if !taken(to) {
				break
			}
		}
	}
	claimed[to] = from
	return to
}

// Run discovers, plans and executes one pass, then prunes emptied input
// directories. Cancellation is checked between files.
func (s *Sorter) Run(ctx context.Context) (Stats, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var stats Stats
	files, err := s.Discover()
	if err != nil {
		return stats, err
	}
	stats.Total = len(files)
	appLog.Info("sort run start", "input", s.opts.InputDir, "root", s.opts.Root, "files", len(files), "dry_run", s.opts.DryRun)

	for _, mv := range s.Plan(files) {
		if err := ctx.Err(); err != nil {
			appLog.Warn("sort run interrupted", "moved", stats.Moved)
			return stats, err
		}
		if mv.From == mv.To {
			stats.Skipped++
			continue
		}

		if s.opts.DryRun {
			appLog.Info("would move", "from", mv.From, "to", mv.To, "bucket", mv.Decision.Bucket.String())
		} else if err := s.move(mv.From, mv.To); err != nil {
			appLog.Error("move failed", err, "from", mv.From, "to", mv.To)
			stats.Failed++
			continue
		} else {
			appLog.Info("moved", "from", mv.From, "to", mv.To, "bucket", mv.Decision.Bucket.String())
		}

		stats.Moved++
		switch mv.Decision.Bucket {
		case BucketEvent:
			stats.Events++
		case BucketSeason:
			stats.Seasons++
		default:
			stats.Unknown++
		}
	}

	if !s.opts.DryRun && !s.opts.KeepEmptyDirs {
		n, err := s.pruneEmpty(s.opts.InputDir)
		stats.Pruned = n
		if err != nil {
			appLog.Error("prune failed", err, "input", s.opts.InputDir)
		}
	}

	appLog.Info("sort run done",
		"total", stats.Total, "moved", stats.Moved, "events", stats.Events,
		"seasons", stats.Seasons, "unknown", stats.Unknown, "skipped", stats.Skipped,
		"failed", stats.Failed, "pruned", stats.Pruned)
	return stats, nil
}

func (s *Sorter) move(from, to string) error {
	if err := s.fs.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	err := s.fs.Rename(from, to)
	if err == nil {
		return nil
	}
	// Rename fails across devices; fall back to copy + remove.
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	if cerr := s.copyFile(from, to); cerr != nil {
		return fmt.Errorf("%w (copy fallback: %v)", err, cerr)
	}
	return s.fs.Remove(from)
}

func (s *Sorter) copyFile(from, to string) error {
	src, err := s.fs.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.fs.OpenFile(to, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		s.fs.Remove(to)
		return err
	}
	return dst.Close()
}

// pruneEmpty removes empty directories below dir, deepest first. dir
// itself is kept.
func (s *Sorter) pruneEmpty(dir string) (int, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		n, err := s.pruneEmpty(sub)
		removed += n
		if err != nil {
			return removed, err
		}
		left, err := afero.ReadDir(s.fs, sub)
		if err != nil {
			return removed, err
		}
		if len(left) == 0 {
			if err := s.fs.Remove(sub); err != nil {
				return removed, err
			}
			appLog.Debug("removed empty directory", "dir", sub)
			removed++
		}
	}
	return removed, nil
}
