package sorter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediasort/internal/event"
	"mediasort/internal/filename"
	"mediasort/internal/season"
)

func newResolver(t *testing.T, defs ...event.Definition) *Resolver {
	t.Helper()
	dates, err := filename.NewParser(nil, time.UTC)
	require.NoError(t, err)
	return NewResolver(event.BuildTable(defs), dates, season.DefaultNames, "Unknown")
}

func writeFiles(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte(p), 0o644))
	}
}

func exists(t *testing.T, fs afero.Fs, p string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, p)
	require.NoError(t, err)
	return ok
}

func TestResolve(t *testing.T) {
	r := newResolver(t,
		event.Definition{Name: "Trip|Italy", Dates: []string{"12.08.2019"}},
		event.Definition{Name: "New Year", Dates: []string{"31.12.x-01.01.x"}},
	)

	d := r.Resolve("IMG_20190812_101010.jpg")
	assert.Equal(t, BucketEvent, d.Bucket)
	assert.Equal(t, []string{"Trip", "Italy 2019"}, d.Segments)
	require.NotNil(t, d.Match)
	assert.Equal(t, "Trip|Italy", d.Match.Name)

	d = r.Resolve("VID_20241231_235900.mp4")
	assert.Equal(t, []string{"New Year", "New Year 2024-2025"}, d.Segments)

	d = r.Resolve("IMG_20190813_101010.jpg")
	assert.Equal(t, BucketSeason, d.Bucket)
	assert.Equal(t, []string{"2019", "Summer"}, d.Segments)

	d = r.Resolve("holiday.jpg")
	assert.Equal(t, BucketUnknown, d.Bucket)
	assert.Equal(t, []string{"Unknown"}, d.Segments)
}

func TestDiscover(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/in/b.jpg",
		"/in/a.MP4",
		"/in/notes.txt",
		"/in/.hidden.jpg",
		"/in/.thumbs/c.jpg",
		"/in/sub/d.jpeg",
		"/in/out/e.jpg",
	)
	s := New(fs, Options{InputDir: "/in", Root: "/in/out", Extensions: []string{".jpg", ".jpeg", ".mp4"}}, newResolver(t))

	files, err := s.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"/in/a.MP4", "/in/b.jpg", "/in/sub/d.jpeg"}, files)
}

func TestRunMovesFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/in/IMG_20190812_101010.jpg",
		"/in/camera/VID_20241231_235900.mp4",
		"/in/camera/IMG_20190813_090000.jpg",
		"/in/holiday.jpg",
	)
	r := newResolver(t,
		event.Definition{Name: "Trip|Italy", Dates: []string{"12.08.2019"}},
		event.Definition{Name: "New Year", Dates: []string{"31.12.x-01.01.x"}},
	)
	s := New(fs, Options{InputDir: "/in"}, r)

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Moved: 4, Events: 2, Seasons: 1, Unknown: 1, Pruned: 1}, stats)

	assert.True(t, exists(t, fs, "/in/Trip/Italy 2019/IMG_20190812_101010.jpg"))
	assert.True(t, exists(t, fs, "/in/New Year/New Year 2024-2025/VID_20241231_235900.mp4"))
	assert.True(t, exists(t, fs, "/in/2019/Summer/IMG_20190813_090000.jpg"))
	assert.True(t, exists(t, fs, "/in/Unknown/holiday.jpg"))
	assert.False(t, exists(t, fs, "/in/camera"))

	// A second pass finds everything in place.
	stats, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Skipped)
	assert.Zero(t, stats.Moved)
}

func TestRunDryRunLeavesFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/in/sub/IMG_20190812_101010.jpg")
	s := New(fs, Options{InputDir: "/in", Root: "/out", DryRun: true}, newResolver(t))

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Moved)
	assert.True(t, exists(t, fs, "/in/sub/IMG_20190812_101010.jpg"))
	assert.False(t, exists(t, fs, "/out"))
}

func TestPlanResolvesCollisions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/out/2019/Summer/IMG_20190812.jpg",
		"/in/a/IMG_20190812.jpg",
		"/in/b/IMG_20190812.jpg",
	)
	s := New(fs, Options{InputDir: "/in", Root: "/out"}, newResolver(t))

	files, err := s.Discover()
	require.NoError(t, err)
	moves := s.Plan(files)
	require.Len(t, moves, 2)
	assert.Equal(t, filepath.Join("/out/2019/Summer", "IMG_20190812 - dup1.jpg"), moves[0].To)
	assert.Equal(t, filepath.Join("/out/2019/Summer", "IMG_20190812 - dup2.jpg"), moves[1].To)
}

func TestRunKeepEmptyDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/in/sub/IMG_20190812.jpg")
	require.NoError(t, fs.MkdirAll("/in/empty/deeper", 0o755))
	s := New(fs, Options{InputDir: "/in", KeepEmptyDirs: true}, newResolver(t))

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, exists(t, fs, "/in/sub"))
	assert.True(t, exists(t, fs, "/in/empty/deeper"))
}

func TestRunPrunesNestedEmptyDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/in/empty/deeper", 0o755))
	s := New(fs, Options{InputDir: "/in"}, newResolver(t))

	stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pruned)
	assert.True(t, exists(t, fs, "/in"))
	assert.False(t, exists(t, fs, "/in/empty"))
}

func TestRunCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/in/IMG_20190812.jpg")
	s := New(fs, Options{InputDir: "/in"}, newResolver(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Moved)
	assert.True(t, exists(t, fs, "/in/IMG_20190812.jpg"))
}

func TestPlanStaysBelowRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/photos/in/IMG_20190812_1.jpg",
		"/photos/in/IMG_20190901_1.jpg",
		"/photos/in/notes.jpg",
	)
	dates, err := filename.NewParser(nil, time.UTC)
	require.NoError(t, err)
	table := event.BuildTable([]event.Definition{
		{Name: "..|..|..|etc", Dates: []string{"12.08.2019"}},
	})
	seasons := season.DefaultNames
	seasons.Autumn = "../../../tmp"
	r := NewResolver(table, dates, seasons, "../elsewhere")
	s := New(fs, Options{InputDir: "/photos/in", Root: "/photos/out"}, r)

	stats, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, exists(t, fs, "/photos/out/etc 2019/IMG_20190812_1.jpg"))
	assert.False(t, exists(t, fs, "/etc 2019"))
	assert.True(t, exists(t, fs, "/photos/in/IMG_20190901_1.jpg"))
	assert.True(t, exists(t, fs, "/photos/in/notes.jpg"))
	assert.Equal(t, 1, stats.Moved)
	assert.Equal(t, 2, stats.Skipped)
}

func TestDestDir(t *testing.T) {
	s := New(afero.NewMemMapFs(), Options{InputDir: "/in", Root: "/out"}, newResolver(t))

	tests := []struct {
		segs []string
		want string
		ok   bool
	}{
		{[]string{"Trip", "Italy 2019"}, "/out/Trip/Italy 2019", true},
		{[]string{"..folder"}, "/out/..folder", true},
		{[]string{"..", "x"}, "", false},
		{[]string{"a", "..", ".."}, "", false},
		{[]string{"/abs"}, "/out/abs", true},
	}
	for _, tt := range tests {
		t.Run(filepath.Join(tt.segs...), func(t *testing.T) {
			got, ok := s.destDir(tt.segs)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallback(t *testing.T) {
	r := newResolver(t)
	d := r.Fallback(Decision{Bucket: BucketEvent, Date: time.Date(2019, time.August, 12, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, Decision{Bucket: BucketSeason, Date: time.Date(2019, time.August, 12, 0, 0, 0, 0, time.UTC), Segments: []string{"2019", "Summer"}}, d)
	assert.Equal(t, []string{"Unknown"}, r.Fallback(Decision{}).Segments)
}
