package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// cachedCalendar is the last good payload of a subscription plus the
// validators needed to revalidate it.
type cachedCalendar struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Body         []byte    `json:"-"`
}

// calendarCache keeps one body file and one metadata file per URL.
type calendarCache struct {
	fs  afero.Fs
	dir string
}

func (c calendarCache) key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8]))
}

// load returns the cached calendar for url. A missing entry is not an
// error; it yields an empty cachedCalendar.
func (c calendarCache) load(url string) (cachedCalendar, error) {
	base := c.key(url)
	body, err := afero.ReadFile(c.fs, base+".ics")
	if errors.Is(err, fs.ErrNotExist) {
		return cachedCalendar{URL: url}, nil
	}
	if err != nil {
		return cachedCalendar{URL: url}, err
	}

	entry := cachedCalendar{URL: url}
	if data, err := afero.ReadFile(c.fs, base+".json"); err == nil {
		// Validators are optional; a damaged file only costs a full download.
		_ = json.Unmarshal(data, &entry)
	}
	entry.Body = body
	return entry, nil
}

// store writes the body before its metadata, each through a temp file, so
// validators never describe a body that is not on disk.
func (c calendarCache) store(entry cachedCalendar) error {
	if err := c.fs.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	base := c.key(entry.URL)
	if err := c.writeAtomic(base+".ics", entry.Body); err != nil {
		return err
	}
	meta, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return c.writeAtomic(base+".json", meta)
}

func (c calendarCache) writeAtomic(path string, data []byte) error {
	tmp, err := afero.TempFile(c.fs, c.dir, ".calendar-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer c.fs.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return c.fs.Rename(name, path)
}
