// Package refdb builds the in-memory reference signature database.
// The database is constructed once at startup and read-only afterwards,
// so it is safely shared by concurrent segment analyses without locking.
package refdb

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/mdobak/go-xerrors"

	"setfinder/dsp"
	"setfinder/models"
	"setfinder/utils"
	"setfinder/wav"
)

const referenceWindowSec = 30.0

// Entry pairs a song identifier with its extracted signature.
type Entry struct {
	Name      string
	Signature models.Signature
}

// Database maps song identifiers to reference signatures. Iteration
// via Entries is in sorted-name order, which makes match tie-breaking
// deterministic.
type Database struct {
	entries map[string]models.Signature
}

// NewFromEntries builds a database from already-extracted signatures.
func NewFromEntries(entries map[string]models.Signature) *Database {
	db := &Database{entries: make(map[string]models.Signature, len(entries))}
	for name, sig := range entries {
		db.entries[name] = sig
	}
	return db
}

// Len returns the number of reference signatures.
func (d *Database) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns all references sorted by name.
func (d *Database) Entries() []Entry {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, Signature: d.entries[name]})
	}
	return entries
}

// Build constructs the database from a folder of known tracks. Each
// file contributes a signature extracted from its middle 30 seconds,
// which avoids intro/outro silence and fades. Individual file failures
// are logged and skipped; a missing or empty folder yields an empty
// database, which is a valid state, not an error.
func Build(folder string, cfg dsp.AnalysisConfig) *Database {
	log := utils.Logger()
	db := &Database{entries: map[string]models.Signature{}}

	if folder == "" {
		return db
	}
	if _, err := os.Stat(folder); err != nil {
		log.WithField("folder", folder).Warn("reference folder not accessible, matching disabled")
		return db
	}

	files, err := utils.FindAudioFiles(folder)
	if err != nil {
		log.WithError(err).Warn("couldn't list reference folder, matching disabled")
		return db
	}
	if len(files) == 0 {
		return db
	}

	log.WithField("folder", folder).Infof("building reference database from %d files", len(files))

	maxWorkers := runtime.NumCPU() / 2
	if len(files) < maxWorkers {
		maxWorkers = len(files)
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var mu sync.Mutex
	jobs := make(chan string, len(files))
	var wg sync.WaitGroup

	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				sig, err := referenceSignature(path, cfg)
				if err != nil {
					log.WithField("file", filepath.Base(path)).WithError(err).Warn("skipping reference")
					continue
				}
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				mu.Lock()
				db.entries[name] = *sig
				mu.Unlock()
				log.WithField("reference", name).Debug("added reference signature")
			}
		}()
	}

	for _, path := range files {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	log.Infof("reference database ready: %d entries", db.Len())
	return db
}

func referenceSignature(path string, cfg dsp.AnalysisConfig) (*models.Signature, error) {
	duration, err := wav.GetAudioDuration(path)
	if err != nil {
		return nil, xerrors.New("probing reference duration", err)
	}

	windowSec := referenceWindowSec
	start := duration/2 - windowSec/2
	if start < 0 {
		start = 0
	}
	if windowSec > duration {
		windowSec = duration
	}

	chunkPath, err := wav.ExtractChunkAsWAV(path, start, windowSec)
	if err != nil {
		return nil, xerrors.New("extracting reference window", err)
	}
	defer os.Remove(chunkPath)

	buf, err := wav.ReadWAV(chunkPath)
	if err != nil {
		return nil, xerrors.New("decoding reference window", err)
	}

	sig, err := dsp.ExtractSignature(buf, cfg)
	if err != nil {
		return nil, xerrors.New("extracting reference signature", err)
	}
	return sig, nil
}
