// Package vfs stages the outputs of one toolchain run in memory. Nothing
// reaches the host until every stage has succeeded and PersistTo is called,
// so a failed run never leaves a truncated output file behind.
package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

// MaxDiskBytes caps the total size of staged output (8MB).
const MaxDiskBytes = 8 << 20

// validFilename accepts bare output names with one of the toolchain's
// extensions. Directories are not allowed.
var validFilename = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.$-]{0,63}\.(jack|vm|asm|hack|xml)$`)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("disk quota exceeded")
)

type FileEntry struct {
	Data     []byte
	Modified time.Time
}

// VirtualDisk is a set of staged output files keyed by base name.
type VirtualDisk struct {
	Mu         sync.RWMutex
	Files      map[string]*FileEntry
	DirtyFiles map[string]bool
	UsedBytes  int
	Dirty      bool
}

func NewVirtualDisk() *VirtualDisk {
	return &VirtualDisk{
		Files:      make(map[string]*FileEntry),
		DirtyFiles: make(map[string]bool),
	}
}

// ValidName reports whether name can be staged.
func ValidName(name string) bool {
	return validFilename.MatchString(name)
}

// Write stages data under filename, replacing any earlier version. The
// data is copied.
func (vd *VirtualDisk) Write(filename string, data []byte) error {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	if !validFilename.MatchString(filename) {
		return ErrInvalidFilename
	}

	oldSize := 0
	entry, exists := vd.Files[filename]
	if exists {
		oldSize = len(entry.Data)
	}

	newSize := len(data)
	if vd.UsedBytes-oldSize+newSize > MaxDiskBytes {
		return ErrQuotaExceeded
	}

	newData := make([]byte, newSize)
	copy(newData, data)

	if !exists {
		entry = &FileEntry{}
		vd.Files[filename] = entry
	}
	entry.Data = newData
	entry.Modified = time.Now()

	vd.DirtyFiles[filename] = true
	vd.UsedBytes = vd.UsedBytes - oldSize + newSize
	vd.Dirty = true
	return nil
}

// WriteString is Write for text output.
func (vd *VirtualDisk) WriteString(filename, text string) error {
	return vd.Write(filename, []byte(text))
}

func (vd *VirtualDisk) Read(filename string) ([]byte, error) {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	if !validFilename.MatchString(filename) {
		return nil, ErrInvalidFilename
	}
	entry, ok := vd.Files[filename]
	if !ok {
		return nil, ErrFileNotFound
	}
	return entry.Data, nil
}

func (vd *VirtualDisk) Size(filename string) (int, error) {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	if !validFilename.MatchString(filename) {
		return 0, ErrInvalidFilename
	}
	entry, ok := vd.Files[filename]
	if !ok {
		return 0, ErrFileNotFound
	}
	return len(entry.Data), nil
}

// Delete unstages a file.
func (vd *VirtualDisk) Delete(filename string) error {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	if !validFilename.MatchString(filename) {
		return ErrInvalidFilename
	}
	entry, ok := vd.Files[filename]
	if !ok {
		return ErrFileNotFound
	}
	vd.UsedBytes -= len(entry.Data)
	delete(vd.Files, filename)
	delete(vd.DirtyFiles, filename)
	vd.Dirty = len(vd.DirtyFiles) > 0
	return nil
}

// Discard drops everything staged so far.
func (vd *VirtualDisk) Discard() {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()
	vd.Files = make(map[string]*FileEntry)
	vd.DirtyFiles = make(map[string]bool)
	vd.UsedBytes = 0
	vd.Dirty = false
}

func (vd *VirtualDisk) FreeSpace() int {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()
	return MaxDiskBytes - vd.UsedBytes
}

// List returns the staged file names, sorted.
func (vd *VirtualDisk) List() []string {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	keys := make([]string, 0, len(vd.Files))
	for k := range vd.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PersistTo writes every dirty file into the host directory path, creating
// it if needed. Each file goes to a temporary name first and is renamed
// into place, so a host file is either the old or the complete new
// version. Returns the first error encountered; files that failed stay
// dirty.
func (vd *VirtualDisk) PersistTo(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}

	// Snapshot under the lock, then release before doing I/O.
	vd.Mu.Lock()
	snapshot := make(map[string][]byte, len(vd.DirtyFiles))
	for name := range vd.DirtyFiles {
		if entry, ok := vd.Files[name]; ok {
			data := make([]byte, len(entry.Data))
			copy(data, entry.Data)
			snapshot[name] = data
		}
		delete(vd.DirtyFiles, name)
	}
	vd.Dirty = false
	vd.Mu.Unlock()

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		if err := writeAtomic(filepath.Join(path, name), snapshot[name]); err != nil {
			vd.Mu.Lock()
			vd.DirtyFiles[name] = true
			vd.Dirty = true
			vd.Mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func writeAtomic(dst string, data []byte) error {
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
