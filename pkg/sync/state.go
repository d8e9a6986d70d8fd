package sync

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/sdejongh/syncverdict/pkg/compare"
	"github.com/sdejongh/syncverdict/pkg/models"
)

// SyncState is the journal of a local/remote pair.
// It is persisted after each completed sync so the next run can tell which
// side changed in the meantime.
type SyncState struct {
	// Version for state file format compatibility
	Version int `json:"version"`

	// LocalRoot and Remote identify the sync pair
	LocalRoot string `json:"local_root"`
	Remote    string `json:"remote"`

	// LastSyncTime is when the last successful sync completed
	LastSyncTime time.Time `json:"last_sync_time"`

	// Files tracks both sides of each path at last sync
	Files map[string]*FileState `json:"files"`

	dir string
}

// FileState is the checkpoint of one path. A nil side means the path did
// not exist there at last sync.
type FileState struct {
	RelativePath string     `json:"relative_path"`
	Local        *SideState `json:"local,omitempty"`
	Remote       *SideState `json:"remote,omitempty"`
	IsDir        bool       `json:"is_dir"`
}

// SideState is the metadata recorded for one side
type SideState struct {
	Size    uint64    `json:"size"`
	ModTime time.Time `json:"mod_time,omitzero"`
}

// ChangeType categorizes the type of change
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeNone     ChangeType = "none"
)

// ChangeSide indicates which side the change occurred on
type ChangeSide string

const (
	SideLocal  ChangeSide = "local"
	SideRemote ChangeSide = "remote"
)

const (
	stateFileVersion = 2
	stateDirName     = "syncverdict"
)

// NewSyncState creates a new empty sync state stored under dir
func NewSyncState(dir, localRoot, remote string) *SyncState {
	return &SyncState{
		Version:   stateFileVersion,
		LocalRoot: localRoot,
		Remote:    remote,
		Files:     make(map[string]*FileState),
		dir:       dir,
	}
}

// DefaultStateDir returns the directory used when none is configured
func DefaultStateDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, stateDirName, "state")
}

// LoadState loads the journal of a pair from dir.
// Returns a new empty state if no journal exists yet.
func LoadState(dir, localRoot, remote string) (*SyncState, error) {
	if dir == "" {
		dir = DefaultStateDir()
	}
	statePath := StateFilePath(dir, localRoot, remote)

	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSyncState(dir, localRoot, remote), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if state.Version != stateFileVersion {
		return nil, fmt.Errorf("state file version %d is not supported (want %d)", state.Version, stateFileVersion)
	}

	if state.Files == nil {
		state.Files = make(map[string]*FileState)
	}
	state.dir = dir

	return &state, nil
}

// Save persists the journal atomically
func (s *SyncState) Save() error {
	if s.dir == "" {
		s.dir = DefaultStateDir()
	}
	statePath := StateFilePath(s.dir, s.LocalRoot, s.Remote)

	if err := os.MkdirAll(filepath.Dir(statePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := statePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, statePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize state file: %w", err)
	}

	return nil
}

// GetFileState returns the checkpoint of a path, or nil if not tracked
func (s *SyncState) GetFileState(relativePath string) *FileState {
	return s.Files[relativePath]
}

// IsFirstSync returns true if no checkpoint was recorded yet
func (s *SyncState) IsFirstSync() bool {
	return s.LastSyncTime.IsZero()
}

// RecordCheckpoint replaces the journal with the given inventories and
// marks the sync complete. Paths listed in unresolved were deferred or failed;
// they keep their previous checkpoint so a pending conflict is seen again.
func (s *SyncState) RecordCheckpoint(local, remote models.Inventory, unresolved []string) {
	files := make(map[string]*FileState, len(local))

	entry := func(path string, isDir bool) *FileState {
		fs, ok := files[path]
		if !ok {
			fs = &FileState{RelativePath: path}
			files[path] = fs
		}
		fs.IsDir = fs.IsDir || isDir
		return fs
	}

	for path, info := range local {
		entry(path, info.IsDir).Local = &SideState{Size: info.Size, ModTime: info.ModTime}
	}
	for path, info := range remote {
		entry(path, info.IsDir).Remote = &SideState{Size: info.Size, ModTime: info.ModTime}
	}

	for _, path := range unresolved {
		if previous, ok := s.Files[path]; ok {
			files[path] = previous
		} else {
			delete(files, path)
		}
	}

	s.Files = files
	s.LastSyncTime = time.Now()
}

// DetectChange determines how one side of a path changed since the checkpoint.
// current is nil when the path does not exist on that side now.
func (s *SyncState) DetectChange(relativePath string, current *models.FileInfo, side ChangeSide) ChangeType {
	var previous *SideState
	if old := s.GetFileState(relativePath); old != nil {
		if side == SideLocal {
			previous = old.Local
		} else {
			previous = old.Remote
		}
	}

	switch {
	case previous == nil && current == nil:
		return ChangeNone
	case previous == nil:
		return ChangeCreated
	case current == nil:
		return ChangeDeleted
	}

	if current.Size != previous.Size {
		return ChangeModified
	}
	switch compare.CompareTimestamps(current.ModTime, previous.ModTime) {
	case compare.LocalAfter, compare.RemoteAfter:
		return ChangeModified
	}

	return ChangeNone
}

// DetectConflicts marks a comparison as a conflict when both sides of a
// differing file changed since the last checkpoint. Without a checkpoint the
// comparisons are returned unchanged. The input slice is not modified.
func DetectConflicts(comparisons []models.FileComparison, state *SyncState) []models.FileComparison {
	result := make([]models.FileComparison, len(comparisons))
	copy(result, comparisons)

	if state == nil || state.IsFirstSync() {
		return result
	}

	for i := range result {
		c := &result[i]
		if c.IsDir || c.Status == models.StatusIdentical {
			continue
		}

		localChange := state.DetectChange(c.RelativePath, c.Local, SideLocal)
		remoteChange := state.DetectChange(c.RelativePath, c.Remote, SideRemote)

		if localChange != ChangeNone && remoteChange != ChangeNone {
			c.Status = models.StatusConflict
		}
	}

	return result
}

// StateFilePath returns the journal location of a local/remote pair
func StateFilePath(dir, localRoot, remote string) string {
	return filepath.Join(dir, pairID(localRoot, remote)+".json")
}

// pairID creates a deterministic identifier for a local/remote pair
func pairID(localRoot, remote string) string {
	h := fnv.New64a()
	h.Write([]byte(filepath.Clean(localRoot) + "|" + remote))
	return fmt.Sprintf("%016x", h.Sum64())
}
