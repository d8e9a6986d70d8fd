package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sdejongh/syncverdict/pkg/models"
)

func stateFile(size uint64, modTime time.Time) models.FileInfo {
	return models.FileInfo{Size: size, ModTime: modTime}
}

// checkpointed returns a state holding one checkpoint of the given inventories
func checkpointed(t *testing.T, local, remote models.Inventory) *SyncState {
	t.Helper()
	state := NewSyncState(t.TempDir(), "/local", "s3://bucket/prefix")
	state.RecordCheckpoint(local, remote, nil)
	return state
}

// ============== SyncState Tests ==============

func TestNewSyncState(t *testing.T) {
	state := NewSyncState("/state", "/local", "s3://bucket")

	if state.Version != stateFileVersion {
		t.Errorf("Version = %d, want %d", state.Version, stateFileVersion)
	}
	if state.LocalRoot != "/local" {
		t.Errorf("LocalRoot = %s, want /local", state.LocalRoot)
	}
	if state.Remote != "s3://bucket" {
		t.Errorf("Remote = %s, want s3://bucket", state.Remote)
	}
	if state.Files == nil || len(state.Files) != 0 {
		t.Errorf("Files = %v, want empty initialized map", state.Files)
	}
	if !state.IsFirstSync() {
		t.Error("new state should be a first sync")
	}
}

func TestSyncState_RecordCheckpoint(t *testing.T) {
	local := models.Inventory{
		"both.txt":  stateFile(10, fileTime),
		"local.txt": stateFile(3, fileTime),
		"dir":       {IsDir: true, ModTime: fileTime},
	}
	remote := models.Inventory{
		"both.txt":   stateFile(12, fileTime.Add(time.Minute)),
		"remote.txt": stateFile(5, fileTime),
	}

	state := checkpointed(t, local, remote)

	if state.IsFirstSync() {
		t.Error("IsFirstSync() should be false after a checkpoint")
	}
	if len(state.Files) != 4 {
		t.Errorf("len(Files) = %d, want 4", len(state.Files))
	}

	both := state.GetFileState("both.txt")
	if both == nil || both.Local == nil || both.Remote == nil {
		t.Fatalf("both.txt = %+v, want both sides recorded", both)
	}
	if both.Local.Size != 10 || both.Remote.Size != 12 {
		t.Errorf("sizes = %d/%d, want 10/12", both.Local.Size, both.Remote.Size)
	}

	if fs := state.GetFileState("local.txt"); fs == nil || fs.Remote != nil {
		t.Errorf("local.txt = %+v, want local side only", fs)
	}
	if fs := state.GetFileState("dir"); fs == nil || !fs.IsDir {
		t.Errorf("dir = %+v, want IsDir", fs)
	}
	if state.GetFileState("unknown") != nil {
		t.Error("untracked path should return nil")
	}

	t.Run("UnresolvedKeepPrevious", func(t *testing.T) {
		state := checkpointed(t, local, remote)
		state.RecordCheckpoint(
			models.Inventory{"both.txt": stateFile(99, fileTime.Add(time.Hour)), "fresh.txt": stateFile(1, fileTime)},
			models.Inventory{"both.txt": stateFile(77, fileTime.Add(2 * time.Hour)), "fresh.txt": stateFile(1, fileTime)},
			[]string{"both.txt", "fresh.txt"},
		)

		both := state.GetFileState("both.txt")
		if both == nil || both.Local.Size != 10 || both.Remote.Size != 12 {
			t.Errorf("both.txt = %+v, want the previous checkpoint", both)
		}
		if state.GetFileState("fresh.txt") != nil {
			t.Error("an unresolved path with no previous checkpoint should stay untracked")
		}
	})

	t.Run("ReplacesPrevious", func(t *testing.T) {
		state.RecordCheckpoint(models.Inventory{"new.txt": stateFile(1, fileTime)}, nil, nil)
		if len(state.Files) != 1 || state.GetFileState("both.txt") != nil {
			t.Errorf("Files = %v, want only new.txt", state.Files)
		}
	})
}

func TestSyncState_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	state := NewSyncState(dir, "/local", "s3://bucket")
	state.RecordCheckpoint(
		models.Inventory{"a.txt": stateFile(4, fileTime)},
		models.Inventory{"a.txt": stateFile(4, fileTime)},
		nil,
	)
	if err := state.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	statePath := StateFilePath(dir, "/local", "s3://bucket")
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
	if _, err := os.Stat(statePath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain")
	}

	loaded, err := LoadState(dir, "/local", "s3://bucket")
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if loaded.IsFirstSync() {
		t.Error("loaded state should keep the checkpoint time")
	}
	fs := loaded.GetFileState("a.txt")
	if fs == nil || fs.Local == nil || !fs.Local.ModTime.Equal(fileTime) {
		t.Errorf("a.txt = %+v, want checkpointed local side", fs)
	}

	t.Run("MissingFileIsFirstSync", func(t *testing.T) {
		fresh, err := LoadState(dir, "/other", "s3://bucket")
		if err != nil {
			t.Fatalf("LoadState() error = %v", err)
		}
		if !fresh.IsFirstSync() {
			t.Error("unknown pair should start a first sync")
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		path := StateFilePath(dir, "/corrupt", "s3://bucket")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadState(dir, "/corrupt", "s3://bucket"); err == nil {
			t.Error("LoadState() should fail on a corrupt file")
		}
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		path := StateFilePath(dir, "/old", "s3://bucket")
		if err := os.WriteFile(path, []byte(`{"version": 1, "files": {}}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadState(dir, "/old", "s3://bucket"); err == nil {
			t.Error("LoadState() should reject an unsupported version")
		}
	})
}

func TestStateFilePath(t *testing.T) {
	a := StateFilePath("/state", "/data/photos", "s3://bucket/photos")
	b := StateFilePath("/state", "/data/photos/", "s3://bucket/photos")
	c := StateFilePath("/state", "/data/photos", "s3://bucket/other")

	if a != b {
		t.Errorf("trailing separator should not change the path: %s != %s", a, b)
	}
	if a == c {
		t.Error("different remotes should use different files")
	}
	if filepath.Dir(a) != "/state" || filepath.Ext(a) != ".json" {
		t.Errorf("StateFilePath() = %s, want /state/<id>.json", a)
	}
}

// ============== Change Detection Tests ==============

func TestSyncState_DetectChange(t *testing.T) {
	state := checkpointed(t,
		models.Inventory{
			"kept.txt":    stateFile(10, fileTime),
			"removed.txt": stateFile(10, fileTime),
		},
		nil,
	)

	fileAt := func(size uint64, modTime time.Time) *models.FileInfo {
		info := stateFile(size, modTime)
		return &info
	}

	tests := []struct {
		name    string
		path    string
		current *models.FileInfo
		want    ChangeType
	}{
		{"unchanged", "kept.txt", fileAt(10, fileTime), ChangeNone},
		{"within tolerance", "kept.txt", fileAt(10, fileTime.Add(time.Second)), ChangeNone},
		{"size changed", "kept.txt", fileAt(11, fileTime), ChangeModified},
		{"timestamp changed", "kept.txt", fileAt(10, fileTime.Add(time.Minute)), ChangeModified},
		{"deleted", "removed.txt", nil, ChangeDeleted},
		{"created", "new.txt", fileAt(1, fileTime), ChangeCreated},
		{"never existed", "ghost.txt", nil, ChangeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := state.DetectChange(tt.path, tt.current, SideLocal); got != tt.want {
				t.Errorf("DetectChange() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("SidesAreIndependent", func(t *testing.T) {
		if got := state.DetectChange("kept.txt", fileAt(10, fileTime), SideRemote); got != ChangeCreated {
			t.Errorf("remote side = %s, want created (only local was checkpointed)", got)
		}
	})
}

func TestDetectConflicts(t *testing.T) {
	base := stateFile(10, fileTime)
	state := checkpointed(t,
		models.Inventory{"both.txt": base, "one.txt": base, "dir": {IsDir: true}},
		models.Inventory{"both.txt": base, "one.txt": base, "dir": {IsDir: true}},
	)

	localEdit := stateFile(20, fileTime.Add(time.Hour))
	remoteEdit := stateFile(30, fileTime.Add(2*time.Hour))

	comparisons := []models.FileComparison{
		{RelativePath: "both.txt", Status: models.StatusRemoteNewer, Local: &localEdit, Remote: &remoteEdit},
		{RelativePath: "one.txt", Status: models.StatusRemoteNewer, Local: &base, Remote: &remoteEdit},
		{RelativePath: "dir", Status: models.StatusLocalNewer, Local: &models.FileInfo{IsDir: true, ModTime: fileTime.Add(time.Hour)}, Remote: &models.FileInfo{IsDir: true}, IsDir: true},
		{RelativePath: "fresh.txt", Status: models.StatusLocalOnly, Local: &localEdit},
	}

	result := DetectConflicts(comparisons, state)

	want := []models.SyncStatus{
		models.StatusConflict,
		models.StatusRemoteNewer,
		models.StatusLocalNewer,
		models.StatusLocalOnly,
	}
	for i, status := range want {
		if result[i].Status != status {
			t.Errorf("%s: Status = %s, want %s", result[i].RelativePath, result[i].Status, status)
		}
	}

	if comparisons[0].Status != models.StatusRemoteNewer {
		t.Error("input comparisons must not be modified")
	}

	t.Run("CreatedOnBothSides", func(t *testing.T) {
		a := stateFile(1, fileTime)
		b := stateFile(2, fileTime.Add(time.Hour))
		got := DetectConflicts([]models.FileComparison{
			{RelativePath: "twin.txt", Status: models.StatusRemoteNewer, Local: &a, Remote: &b},
		}, state)
		if got[0].Status != models.StatusConflict {
			t.Errorf("Status = %s, want conflict", got[0].Status)
		}
	})

	t.Run("FirstSyncUnchanged", func(t *testing.T) {
		fresh := NewSyncState(t.TempDir(), "/local", "s3://bucket")
		got := DetectConflicts(comparisons, fresh)
		for i := range got {
			if got[i].Status != comparisons[i].Status {
				t.Errorf("%s: Status = %s, want %s", got[i].RelativePath, got[i].Status, comparisons[i].Status)
			}
		}
	})

	t.Run("NilState", func(t *testing.T) {
		if got := DetectConflicts(comparisons, nil); len(got) != len(comparisons) {
			t.Errorf("len = %d, want %d", len(got), len(comparisons))
		}
	})
}
