package models

import (
	"fmt"
	"strings"
)

// SyncStatus is the synchronization state of one path after comparing
// the local and remote inventories
type SyncStatus int

const (
	// StatusIdentical indicates both sides match (or no signal distinguishes them)
	StatusIdentical SyncStatus = iota
	// StatusLocalNewer indicates the local copy was modified more recently
	StatusLocalNewer
	// StatusRemoteNewer indicates the remote copy was modified more recently
	StatusRemoteNewer
	// StatusLocalOnly indicates the path exists only in the local inventory
	StatusLocalOnly
	// StatusRemoteOnly indicates the path exists only in the remote inventory
	StatusRemoteOnly
	// StatusConflict indicates both sides changed since the last checkpoint.
	// The classifier never produces it; the sync journal injects it.
	StatusConflict
	// StatusSizeMismatch indicates sizes differ but timestamps cannot explain why
	StatusSizeMismatch
)

var statusNames = [...]string{
	StatusIdentical:    "identical",
	StatusLocalNewer:   "local_newer",
	StatusRemoteNewer:  "remote_newer",
	StatusLocalOnly:    "local_only",
	StatusRemoteOnly:   "remote_only",
	StatusConflict:     "conflict",
	StatusSizeMismatch: "size_mismatch",
}

// AllStatuses lists every SyncStatus in declaration order
func AllStatuses() []SyncStatus {
	return []SyncStatus{
		StatusIdentical,
		StatusLocalNewer,
		StatusRemoteNewer,
		StatusLocalOnly,
		StatusRemoteOnly,
		StatusConflict,
		StatusSizeMismatch,
	}
}

func (s SyncStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("SyncStatus(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText implements encoding.TextMarshaler
func (s SyncStatus) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid sync status: %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *SyncStatus) UnmarshalText(text []byte) error {
	name := normalizeEnumName(string(text))
	for i, n := range statusNames {
		if n == name {
			*s = SyncStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sync status: %q", string(text))
}

// SyncDirection is the configured direction of a synchronization run
type SyncDirection int

const (
	// DirectionLocalToRemote mirrors the local tree onto the remote
	DirectionLocalToRemote SyncDirection = iota
	// DirectionRemoteToLocal mirrors the remote tree onto the local side
	DirectionRemoteToLocal
	// DirectionBidirectional propagates changes both ways
	DirectionBidirectional
)

var directionNames = [...]string{
	DirectionLocalToRemote: "local_to_remote",
	DirectionRemoteToLocal: "remote_to_local",
	DirectionBidirectional: "bidirectional",
}

// AllDirections lists every SyncDirection in declaration order
func AllDirections() []SyncDirection {
	return []SyncDirection{DirectionLocalToRemote, DirectionRemoteToLocal, DirectionBidirectional}
}

func (d SyncDirection) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("SyncDirection(%d)", int(d))
	}
	return directionNames[d]
}

// MarshalText implements encoding.TextMarshaler
func (d SyncDirection) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(directionNames) {
		return nil, fmt.Errorf("invalid sync direction: %d", int(d))
	}
	return []byte(directionNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *SyncDirection) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection parses a direction name. Both "local_to_remote" and
// "local-to-remote" spellings are accepted.
func ParseDirection(s string) (SyncDirection, error) {
	name := normalizeEnumName(s)
	valid := make([]string, 0, len(directionNames))
	for _, d := range AllDirections() {
		if d.String() == name {
			return d, nil
		}
		valid = append(valid, d.String())
	}
	return 0, fmt.Errorf("unknown sync direction: %q (valid: %s)", s, strings.Join(valid, ", "))
}

// SyncAction is the concrete step recommended for one path
type SyncAction int

const (
	// ActionUpload copies the local file to the remote
	ActionUpload SyncAction = iota
	// ActionDownload copies the remote file to the local side
	ActionDownload
	// ActionDeleteLocal removes the local file
	ActionDeleteLocal
	// ActionDeleteRemote removes the remote file
	ActionDeleteRemote
	// ActionSkip leaves both sides untouched
	ActionSkip
	// ActionAskUser defers the decision to a human
	ActionAskUser
)

var actionNames = [...]string{
	ActionUpload:       "upload",
	ActionDownload:     "download",
	ActionDeleteLocal:  "delete_local",
	ActionDeleteRemote: "delete_remote",
	ActionSkip:         "skip",
	ActionAskUser:      "ask_user",
}

// AllActions lists every SyncAction in declaration order
func AllActions() []SyncAction {
	return []SyncAction{
		ActionUpload,
		ActionDownload,
		ActionDeleteLocal,
		ActionDeleteRemote,
		ActionSkip,
		ActionAskUser,
	}
}

func (a SyncAction) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("SyncAction(%d)", int(a))
	}
	return actionNames[a]
}

// MarshalText implements encoding.TextMarshaler
func (a SyncAction) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(actionNames) {
		return nil, fmt.Errorf("invalid sync action: %d", int(a))
	}
	return []byte(actionNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *SyncAction) UnmarshalText(text []byte) error {
	name := normalizeEnumName(string(text))
	for i, n := range actionNames {
		if n == name {
			*a = SyncAction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sync action: %q", string(text))
}

// IsTransfer reports whether the action moves file content between sides
func (a SyncAction) IsTransfer() bool {
	return a == ActionUpload || a == ActionDownload
}

// IsDelete reports whether the action removes a file on either side
func (a SyncAction) IsDelete() bool {
	return a == ActionDeleteLocal || a == ActionDeleteRemote
}

func normalizeEnumName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
