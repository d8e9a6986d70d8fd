package sync

import (
	"github.com/sdejongh/syncverdict/pkg/models"
)

// Resolve maps a sync status and a direction to the recommended action.
// It is total over every status/direction pair:
//
//	status        bidirectional  local->remote  remote->local
//	local_newer   upload         upload         skip
//	remote_newer  download       skip           download
//	local_only    upload         upload         delete_local
//	remote_only   download       delete_remote  download
//	conflict      ask_user       ask_user       ask_user
//	size_mismatch ask_user       ask_user       ask_user
//	identical     skip           skip           skip
//
// A one-way direction makes the source side authoritative: files missing
// from the source are deleted from the target, and a newer target is left alone.
func Resolve(status models.SyncStatus, dir models.SyncDirection) models.SyncAction {
	switch status {
	case models.StatusLocalNewer:
		if dir == models.DirectionRemoteToLocal {
			return models.ActionSkip
		}
		return models.ActionUpload

	case models.StatusRemoteNewer:
		if dir == models.DirectionLocalToRemote {
			return models.ActionSkip
		}
		return models.ActionDownload

	case models.StatusLocalOnly:
		if dir == models.DirectionRemoteToLocal {
			return models.ActionDeleteLocal
		}
		return models.ActionUpload

	case models.StatusRemoteOnly:
		if dir == models.DirectionLocalToRemote {
			return models.ActionDeleteRemote
		}
		return models.ActionDownload

	case models.StatusConflict, models.StatusSizeMismatch:
		return models.ActionAskUser

	default:
		return models.ActionSkip
	}
}

// Plan resolves every comparison into an operation, keeping the input order
func Plan(comparisons []models.FileComparison, dir models.SyncDirection) []models.SyncOperation {
	operations := make([]models.SyncOperation, 0, len(comparisons))
	for _, comparison := range comparisons {
		operations = append(operations, models.SyncOperation{
			Comparison: comparison,
			Action:     Resolve(comparison.Status, dir),
		})
	}
	return operations
}
