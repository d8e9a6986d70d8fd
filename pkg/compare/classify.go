package compare

import (
	"github.com/sdejongh/syncverdict/pkg/models"
)

// Classify derives the sync status of one path from its optional local and
// remote metadata. The rules apply in this order:
//
//  1. local only -> LocalOnly, remote only -> RemoteOnly, neither -> Identical
//  2. sizes differ (size comparison on): the newer side wins when timestamps
//     are compared and ordered, otherwise SizeMismatch
//  3. sizes equal or not compared: timestamps decide, and an equal or
//     unknown ordering is Identical
//
// Classify never returns StatusConflict; that status needs history the
// classifier does not have.
func Classify(local, remote *models.FileInfo, opts models.CompareOptions) models.SyncStatus {
	switch {
	case local != nil && remote == nil:
		return models.StatusLocalOnly
	case local == nil && remote != nil:
		return models.StatusRemoteOnly
	case local == nil && remote == nil:
		// Cannot happen with a merged key set
		return models.StatusIdentical
	}

	if opts.CompareSize && local.Size != remote.Size {
		if !opts.CompareTimestamp {
			return models.StatusSizeMismatch
		}

		switch CompareTimestamps(local.ModTime, remote.ModTime) {
		case LocalAfter:
			return models.StatusLocalNewer
		case RemoteAfter:
			return models.StatusRemoteNewer
		default:
			return models.StatusSizeMismatch
		}
	}

	if !opts.CompareTimestamp {
		return models.StatusIdentical
	}

	switch CompareTimestamps(local.ModTime, remote.ModTime) {
	case LocalAfter:
		return models.StatusLocalNewer
	case RemoteAfter:
		return models.StatusRemoteNewer
	default:
		// Equal within tolerance, or no timestamp on one side: with sizes
		// already matching this is treated as identical
		return models.StatusIdentical
	}
}
