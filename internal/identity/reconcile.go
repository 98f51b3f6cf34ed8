// Package identity merges server-assigned ids back into client state.
//
// A successful sync returns a map from client uid to server id. The map is
// applied to the state as it is when the response arrives, not to the
// snapshot that was sent, and it only ever writes the server id. Fields the
// operator edited while the request was in flight are left alone.
//
// Applying the same map twice is a no-op the second time. An id for a uid
// that no longer exists locally (the entity was deleted while the request
// was in flight) is logged and skipped.
package identity

import (
	"log/slog"
	"slices"

	"github.com/roach88/signflow/internal/model"
)

// IDMap maps client uids to server ids.
type IDMap map[model.UID]model.ServerID

// Assigner is implemented by collections that accept server identity.
type Assigner interface {
	// AssignServerID sets the server id for uid. It reports whether the
	// stored id changed and whether the uid exists.
	AssignServerID(uid model.UID, id model.ServerID) (changed, found bool)
}

// Report summarizes one application of an IDMap.
type Report struct {
	Assigned   []model.UID
	Unchanged  []model.UID
	Mismatched []model.UID
}

// Clean reports whether every uid in the map matched local state.
func (r Report) Clean() bool {
	return len(r.Mismatched) == 0
}

// Apply patches target with ids. Uids are visited in sorted order so the
// report and the log are deterministic.
func Apply(target Assigner, ids IDMap, logger *slog.Logger) Report {
	if logger == nil {
		logger = slog.Default()
	}

	var r Report
	for _, uid := range sortedUIDs(ids) {
		id := ids[uid]
		if !id.Acknowledged() {
			logger.Warn("reconcile: invalid server id", "uid", uid, "server_id", id)
			r.Mismatched = append(r.Mismatched, uid)
			continue
		}

		changed, found := target.AssignServerID(uid, id)
		switch {
		case !found:
			logger.Warn("reconcile: server id for unknown uid", "uid", uid, "server_id", id)
			r.Mismatched = append(r.Mismatched, uid)
		case changed:
			r.Assigned = append(r.Assigned, uid)
		default:
			r.Unchanged = append(r.Unchanged, uid)
		}
	}
	return r
}

// Pending returns the uids in items that have no server id yet, preserving order.
func Pending[T any](items []T, key func(T) (model.UID, model.ServerID)) []model.UID {
	var out []model.UID
	for _, it := range items {
		uid, id := key(it)
		if !id.Acknowledged() {
			out = append(out, uid)
		}
	}
	return out
}

// SignerKey extracts the identity of a signer for Pending.
func SignerKey(s model.Signer) (model.UID, model.ServerID) {
	return s.UID, s.ServerID
}

// FieldKey extracts the identity of a field placement for Pending.
func FieldKey(f model.FieldPlacement) (model.UID, model.ServerID) {
	return f.UID, f.ServerID
}

func sortedUIDs(ids IDMap) []model.UID {
	out := make([]model.UID, 0, len(ids))
	for uid := range ids {
		out = append(out, uid)
	}
	slices.Sort(out)
	return out
}
