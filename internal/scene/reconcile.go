package scene

import "encoding/json"

// Reconciler merges a local element collection with the remote one into a
// single convergent result. The sync client only depends on this type, so
// the merge policy can be swapped without touching the save path. AppState
// carries editor context the policy may consult; Reconcile ignores it.
type Reconciler func(local, remote []Element, appState json.RawMessage) []Element

// Reconcile merges two divergent collections. Per element id, the higher
// version wins; on equal versions the lower nonce wins; if both are equal
// the local copy is kept. Elements only one side knows about always survive.
// The result follows the remote ordering with local-only elements appended,
// so two clients reconciling the same pair converge on the same collection.
func Reconcile(local, remote []Element, _ json.RawMessage) []Element {
	localByID := make(map[string]int, len(local))
	for i := range local {
		localByID[local[i].ID] = i
	}

	merged := make([]Element, 0, len(remote)+len(local))
	seen := make(map[string]bool, len(remote))
	for i := range remote {
		r := remote[i]
		seen[r.ID] = true
		if j, ok := localByID[r.ID]; ok && localWins(local[j], r) {
			merged = append(merged, local[j])
			continue
		}
		merged = append(merged, r)
	}
	for i := range local {
		if !seen[local[i].ID] {
			merged = append(merged, local[i])
		}
	}
	return merged
}

func localWins(l, r Element) bool {
	if l.Version != r.Version {
		return l.Version > r.Version
	}
	return l.Nonce <= r.Nonce
}
