// Package pairing turns a snapshot of queued lobby members into a stable
// opponent/host decision. Every queued client runs the same computation over
// the same roster and lands on the same pairs, so no negotiation round-trip
// is needed. Inconsistent snapshots re-converge through the periodic presence
// re-broadcast in the lobby.
package pairing

import "sort"

// Peer is one queued lobby member as seen in a presence snapshot.
type Peer struct {
	UserID string
	Name   string
}

// Decision is the pairing outcome for the caller. The lexicographically
// smaller user id of a pair always hosts.
type Decision struct {
	OpponentID   string
	OpponentName string
	IsHost       bool
}

// SelectOpponent pairs selfID against the queued peers. It returns nil when
// the roster leaves self without a partner (the odd one out waits for the
// next snapshot).
func SelectOpponent(selfID, selfName string, peers []Peer) *Decision {
	if selfID == "" {
		return nil
	}

	byID := make(map[string]Peer, len(peers)+1)
	byID[selfID] = Peer{UserID: selfID, Name: selfName}
	for _, p := range peers {
		if p.UserID == "" {
			continue
		}
		byID[p.UserID] = p
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	self := -1
	for i, id := range ids {
		if id == selfID {
			self = i
			break
		}
	}
	if self < 0 {
		return nil
	}

	partner := self + 1
	if self%2 == 1 {
		partner = self - 1
	}
	if partner < 0 || partner >= len(ids) {
		return nil
	}

	opp := byID[ids[partner]]
	return &Decision{
		OpponentID:   opp.UserID,
		OpponentName: opp.Name,
		IsHost:       selfID < opp.UserID,
	}
}
