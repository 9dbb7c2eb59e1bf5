package chat

import "sort"

// Reconcile merges a confirmed record delivered by the backend stream into
// the current message list. It is a pure function: the input slice is never
// mutated.
//
// Rules, in order:
//  1. A record whose ID is already present is dropped (the send path may
//     have applied the confirmation before the stream echoed it back).
//  2. A record from selfID replaces the oldest still-pending provisional
//     entry with the same sender, kind and content. This is how an
//     optimistic echo is confirmed without ever showing a duplicate.
//  3. Anything else is inserted in timestamp order.
func Reconcile(list []Message, incoming Message, selfID string) []Message {
	for _, m := range list {
		if !m.Provisional && m.ID == incoming.ID {
			return list
		}
	}

	out := make([]Message, len(list))
	copy(out, list)

	if incoming.SenderID == selfID {
		for i, m := range out {
			if m.Provisional && matchesProvisional(m, incoming) {
				confirmed := incoming
				confirmed.Provisional = false
				out[i] = confirmed
				sortMessages(out)
				return out
			}
		}
	}

	incoming.Provisional = false
	out = append(out, incoming)
	sortMessages(out)
	return out
}

// matchesProvisional reports whether a confirmed record corresponds to a
// provisional local echo
func matchesProvisional(provisional, confirmed Message) bool {
	if provisional.SenderID != confirmed.SenderID || provisional.Kind != confirmed.Kind {
		return false
	}
	switch confirmed.Kind {
	case KindCaseReference:
		if provisional.CaseRef == nil || confirmed.CaseRef == nil {
			return false
		}
		return provisional.CaseRef.ID == confirmed.CaseRef.ID
	default:
		return provisional.Body == confirmed.Body
	}
}

// sortMessages orders by timestamp ascending, breaking ties by ID so the
// result is deterministic regardless of delivery order
func sortMessages(list []Message) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].ID < list[j].ID
		}
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
}
