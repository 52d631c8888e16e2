package can

import "time"

// fastPacketKey identifies one in-flight Fast Packet message. The 3-bit sequence
// counter distinguishes up to 8 concurrent messages per (source, PGN).
type fastPacketKey struct {
	source   uint8
	pgn      uint32
	sequence uint8
}

// transportKey identifies one in-flight transport protocol session by its directed
// (sender, receiver) pair. J1939 permits a single session per pair, so there is at most
// one live session per (source, destination, PGN).
type transportKey struct {
	source      uint8
	destination uint8
}

func (k transportKey) reversed() transportKey {
	return transportKey{source: k.destination, destination: k.source}
}

// sessionTable is the single shared store of live sessions for one reconstruction run.
// Sessions are created by the first qualifying frame, mutated by continuations, and
// removed on completion, abort or timeout - never left dangling.
type sessionTable struct {
	transport  map[transportKey]*transportSession
	fastPacket map[fastPacketKey]*fastPacketSession
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		transport:  make(map[transportKey]*transportSession),
		fastPacket: make(map[fastPacketKey]*fastPacketSession),
	}
}

func (t *sessionTable) len() int {
	return len(t.transport) + len(t.fastPacket)
}

// sweep aborts every session whose deadline has passed relative to the just-seen frame
// timestamp. Deadlines are never compared against the wall clock so that replaying a
// log is deterministic.
func (t *sessionTable) sweep(now time.Time, timeouts Timeouts, diag DiagnosticFunc) {
	for key, session := range t.fastPacket {
		if now.Sub(session.last) > timeouts.FastPacket {
			delete(t.fastPacket, key)
			diag.emit(Diagnostic{
				Time:        now,
				Reason:      AbortTimeout,
				Source:      key.source,
				Destination: session.header.Destination,
				PGN:         key.pgn,
				Message:     "fast packet session timed out",
			})
		}
	}
	for key, session := range t.transport {
		if now.Sub(session.lastAdvance) > session.deadline(timeouts) {
			delete(t.transport, key)
			diag.emit(Diagnostic{
				Time:        now,
				Reason:      AbortTimeout,
				Source:      key.source,
				Destination: key.destination,
				PGN:         session.header.PGN,
				Message:     "transport session timed out in state " + session.state.String(),
			})
		}
	}
}
