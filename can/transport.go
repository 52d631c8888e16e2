package can

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ISO 11783-3 / J1939-21 Transport Protocol control bytes (first byte of a TP.CM frame).
const (
	tpControlRTS         uint8 = 0x10
	tpControlCTS         uint8 = 0x11
	tpControlEndOfMsgAck uint8 = 0x13
	tpControlBAM         uint8 = 0x20
	tpControlConnAbort   uint8 = 0xFF
)

// ctsAllRemaining in the CTS window field means the receiver allows every remaining
// packet in one burst.
const ctsAllRemaining uint8 = 0xFF

type transportState int

const (
	// stateAwaitingCTS waits for the receiver's flow control, either after the RTS or
	// between data bursts.
	stateAwaitingCTS transportState = iota
	// stateReceivingData collects TP.DT frames of the current point-to-point burst.
	stateReceivingData
	// stateReceivingBroadcastData collects TP.DT frames of a BAM session. No flow
	// control is exchanged.
	stateReceivingBroadcastData
	// stateAwaitingEndAck has all data collected and waits for TP.CM_EndOfMsgACK.
	stateAwaitingEndAck
)

func (s transportState) String() string {
	switch s {
	case stateAwaitingCTS:
		return "AwaitingCTS"
	case stateReceivingData:
		return "ReceivingData"
	case stateReceivingBroadcastData:
		return "ReceivingBroadcastData"
	case stateAwaitingEndAck:
		return "AwaitingEndAck"
	}
	return "Idle"
}

// transportSession is one in-flight TP session between a sender and a receiver.
type transportSession struct {
	key    transportKey
	header Header
	iface  string
	state  transportState

	// totalSize is the message size announced by RTS/BAM, at most 1785 bytes.
	totalSize    int
	totalPackets uint8
	// maxBurst is the largest burst the sender is willing to transmit. 0xFF means no limit.
	maxBurst uint8
	// burstEnd is the last packet number allowed by the current CTS window. Zero for
	// broadcast sessions, which have no flow control.
	burstEnd uint8
	// nextSeq is the 1-based sequence number the next TP.DT frame must carry. Sequence
	// numbers never wrap within a session.
	nextSeq uint8
	data    []byte

	start       time.Time
	lastAdvance time.Time
}

// deadline returns how long the session may sit in its current state before the sweep
// aborts it, measured from the last frame that advanced the session.
func (s *transportSession) deadline(timeouts Timeouts) time.Duration {
	switch s.state {
	case stateAwaitingCTS:
		if len(s.data) == 0 {
			return timeouts.T1 // RTS -> CTS
		}
		return timeouts.T3 // between bursts
	case stateReceivingData:
		return timeouts.T2 // CTS -> DT and DT -> DT
	case stateReceivingBroadcastData:
		return timeouts.T1 // BAM inter-packet gap
	case stateAwaitingEndAck:
		return timeouts.T4 // last DT -> EndOfMsgACK
	}
	return timeouts.T1
}

// transportAssembler reassembles point-to-point (RTS/CTS) and broadcast (BAM) transport
// protocol sessions from TP.CM and TP.DT frames.
type transportAssembler struct {
	table *sessionTable
	diag  DiagnosticFunc
}

// HandleControl processes one TP.CM frame (PGN 0xEC00). The returned bool reports
// whether a message was completed.
func (a *transportAssembler) HandleControl(frame Frame) (Message, bool) {
	if frame.Length != 8 {
		a.warn(frame.Time, AbortReserved, frame.Header.Source, frame.Header.Destination, frame.Header.PGN,
			fmt.Sprintf("TP.CM frame must be 8 bytes, got %d", frame.Length))
		return Message{}, false
	}
	switch frame.Data[0] {
	case tpControlRTS:
		a.handleRTS(frame)
	case tpControlBAM:
		a.handleBAM(frame)
	case tpControlCTS:
		a.handleCTS(frame)
	case tpControlEndOfMsgAck:
		return a.handleEndOfMsgAck(frame)
	case tpControlConnAbort:
		a.handleConnAbort(frame)
	default:
		a.handleReservedControl(frame)
	}
	return Message{}, false
}

// TP.CM field accessors. All multi-byte fields are little endian.

func tpTotalBytes(frame Frame) int {
	return int(binary.LittleEndian.Uint16(frame.Data[1:3]))
}

func tpTotalPackets(frame Frame) uint8 {
	return frame.Data[3]
}

func tpMaxBurst(frame Frame) uint8 {
	return frame.Data[4]
}

// tpDataPGN is the PGN of the message being transferred, bytes 5-7 little endian.
func tpDataPGN(frame Frame) uint32 {
	return uint32(frame.Data[5]) | uint32(frame.Data[6])<<8 | uint32(frame.Data[7])<<16
}

func ctsWindow(frame Frame) uint8 {
	return frame.Data[1]
}

func ctsNextPacket(frame Frame) uint8 {
	return frame.Data[2]
}

func (a *transportAssembler) handleRTS(frame Frame) {
	key := transportKey{source: frame.Header.Source, destination: frame.Header.Destination}
	a.startSession(key, frame, stateAwaitingCTS)
}

func (a *transportAssembler) handleBAM(frame Frame) {
	key := transportKey{source: frame.Header.Source, destination: AddressGlobal}
	a.startSession(key, frame, stateReceivingBroadcastData)
}

// startSession handles TP.CM_RTS and TP.CM_BAM the same way: abort any session already
// live for the key, then open a fresh one.
func (a *transportAssembler) startSession(key transportKey, frame Frame, state transportState) *transportSession {
	if prior, ok := a.table.transport[key]; ok {
		delete(a.table.transport, key)
		a.warn(frame.Time, AbortExistingTransportSession, key.source, key.destination, prior.header.PGN,
			"new transport session announced while one is in progress, aborting the existing session")
	}

	totalSize := tpTotalBytes(frame)
	if totalSize == 0 || totalSize > TransportMaxSize {
		a.warn(frame.Time, AbortMessageTooLarge, key.source, key.destination, tpDataPGN(frame),
			fmt.Sprintf("announced message size %d out of range 1-%d", totalSize, TransportMaxSize))
		return nil
	}

	// Build the message header as if this were a single frame. The priority comes from
	// the announcement; TP.DT frames of the same session may carry a different one.
	header := Header{
		PGN:         tpDataPGN(frame),
		Priority:    frame.Header.Priority,
		Source:      key.source,
		Destination: key.destination,
	}
	session := &transportSession{
		key:          key,
		header:       header,
		iface:        frame.Interface,
		state:        state,
		totalSize:    totalSize,
		totalPackets: tpTotalPackets(frame),
		maxBurst:     tpMaxBurst(frame),
		nextSeq:      1,
		data:         make([]byte, 0, totalSize),
		start:        frame.Time,
		lastAdvance:  frame.Time,
	}
	a.table.transport[key] = session
	return session
}

func (a *transportAssembler) handleCTS(frame Frame) {
	// CTS travels receiver -> sender, so the session key is reversed.
	key := transportKey{source: frame.Header.Destination, destination: frame.Header.Source}
	session, ok := a.table.transport[key]
	if !ok {
		a.warn(frame.Time, AbortUnknown, key.source, key.destination, tpDataPGN(frame),
			"TP.CM_CTS without a session")
		return
	}
	if session.state != stateAwaitingCTS {
		delete(a.table.transport, key)
		a.warn(frame.Time, AbortCtsWhileDataInProgress, key.source, key.destination, session.header.PGN,
			"TP.CM_CTS in state "+session.state.String())
		return
	}

	window := ctsWindow(frame)
	if window == 0 {
		// CTS(0) is a hold: the receiver is not ready yet, the session stays open.
		session.lastAdvance = frame.Time
		return
	}
	next := ctsNextPacket(frame)
	if next != session.nextSeq {
		delete(a.table.transport, key)
		a.warn(frame.Time, AbortBadSequenceNumber, key.source, key.destination, session.header.PGN,
			fmt.Sprintf("TP.CM_CTS requests packet %d, reconstruction expects %d", next, session.nextSeq))
		return
	}

	// The receiver must not request more packets per burst than the sender announced
	// in the RTS. The sender will stop at its own limit, so reconstruction clamps the
	// window rather than waiting on packets that will never come.
	if session.maxBurst != 0xFF && window > session.maxBurst {
		a.warn(frame.Time, AbortReserved, key.source, key.destination, session.header.PGN,
			fmt.Sprintf("TP.CM_CTS window %d exceeds the announced burst limit %d", window, session.maxBurst))
		window = session.maxBurst
	}

	if window == ctsAllRemaining || uint16(next)+uint16(window)-1 >= uint16(session.totalPackets) {
		session.burstEnd = session.totalPackets
	} else {
		session.burstEnd = next + window - 1
	}
	session.state = stateReceivingData
	session.lastAdvance = frame.Time
}

// HandleData processes one TP.DT frame (PGN 0xEB00). The returned bool reports whether
// a message was completed.
func (a *transportAssembler) HandleData(frame Frame) (Message, bool) {
	if frame.Length < 2 {
		a.warn(frame.Time, AbortReserved, frame.Header.Source, frame.Header.Destination, frame.Header.PGN,
			fmt.Sprintf("TP.DT frame needs at least 2 bytes, got %d", frame.Length))
		return Message{}, false
	}
	key := transportKey{source: frame.Header.Source, destination: frame.Header.Destination}
	session, ok := a.table.transport[key]
	if !ok {
		a.warn(frame.Time, AbortUnexpectedDataTransfer, key.source, key.destination, 0,
			"TP.DT before TP.CM_RTS or TP.CM_BAM")
		return Message{}, false
	}
	if session.state != stateReceivingData && session.state != stateReceivingBroadcastData {
		delete(a.table.transport, key)
		a.warn(frame.Time, AbortUnexpectedDataTransfer, key.source, key.destination, session.header.PGN,
			"TP.DT in state "+session.state.String())
		return Message{}, false
	}

	seq := frame.Data[0]
	if seq != session.nextSeq {
		delete(a.table.transport, key)
		a.warn(frame.Time, AbortBadSequenceNumber, key.source, key.destination, session.header.PGN,
			fmt.Sprintf("TP.DT sequence %d, expected %d", seq, session.nextSeq))
		return Message{}, false
	}
	session.nextSeq++
	session.lastAdvance = frame.Time

	// TP.DT frames are commonly padded with 0xFF to a full 7 data bytes; the padding
	// must not leak into the reconstructed message.
	remaining := session.totalSize - len(session.data)
	chunk := frame.Payload()[1:]
	if len(chunk) > remaining {
		chunk = chunk[:remaining]
	}
	session.data = append(session.data, chunk...)

	if len(session.data) == session.totalSize {
		if session.state == stateReceivingBroadcastData {
			// BAM sessions have no EndOfMsgACK, the final TP.DT completes the message.
			delete(a.table.transport, key)
			return a.finish(session, frame.Time), true
		}
		session.state = stateAwaitingEndAck
		return Message{}, false
	}
	if session.state == stateReceivingData && seq == session.burstEnd {
		session.state = stateAwaitingCTS
	}
	return Message{}, false
}

func (a *transportAssembler) handleEndOfMsgAck(frame Frame) (Message, bool) {
	// EndOfMsgACK travels receiver -> sender like CTS.
	key := transportKey{source: frame.Header.Destination, destination: frame.Header.Source}
	session, ok := a.table.transport[key]
	if !ok {
		a.warn(frame.Time, AbortUnknown, key.source, key.destination, tpDataPGN(frame),
			"TP.CM_EndOfMsgACK without a session")
		return Message{}, false
	}
	if session.state != stateAwaitingEndAck {
		delete(a.table.transport, key)
		a.warn(frame.Time, AbortUnknown, key.source, key.destination, session.header.PGN,
			"TP.CM_EndOfMsgACK in state "+session.state.String())
		return Message{}, false
	}
	delete(a.table.transport, key)
	return a.finish(session, frame.Time), true
}

func (a *transportAssembler) handleConnAbort(frame Frame) {
	// Either side may abort, try both directions. With no session in either direction
	// the warning keeps the frame's own addressing.
	key := transportKey{source: frame.Header.Source, destination: frame.Header.Destination}
	if _, ok := a.table.transport[key]; !ok {
		if _, ok := a.table.transport[key.reversed()]; ok {
			key = key.reversed()
		}
	}
	delete(a.table.transport, key)

	reason := AbortReasonFromCode(frame.Data[1])
	a.warn(frame.Time, reason, key.source, key.destination, tpDataPGN(frame),
		"TP.Conn_Abort")
}

func (a *transportAssembler) handleReservedControl(frame Frame) {
	key := transportKey{source: frame.Header.Source, destination: frame.Header.Destination}
	if session, ok := a.table.transport[key]; ok {
		delete(a.table.transport, key)
		a.warn(frame.Time, AbortReserved, key.source, key.destination, session.header.PGN,
			fmt.Sprintf("reserved TP.CM control byte %#02X, aborting session", frame.Data[0]))
		return
	}
	a.warn(frame.Time, AbortReserved, key.source, key.destination, 0,
		fmt.Sprintf("reserved TP.CM control byte %#02X", frame.Data[0]))
}

func (a *transportAssembler) finish(session *transportSession, end time.Time) Message {
	return Message{
		Time:      session.start,
		EndTime:   end,
		Interface: session.iface,
		Header:    session.header,
		Data:      session.data,
	}
}

func (a *transportAssembler) warn(t time.Time, reason AbortReason, src, dst uint8, pgn uint32, msg string) {
	a.diag.emit(Diagnostic{
		Time:        t,
		Reason:      reason,
		Source:      src,
		Destination: dst,
		PGN:         pgn,
		Message:     msg,
	})
}
