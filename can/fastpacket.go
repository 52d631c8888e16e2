package can

import (
	"fmt"
	"time"
)

// Fast Packet frame layout:
//
// First frame: data[0] carries the 3-bit sequence counter (top bits) and 5-bit frame
// counter (always 0), data[1] the declared total length (1-223), data[2:] up to 6
// payload bytes. Following frames: data[0] as above with frame counter 1-31, data[1:]
// up to 7 payload bytes. Frames of one message arrive in order with no handshake and
// no retransmission.

// fastPacketSession accumulates one in-flight Fast Packet message.
type fastPacketSession struct {
	header Header
	iface  string

	// length is the total message length declared by the first frame.
	length uint8
	// nextFrame is the expected frame counter of the next continuation.
	nextFrame uint8
	data      []byte

	start time.Time
	last  time.Time
}

func fastPacketSequence(frame Frame) uint8 {
	return frame.Data[0] >> 5 // top 3 bits
}

func fastPacketFrameCounter(frame Frame) uint8 {
	return frame.Data[0] & 0b0001_1111 // low 5 bits
}

// fastPacketAssembler reassembles Fast Packet messages. Unlike the handshaked transport
// protocol there is no abort primitive: broken sessions are discarded and incomplete
// ones dropped by the timeout sweep.
type fastPacketAssembler struct {
	table *sessionTable
	diag  DiagnosticFunc
}

// Handle processes one Fast Packet frame. The returned bool reports whether a message
// was completed.
func (a *fastPacketAssembler) Handle(frame Frame) (Message, bool) {
	if frame.Length < 2 {
		a.warn(frame, AbortReserved, fmt.Sprintf("fast packet frame needs at least 2 bytes, got %d", frame.Length))
		return Message{}, false
	}
	key := fastPacketKey{
		source:   frame.Header.Source,
		pgn:      frame.Header.PGN,
		sequence: fastPacketSequence(frame),
	}
	counter := fastPacketFrameCounter(frame)
	session, live := a.table.fastPacket[key]

	if counter == 0 {
		if live {
			// A restart on the same 3-bit sequence counter means we lost the tail of
			// the previous message.
			delete(a.table.fastPacket, key)
			a.warn(frame, AbortBadSequenceNumber, "fast packet first frame while session in progress, discarding stale session")
			return Message{}, false
		}
		return a.handleFirstFrame(key, frame)
	}

	if !live {
		a.warn(frame, AbortBadSequenceNumber, fmt.Sprintf("fast packet continuation %#02X without a first frame", counter))
		return Message{}, false
	}
	if counter != session.nextFrame {
		delete(a.table.fastPacket, key)
		a.warn(frame, AbortBadSequenceNumber, fmt.Sprintf("fast packet frame out of order: counter %#02X, expected %#02X; discarding session", counter, session.nextFrame))
		return Message{}, false
	}

	session.nextFrame++
	session.last = frame.Time
	remaining := int(session.length) - len(session.data)
	chunk := frame.Payload()[1:]
	if len(chunk) > remaining {
		chunk = chunk[:remaining]
	}
	session.data = append(session.data, chunk...)

	if len(session.data) == int(session.length) {
		delete(a.table.fastPacket, key)
		return a.finish(session, frame), true
	}
	return Message{}, false
}

func (a *fastPacketAssembler) handleFirstFrame(key fastPacketKey, frame Frame) (Message, bool) {
	length := frame.Data[1]
	if length == 0 || length > FastPacketMaxSize {
		a.warn(frame, AbortReserved, fmt.Sprintf("fast packet declared length %d out of range 1-%d", length, FastPacketMaxSize))
		return Message{}, false
	}

	session := &fastPacketSession{
		header:    frame.Header,
		iface:     frame.Interface,
		length:    length,
		nextFrame: 1,
		data:      make([]byte, 0, length),
		start:     frame.Time,
		last:      frame.Time,
	}
	chunk := frame.Payload()[2:]
	if len(chunk) > int(length) {
		chunk = chunk[:length]
	}
	session.data = append(session.data, chunk...)

	// A message that fits in the first frame completes without waiting for continuations.
	if len(session.data) == int(length) {
		return a.finish(session, frame), true
	}
	a.table.fastPacket[key] = session
	return Message{}, false
}

func (a *fastPacketAssembler) finish(session *fastPacketSession, frame Frame) Message {
	return Message{
		Time:      session.start,
		EndTime:   frame.Time,
		Interface: session.iface,
		Header:    session.header,
		Data:      session.data,
	}
}

func (a *fastPacketAssembler) warn(frame Frame, reason AbortReason, msg string) {
	a.diag.emit(Diagnostic{
		Time:        frame.Time,
		Reason:      reason,
		Source:      frame.Header.Source,
		Destination: frame.Header.Destination,
		PGN:         frame.Header.PGN,
		Message:     msg,
	})
}
