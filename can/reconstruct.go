package can

import "time"

// Timeouts are the deadlines the sweep enforces between frames of one session. They are
// compared against frame timestamps, never the wall clock, so replaying the same log
// twice produces identical output.
type Timeouts struct {
	// FastPacket is the largest timestamp gap allowed between frames of one Fast Packet
	// message. Fast Packet has no handshake, so this is the only failure detection.
	FastPacket time.Duration

	// T1-T4 are the ISO 11783-3 / J1939-21 transport protocol timeouts.
	T1 time.Duration // RTS -> CTS, and BAM inter-packet gap
	T2 time.Duration // CTS -> TP.DT, and between TP.DT frames of a burst
	T3 time.Duration // between data bursts
	T4 time.Duration // last TP.DT -> EndOfMsgACK
}

// Options configure a Reconstructor.
type Options struct {
	// FastPacketPGNs is the set of PGNs that are Fast Packet encapsulated. Everything
	// else outside the transport protocol PGNs passes through unchanged.
	FastPacketPGNs []uint32
	Timeouts       Timeouts
}

// DefaultOptions uses the standard J1939-21 timeouts and an empty Fast Packet set.
func DefaultOptions() Options {
	return Options{
		Timeouts: Timeouts{
			FastPacket: 2 * time.Second,
			T1:         750 * time.Millisecond,
			T2:         1250 * time.Millisecond,
			T3:         1250 * time.Millisecond,
			T4:         1050 * time.Millisecond,
		},
	}
}

// Reconstructor reassembles multi-frame transport layer sessions from a stream of raw
// CAN frames. It is a synchronous single-pass state transformer: frames must arrive in
// timestamp order, each frame mutates at most the sessions it addresses, and a timeout
// sweep runs after every frame. Not safe for concurrent use.
type Reconstructor struct {
	classifier *Classifier
	fastPacket *fastPacketAssembler
	transport  *transportAssembler
	table      *sessionTable
	timeouts   Timeouts
	diag       DiagnosticFunc
}

// NewReconstructor creates an engine with the given options. diag may be nil to drop
// all diagnostics.
func NewReconstructor(opts Options, diag DiagnosticFunc) *Reconstructor {
	table := newSessionTable()
	return &Reconstructor{
		classifier: NewClassifier(opts.FastPacketPGNs),
		fastPacket: &fastPacketAssembler{table: table, diag: diag},
		transport:  &transportAssembler{table: table, diag: diag},
		table:      table,
		timeouts:   opts.Timeouts,
		diag:       diag,
	}
}

// Handle ingests one frame and returns the messages it completed, in completion order.
// Plain frames pass through as single-frame messages. Faults never stop the stream;
// they are reported through the diagnostics sink.
func (r *Reconstructor) Handle(frame Frame) []Message {
	var out []Message
	switch r.classifier.Classify(frame) {
	case ClassTransportControl:
		if msg, done := r.transport.HandleControl(frame); done {
			out = append(out, msg)
		}
	case ClassTransportData:
		if msg, done := r.transport.HandleData(frame); done {
			out = append(out, msg)
		}
	case ClassFastPacket:
		if msg, done := r.fastPacket.Handle(frame); done {
			out = append(out, msg)
		}
	default:
		out = append(out, messageFromFrame(frame))
	}
	r.table.sweep(frame.Time, r.timeouts, r.diag)
	return out
}

// SessionCount reports the number of live sessions in the table.
func (r *Reconstructor) SessionCount() int {
	return r.table.len()
}
