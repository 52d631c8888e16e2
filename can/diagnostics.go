package can

import "time"

// AbortReason is the closed set of reasons a reconstruction session can end without
// producing a message, mirroring the ISO 11783-3 / J1939-21 TP.Conn_Abort code space.
type AbortReason uint8

const (
	AbortReserved                 AbortReason = 0
	AbortExistingTransportSession AbortReason = 1
	AbortResourcesBusy            AbortReason = 2
	AbortTimeout                  AbortReason = 3
	AbortCtsWhileDataInProgress   AbortReason = 4
	AbortMaxRetryLimit            AbortReason = 5
	AbortUnexpectedDataTransfer   AbortReason = 6
	AbortBadSequenceNumber        AbortReason = 7
	AbortDuplicateSequenceNumber  AbortReason = 8
	AbortMessageTooLarge          AbortReason = 9
	// AbortSessionComplete marks the normal removal of a completed session. It is never
	// carried by a TP.Conn_Abort frame.
	AbortSessionComplete AbortReason = 10
	AbortUnknown         AbortReason = 250
)

// AbortReasonFromCode decodes the reason byte of a TP.Conn_Abort frame. Codes 250-255
// are supposed to be defined by ISO 11783-7, everything else outside 1-9 is reserved.
func AbortReasonFromCode(code uint8) AbortReason {
	switch {
	case code >= 1 && code <= 9:
		return AbortReason(code)
	case code >= 250:
		return AbortUnknown
	default:
		return AbortReserved
	}
}

func (r AbortReason) String() string {
	switch r {
	case AbortReserved:
		return "Reserved"
	case AbortExistingTransportSession:
		return "ExistingTransportSession"
	case AbortResourcesBusy:
		return "ResourcesBusy"
	case AbortTimeout:
		return "Timeout"
	case AbortCtsWhileDataInProgress:
		return "CtsWhileDataInProgress"
	case AbortMaxRetryLimit:
		return "MaxRetryLimit"
	case AbortUnexpectedDataTransfer:
		return "UnexpectedDataTransfer"
	case AbortBadSequenceNumber:
		return "BadSequenceNumber"
	case AbortDuplicateSequenceNumber:
		return "DuplicateSequenceNumber"
	case AbortMessageTooLarge:
		return "MessageTooLarge"
	case AbortSessionComplete:
		return "SessionComplete"
	case AbortUnknown:
		return "Unknown"
	}
	return "Reserved"
}

// Diagnostic is one structured warning about an abort, timeout, framing error or
// protocol violation. Source/Destination/PGN address the affected session or frame.
type Diagnostic struct {
	Time        time.Time
	Reason      AbortReason
	Source      uint8
	Destination uint8
	PGN         uint32
	Message     string
}

// DiagnosticFunc receives engine diagnostics. The engine has no ambient logger, the
// sink is always injected so that it stays testable without process-wide side effects.
type DiagnosticFunc func(Diagnostic)

func (fn DiagnosticFunc) emit(d Diagnostic) {
	if fn != nil {
		fn(d)
	}
}
