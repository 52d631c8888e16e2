package can

import "time"

// testFrame builds a frame from its raw identifier and data bytes the way they appear
// in a candump capture.
func testFrame(at time.Time, canID uint32, data ...byte) Frame {
	frame := Frame{
		Time:      at,
		Interface: "can0",
		Header:    ParseCANID(canID),
		Length:    uint8(len(data)),
	}
	copy(frame.Data[:], data)
	return frame
}

// diagRecorder captures engine diagnostics for assertions.
type diagRecorder struct {
	diags []Diagnostic
}

func (r *diagRecorder) sink() DiagnosticFunc {
	return func(d Diagnostic) {
		r.diags = append(r.diags, d)
	}
}

func (r *diagRecorder) reasons() []AbortReason {
	reasons := make([]AbortReason, 0, len(r.diags))
	for _, d := range r.diags {
		reasons = append(reasons, d.Reason)
	}
	return reasons
}
