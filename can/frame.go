package can

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frame is a single raw 8-byte CAN frame with its decomposed 29-bit identifier.
type Frame struct {
	// Time is the bus timestamp of the frame as recorded by the capture tool.
	Time time.Time

	Interface string
	Header    Header
	Length    uint8 // 0-8
	Data      [8]byte
}

// Payload returns the frame data truncated to its DLC.
func (f Frame) Payload() []byte {
	return f.Data[:f.Length]
}

// Message is a complete application message assembled from one or more frames.
//
// Single frames pass through unchanged, fast packet messages can be up to 223 bytes
// and transport protocol messages up to 1785 bytes.
type Message struct {
	// Time is the timestamp of the first frame of the exchange.
	Time time.Time
	// EndTime is the timestamp of the frame that completed the message. Equal to Time
	// for single-frame messages.
	EndTime time.Time

	Interface string
	Header    Header
	Data      []byte
}

// CanID recombines the 29-bit identifier for this message as if it were a single frame.
func (m Message) CanID() uint32 {
	return m.Header.CanID()
}

func messageFromFrame(f Frame) Message {
	data := make([]byte, f.Length)
	copy(data, f.Data[:f.Length])
	return Message{
		Time:      f.Time,
		EndTime:   f.Time,
		Interface: f.Interface,
		Header:    f.Header,
		Data:      data,
	}
}

// ParseTimestamp parses a fractional-second unix timestamp, e.g. "1661789611.150752".
//
// The seconds and the fraction are parsed separately so that long captures do not lose
// sub-microsecond precision to float64 rounding.
func ParseTimestamp(raw string) (time.Time, error) {
	secRaw, fracRaw, hasFrac := strings.Cut(raw, ".")
	sec, err := strconv.ParseInt(secRaw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp seconds: %w", err)
	}
	var nsec int64
	if hasFrac && fracRaw != "" {
		if len(fracRaw) > 9 {
			fracRaw = fracRaw[:9]
		}
		frac, err := strconv.ParseInt(fracRaw, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse timestamp fraction: %w", err)
		}
		for i := len(fracRaw); i < 9; i++ {
			frac *= 10
		}
		nsec = frac
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// FormatTimestamp formats a timestamp the way candump does, with microsecond precision.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// TimestampSeconds converts a timestamp to fractional unix seconds for float-compatible
// outputs (JSON, CBOR).
func TimestampSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
