package can

import (
	"encoding/hex"
	"strings"
)

// MessageRecord is the structured wire form of a reconstructed message, used by the
// JSON and CBOR front ends. Timestamps are fractional unix seconds to stay compatible
// with candump captures.
type MessageRecord struct {
	Timestamp    float64 `json:"timestamp" cbor:"timestamp"`
	EndTimestamp float64 `json:"end_timestamp" cbor:"end_timestamp"`
	Interface    string  `json:"interface" cbor:"interface"`
	CanID        uint32  `json:"canid" cbor:"canid"`
	Priority     uint8   `json:"priority" cbor:"priority"`
	Source       uint8   `json:"src" cbor:"src"`
	Destination  uint8   `json:"dst" cbor:"dst"`
	PGN          uint32  `json:"pgn" cbor:"pgn"`
	DLC          int     `json:"dlc" cbor:"dlc"`
	Data         string  `json:"data" cbor:"data"`
}

// Record converts the message into its wire form.
func (m Message) Record() MessageRecord {
	return MessageRecord{
		Timestamp:    TimestampSeconds(m.Time),
		EndTimestamp: TimestampSeconds(m.EndTime),
		Interface:    m.Interface,
		CanID:        m.CanID(),
		Priority:     m.Header.Priority,
		Source:       m.Header.Source,
		Destination:  m.Header.Destination,
		PGN:          m.Header.PGN,
		DLC:          len(m.Data),
		Data:         strings.ToUpper(hex.EncodeToString(m.Data)),
	}
}
