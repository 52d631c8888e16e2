package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCANID(t *testing.T) {
	var testCases = []struct {
		name   string
		when   uint32
		expect Header
	}{
		{
			name:   "ok, PDU1 destination specific",
			when:   0x0CAC1C13,
			expect: Header{PGN: 0xAC00, Priority: 3, Source: 0x13, Destination: 0x1C},
		},
		{
			name:   "ok, PDU2 is always broadcast",
			when:   0x18FF3F13,
			expect: Header{PGN: 0xFF3F, Priority: 6, Source: 0x13, Destination: AddressGlobal},
		},
		{
			name:   "ok, PDU1 proprietary A",
			when:   0x18EF1CF5,
			expect: Header{PGN: 0xEF00, Priority: 6, Source: 0xF5, Destination: 0x1C},
		},
		{
			name:   "ok, data page bit is part of the PGN",
			when:   0x09F8051C,
			expect: Header{PGN: 0x1F805, Priority: 2, Source: 0x1C, Destination: AddressGlobal},
		},
		{
			name:   "ok, address claim broadcast over PDU1",
			when:   0x18EEFF1C,
			expect: Header{PGN: 0xEE00, Priority: 6, Source: 0x1C, Destination: AddressGlobal},
		},
		{
			name:   "ok, transport control",
			when:   0x18EC2A1C,
			expect: Header{PGN: PGNTransportControl, Priority: 6, Source: 0x1C, Destination: 0x2A},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, ParseCANID(tc.when))
		})
	}
}

func TestHeaderCanID(t *testing.T) {
	var testCases = []struct {
		name   string
		given  Header
		expect uint32
	}{
		{
			name:   "ok, PDU1 encodes the destination",
			given:  Header{PGN: 0xAC00, Priority: 3, Source: 0x13, Destination: 0x1C},
			expect: 0x0CAC1C13,
		},
		{
			name:   "ok, PDU2 ignores the destination",
			given:  Header{PGN: 0xFF3F, Priority: 6, Source: 0x13, Destination: AddressGlobal},
			expect: 0x18FF3F13,
		},
		{
			name:   "ok, data page bit",
			given:  Header{PGN: 0x1F805, Priority: 2, Source: 0x1C, Destination: AddressGlobal},
			expect: 0x09F8051C,
		},
		{
			name:   "ok, reconstructed transport message identifier",
			given:  Header{PGN: 0xEF00, Priority: 6, Source: 0x1C, Destination: 0x2A},
			expect: 0x18EF2A1C,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.given.CanID())
		})
	}
}

// Decomposing an identifier and recombining it must be lossless for any 29-bit value
// that addresses the global destination or a PDU1 peer.
func TestCanIDRoundTrip(t *testing.T) {
	for _, canID := range []uint32{0x0CAC1C13, 0x18FF3F13, 0x18EF1CF5, 0x09F8051C, 0x18EEFF1C, 0x19EF1C2A, 0x18FECA1C} {
		assert.Equal(t, canID, ParseCANID(canID).CanID())
	}
}
