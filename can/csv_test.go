package can

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSVWriter_frames(t *testing.T) {
	buf := bytes.Buffer{}
	writer := NewCSVWriter(&buf)

	frame := Frame{
		Time:      time.Unix(1661789611, 150752000).UTC(),
		Interface: "can0",
		Header:    Header{PGN: 0xAC00, Priority: 3, Source: 0x13, Destination: 0x1C},
		Length:    3,
		Data:      [8]byte{0x01, 0x02, 0x03},
	}
	assert.NoError(t, writer.WriteFrame(frame))
	assert.NoError(t, writer.Flush())

	expect := "timestamp,interface,canid,dlc,priority,src,dst,pgn,data\n" +
		"1661789611.150752,can0,0xCAC1C13,3,3,0x13,0x1C,0xAC00,010203\n"
	assert.Equal(t, expect, buf.String())
}

func TestCSVWriter_messages(t *testing.T) {
	buf := bytes.Buffer{}
	writer := NewCSVWriter(&buf)

	msg := Message{
		Time:      time.Unix(1661789611, 0).UTC(),
		EndTime:   time.Unix(1661789612, 500000000).UTC(),
		Interface: "can0",
		Header:    Header{PGN: 0xEF00, Priority: 6, Source: 0x1C, Destination: 0x2A},
		Data:      []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	assert.NoError(t, writer.WriteMessage(msg))
	assert.NoError(t, writer.Flush())

	expect := "timestamp,end_timestamp,interface,canid,dlc,priority,src,dst,pgn,data\n" +
		"1661789611.000000,1661789612.500000,can0,0x18EF2A1C,4,6,0x1C,0x2A,0xEF00,DEADBEEF\n"
	assert.Equal(t, expect, buf.String())
}

func TestCSVReader(t *testing.T) {
	var testCases = []struct {
		name        string
		when        string
		expect      Frame
		expectError string
	}{
		{
			name: "ok, header fields are re-derived from the identifier",
			when: "timestamp,interface,canid,dlc,priority,src,dst,pgn,data\n" +
				"1661789611.150752,can0,0xCAC1C13,3,3,0x13,0x1C,0xAC00,010203\n",
			expect: Frame{
				Time:      time.Unix(1661789611, 150752000).UTC(),
				Interface: "can0",
				Header:    Header{PGN: 0xAC00, Priority: 3, Source: 0x13, Destination: 0x1C},
				Length:    3,
				Data:      [8]byte{0x01, 0x02, 0x03},
			},
		},
		{
			name: "ok, extra columns and bare hex identifiers are accepted",
			when: "canid,timestamp,comment,interface,data\n" +
				"18FF3F13,1661789611.150752,hello,can1,C0FFEE\n",
			expect: Frame{
				Time:      time.Unix(1661789611, 150752000).UTC(),
				Interface: "can1",
				Header:    Header{PGN: 0xFF3F, Priority: 6, Source: 0x13, Destination: AddressGlobal},
				Length:    3,
				Data:      [8]byte{0xC0, 0xFF, 0xEE},
			},
		},
		{
			name:        "nok, missing required column",
			when:        "timestamp,interface,data\n1661789611.150752,can0,010203\n",
			expectError: `missing the "canid" column`,
		},
		{
			name: "nok, too much data for one frame",
			when: "timestamp,interface,canid,data\n" +
				"1661789611.150752,can0,0xCAC1C13,010203040506070809\n",
			expectError: "at most 8 allowed",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader := NewCSVReader(strings.NewReader(tc.when))
			frame, err := reader.Read()
			if tc.expectError != "" {
				assert.ErrorContains(t, err, tc.expectError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, frame)

			_, err = reader.Read()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

// can2csv output must be readable back as pre-decoded input.
func TestCSVRoundTrip(t *testing.T) {
	frame := Frame{
		Time:      time.Unix(1661789611, 150752000).UTC(),
		Interface: "can0",
		Header:    Header{PGN: PGNTransportData, Priority: 7, Source: 0x1C, Destination: 0x2A},
		Length:    8,
		Data:      [8]byte{0x01, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00},
	}

	buf := bytes.Buffer{}
	writer := NewCSVWriter(&buf)
	assert.NoError(t, writer.WriteFrame(frame))
	assert.NoError(t, writer.Flush())

	parsed, err := NewCSVReader(&buf).Read()
	assert.NoError(t, err)
	assert.Equal(t, frame, parsed)
}
