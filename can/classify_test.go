package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	classifier := NewClassifier([]uint32{0x1F805, 0x1FD13})

	var testCases = []struct {
		name   string
		when   Header
		expect FrameClass
	}{
		{
			name:   "TP.CM is transport control regardless of destination",
			when:   Header{PGN: 0xEC00, Destination: 0x2A},
			expect: ClassTransportControl,
		},
		{
			name:   "TP.DT is transport data",
			when:   Header{PGN: 0xEB00, Destination: AddressGlobal},
			expect: ClassTransportData,
		},
		{
			name:   "configured PGN is fast packet",
			when:   Header{PGN: 0x1F805},
			expect: ClassFastPacket,
		},
		{
			name:   "anything else passes through",
			when:   Header{PGN: 0xF004},
			expect: ClassPlain,
		},
		{
			name:   "fast packet eligibility is exact, not a range",
			when:   Header{PGN: 0x1F806},
			expect: ClassPlain,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, classifier.Classify(Frame{Header: tc.when}))
		})
	}
}

func TestFrameClassString(t *testing.T) {
	assert.Equal(t, "Plain", ClassPlain.String())
	assert.Equal(t, "TP.CM", ClassTransportControl.String())
	assert.Equal(t, "TP.DT", ClassTransportData.String())
	assert.Equal(t, "FastPacket", ClassFastPacket.String())
}
