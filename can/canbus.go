package can

const (
	// AddressGlobal is the broadcast destination address (everyone on the bus).
	AddressGlobal uint8 = 0xFF
	// AddressNull is the "cannot claim address" source address.
	AddressNull uint8 = 0xFE
)

const (
	// PGNTransportControl is the ISO 11783-3 / J1939-21 TP.CM connection management PGN.
	PGNTransportControl uint32 = 0xEC00
	// PGNTransportData is the ISO 11783-3 / J1939-21 TP.DT data transfer PGN.
	PGNTransportData uint32 = 0xEB00
)

// FastPacketMaxSize is the maximum assembled length of a NMEA 2000 Fast Packet message.
//
// The first frame carries 6 payload bytes, following frames 7. The frame counter is
// 5 bits (0-31), so the maximum is 6 + 31*7 = 223 bytes.
const FastPacketMaxSize = 223

// TransportMaxSize is the maximum assembled length of an ISO 11783-3 Transport Protocol
// message: 255 packets of 7 bytes each.
const TransportMaxSize = 1785

// Header is the decomposed 29-bit CAN identifier of a J1939/NMEA 2000 frame.
type Header struct {
	PGN         uint32 `json:"pgn" cbor:"pgn"`
	Priority    uint8  `json:"priority" cbor:"priority"`
	Source      uint8  `json:"src" cbor:"src"`
	Destination uint8  `json:"dst" cbor:"dst"`
}

// CanID recombines the header into a 29-bit CAN identifier per the PDU1/PDU2 rule.
func (h Header) CanID() uint32 {
	canID := uint32(h.Source) // bits 0-7

	pf := uint8(h.PGN >> 8)
	if pf < 240 { // PDU1, destination specific
		canID |= uint32(h.Destination) << 8 // bits 8-15
	}
	canID |= h.PGN << 8                        // bits 8-24
	canID = canID | uint32(h.Priority&0x7)<<26 // bits 26,27,28
	return canID
}

// ParseCANID decomposes a 29-bit CAN identifier (29 bits of 32) into header fields.
func ParseCANID(canID uint32) Header {
	result := Header{
		Priority: uint8((canID >> 26) & 0x7), // bits 26,27,28
		Source:   uint8(canID),               // bits 0-7
	}
	ps := uint8(canID >> 8)         // bits 8-15
	pduFormat := uint8(canID >> 16) // bits 16-23
	rAndDP := uint8(canID>>24) & 3  // bits 24,25
	pgn := (uint32(rAndDP) << 16) + uint32(pduFormat)<<8
	if pduFormat < 240 { // PDU1
		result.Destination = ps
		result.PGN = pgn
	} else { // PDU2 is broadcast to all
		result.Destination = AddressGlobal
		result.PGN = pgn + uint32(ps)
	}
	return result
}
