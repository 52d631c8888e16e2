package can

// FrameClass is the transport-layer role of a single frame.
type FrameClass int

const (
	// ClassPlain frames are complete messages on their own and pass through unchanged.
	ClassPlain FrameClass = iota
	// ClassTransportControl is a TP.CM connection management frame (PGN 0xEC00).
	ClassTransportControl
	// ClassTransportData is a TP.DT data transfer frame (PGN 0xEB00).
	ClassTransportData
	// ClassFastPacket frames belong to a NMEA 2000 Fast Packet message.
	ClassFastPacket
)

func (c FrameClass) String() string {
	switch c {
	case ClassTransportControl:
		return "TP.CM"
	case ClassTransportData:
		return "TP.DT"
	case ClassFastPacket:
		return "FastPacket"
	}
	return "Plain"
}

// Classifier tags each frame with its protocol role. Whether a PGN is Fast-Packet
// encapsulated cannot be derived from the identifier alone, so the eligible set is
// external configuration.
type Classifier struct {
	fastPacketPGNs map[uint32]struct{}
}

func NewClassifier(fastPacketPGNs []uint32) *Classifier {
	pgns := make(map[uint32]struct{}, len(fastPacketPGNs))
	for _, pgn := range fastPacketPGNs {
		pgns[pgn] = struct{}{}
	}
	return &Classifier{fastPacketPGNs: pgns}
}

func (c *Classifier) Classify(f Frame) FrameClass {
	switch f.Header.PGN {
	case PGNTransportControl:
		return ClassTransportControl
	case PGNTransportData:
		return ClassTransportData
	}
	if _, ok := c.fastPacketPGNs[f.Header.PGN]; ok {
		return ClassFastPacket
	}
	return ClassPlain
}
