package can

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CandumpFormat is the text format of a candump capture.
type CandumpFormat int

const (
	// CandumpAuto locks onto the first format that successfully parses a line. Assumes
	// all lines of the input follow the same format.
	CandumpAuto CandumpFormat = iota
	// CandumpFile is the `candump -L`/`-l` log file format: `(ts) iface ID#HEXDATA`
	CandumpFile
	// CandumpCLI is the `candump -ta` interactive format: `(ts) iface ID [dlc] B0 B1 ..`
	CandumpCLI
)

// CandumpReader reads Frames from candump text, one frame per line.
type CandumpReader struct {
	format  CandumpFormat
	scanner *bufio.Scanner
}

// NewCandumpReader creates a reader that auto-detects the candump format.
func NewCandumpReader(r io.Reader) *CandumpReader {
	return NewCandumpReaderWithFormat(r, CandumpAuto)
}

func NewCandumpReaderWithFormat(r io.Reader, format CandumpFormat) *CandumpReader {
	return &CandumpReader{
		format:  format,
		scanner: bufio.NewScanner(r),
	}
}

// Read returns the next frame. Parse failures are returned per line so the caller can
// warn and continue; io.EOF marks the end of the input.
func (r *CandumpReader) Read() (Frame, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		return r.parseLine(line)
	}
	if err := r.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

func (r *CandumpReader) parseLine(line string) (Frame, error) {
	switch r.format {
	case CandumpFile:
		return parseCandumpFileLine(line)
	case CandumpCLI:
		return parseCandumpCLILine(line)
	default:
		if frame, err := parseCandumpFileLine(line); err == nil {
			r.format = CandumpFile
			return frame, nil
		}
		if frame, err := parseCandumpCLILine(line); err == nil {
			r.format = CandumpCLI
			return frame, nil
		}
		return Frame{}, fmt.Errorf("failed to parse %q with all known candump formats", line)
	}
}

// parseCandumpFileLine parses the `candump -L` format:
//
//	(1739136482.503244) can0 123#0AB03F
func parseCandumpFileLine(line string) (Frame, error) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return Frame{}, fmt.Errorf("too few fields in line %q", line)
	}
	ts, err := ParseTimestamp(stripOuter(parts[0], '(', ')'))
	if err != nil {
		return Frame{}, err
	}
	idRaw, dataRaw, ok := strings.Cut(parts[2], "#")
	if !ok {
		return Frame{}, fmt.Errorf("missing '#' separator in %q", parts[2])
	}
	canID, err := strconv.ParseUint(idRaw, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to parse CAN id: %w", err)
	}
	if len(dataRaw) > 16 || len(dataRaw)%2 != 0 {
		return Frame{}, fmt.Errorf("invalid data length in %q", dataRaw)
	}
	raw, err := hex.DecodeString(dataRaw)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame data: %w", err)
	}

	frame := Frame{
		Time:      ts,
		Interface: parts[1],
		Header:    ParseCANID(uint32(canID)),
		Length:    uint8(len(raw)),
	}
	copy(frame.Data[:], raw)
	return frame, nil
}

// parseCandumpCLILine parses the `candump -ta` format:
//
//	(1739136517.221471)  can0  123   [3]  FF FF FF
func parseCandumpCLILine(line string) (Frame, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return Frame{}, fmt.Errorf("too few fields in line %q", line)
	}
	ts, err := ParseTimestamp(stripOuter(parts[0], '(', ')'))
	if err != nil {
		return Frame{}, err
	}
	canID, err := strconv.ParseUint(parts[2], 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to parse CAN id: %w", err)
	}
	dlc, err := strconv.Atoi(stripOuter(parts[3], '[', ']'))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to parse dlc: %w", err)
	}
	if dlc > 8 {
		return Frame{}, fmt.Errorf("dlc %d exceeds maximum of 8 bytes", dlc)
	}
	if len(parts) < 4+dlc {
		return Frame{}, fmt.Errorf("dlc %d but only %d data bytes in line %q", dlc, len(parts)-4, line)
	}

	frame := Frame{
		Time:      ts,
		Interface: parts[1],
		Header:    ParseCANID(uint32(canID)),
		Length:    uint8(dlc),
	}
	for i := 0; i < dlc; i++ {
		b, err := strconv.ParseUint(parts[4+i], 16, 8)
		if err != nil {
			return Frame{}, fmt.Errorf("failed to parse data byte %d: %w", i, err)
		}
		frame.Data[i] = uint8(b)
	}
	return frame, nil
}

func stripOuter(field string, first, last byte) string {
	if len(field) > 0 && field[0] == first {
		field = field[1:]
	}
	if len(field) > 0 && field[len(field)-1] == last {
		field = field[:len(field)-1]
	}
	return field
}

// CandumpWriter writes frames and reconstructed messages in the `candump -L` line form.
// Reconstructed message payloads may exceed 8 bytes, which real candump never produces;
// the identifier is recombined per the PDU1/PDU2 rule.
type CandumpWriter struct {
	w io.Writer
}

func NewCandumpWriter(w io.Writer) *CandumpWriter {
	return &CandumpWriter{w: w}
}

func (c *CandumpWriter) WriteFrame(f Frame) error {
	return c.writeLine(f.Time, f.Interface, f.Header.CanID(), f.Payload())
}

// WriteMessage writes the message with its completing frame's timestamp.
func (c *CandumpWriter) WriteMessage(m Message) error {
	return c.writeLine(m.EndTime, m.Interface, m.CanID(), m.Data)
}

func (c *CandumpWriter) writeLine(ts time.Time, iface string, canID uint32, data []byte) error {
	_, err := fmt.Fprintf(c.w, "(%s) %s %08X#%s\n",
		FormatTimestamp(ts), iface, canID, strings.ToUpper(hex.EncodeToString(data)))
	return err
}
