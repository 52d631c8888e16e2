package can

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column layouts of the tabular forms. Frames use the same shape can2csv emits, so its
// output can be fed back in as pre-decoded input.
var (
	frameCSVHeader   = []string{"timestamp", "interface", "canid", "dlc", "priority", "src", "dst", "pgn", "data"}
	messageCSVHeader = []string{"timestamp", "end_timestamp", "interface", "canid", "dlc", "priority", "src", "dst", "pgn", "data"}
)

// CSVWriter writes frames or reconstructed messages as CSV rows, emitting the header
// row before the first record.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) WriteFrame(f Frame) error {
	if !c.wroteHeader {
		if err := c.w.Write(frameCSVHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	return c.w.Write([]string{
		FormatTimestamp(f.Time),
		f.Interface,
		fmt.Sprintf("0x%X", f.Header.CanID()),
		strconv.Itoa(int(f.Length)),
		strconv.Itoa(int(f.Header.Priority)),
		fmt.Sprintf("0x%X", f.Header.Source),
		fmt.Sprintf("0x%X", f.Header.Destination),
		fmt.Sprintf("0x%X", f.Header.PGN),
		strings.ToUpper(hex.EncodeToString(f.Payload())),
	})
}

func (c *CSVWriter) WriteMessage(m Message) error {
	if !c.wroteHeader {
		if err := c.w.Write(messageCSVHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	return c.w.Write([]string{
		FormatTimestamp(m.Time),
		FormatTimestamp(m.EndTime),
		m.Interface,
		fmt.Sprintf("0x%X", m.CanID()),
		strconv.Itoa(len(m.Data)),
		strconv.Itoa(int(m.Header.Priority)),
		fmt.Sprintf("0x%X", m.Header.Source),
		fmt.Sprintf("0x%X", m.Header.Destination),
		fmt.Sprintf("0x%X", m.Header.PGN),
		strings.ToUpper(hex.EncodeToString(m.Data)),
	})
}

func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// CSVReader reads pre-decoded frames from the tabular input form. Only the timestamp,
// interface, canid and data columns are used; priority, source, destination and PGN are
// re-derived from the identifier so the columns cannot disagree.
type CSVReader struct {
	r       *csv.Reader
	columns map[string]int
}

func NewCSVReader(r io.Reader) *CSVReader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return &CSVReader{r: reader}
}

// Read returns the next frame. Row-level failures are returned per row so the caller
// can warn and continue; io.EOF marks the end of the input.
func (c *CSVReader) Read() (Frame, error) {
	if c.columns == nil {
		header, err := c.r.Read()
		if err != nil {
			return Frame{}, err
		}
		c.columns = make(map[string]int, len(header))
		for i, name := range header {
			c.columns[strings.TrimSpace(strings.ToLower(name))] = i
		}
		for _, required := range []string{"timestamp", "interface", "canid", "data"} {
			if _, ok := c.columns[required]; !ok {
				return Frame{}, fmt.Errorf("input CSV is missing the %q column", required)
			}
		}
	}

	row, err := c.r.Read()
	if err != nil {
		return Frame{}, err
	}
	return c.parseRow(row)
}

func (c *CSVReader) parseRow(row []string) (Frame, error) {
	field := func(name string) string {
		idx := c.columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	ts, err := ParseTimestamp(field("timestamp"))
	if err != nil {
		return Frame{}, err
	}
	canIDRaw := field("canid")
	canIDRaw = strings.TrimPrefix(strings.TrimPrefix(canIDRaw, "0x"), "0X")
	canID, err := strconv.ParseUint(canIDRaw, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to parse canid: %w", err)
	}
	raw, err := hex.DecodeString(field("data"))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode data: %w", err)
	}
	if len(raw) > 8 {
		return Frame{}, fmt.Errorf("frame data is %d bytes, at most 8 allowed", len(raw))
	}

	frame := Frame{
		Time:      ts,
		Interface: field("interface"),
		Header:    ParseCANID(uint32(canID)),
		Length:    uint8(len(raw)),
	}
	copy(frame.Data[:], raw)
	return frame, nil
}
