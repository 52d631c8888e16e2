// canstruct reconstructs transport layer sessions (NMEA 2000 Fast Packet and
// ISO 11783-3 / J1939-21 TP) from a stream of raw CAN frames.
//
// Frames are read from a candump log, a pre-decoded CSV, or a serial device
// emitting candump lines. Reconstructed messages are written as candump lines,
// JSON objects or CBOR records. Session faults are reported on stderr and never
// stop the stream.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"

	"github.com/Notgnoshi/csvizmo/can"
	"github.com/Notgnoshi/csvizmo/config"
	"github.com/Notgnoshi/csvizmo/internal/stdio"
)

type frameReader interface {
	Read() (can.Frame, error)
}

type messageWriter interface {
	write(can.Message) error
	flush() error
}

func main() {
	inputPath := flag.String("input", "-", "input path, - means stdin")
	outputPath := flag.String("output", "-", "output path, - means stdout")
	serialDev := flag.String("serial", "", "read candump lines from this serial device instead of -input")
	baudRate := flag.Int("baud", 115200, "serial device baud rate")
	inputFormat := flag.String("input-format", "candump", "input format (candump, csv)")
	outputFormat := flag.String("output-format", "candump", "output format (candump, json, cbor)")
	configPath := flag.String("config", "", "path to TOML config with fast packet PGNs and timeout overrides")
	logLevel := flag.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flag.Parse()

	logger, err := initLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "canstruct: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
	}

	in, closeIn, err := openInput(*inputPath, *serialDev, *baudRate)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open input")
	}
	defer closeIn()

	var reader frameReader
	switch *inputFormat {
	case "candump":
		reader = can.NewCandumpReader(in)
	case "csv":
		reader = can.NewCSVReader(in)
	default:
		logger.Fatal().Str("format", *inputFormat).Msg("unknown input format")
	}

	out, err := stdio.Output(*outputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open output")
	}
	defer out.Close()

	writer, err := newMessageWriter(out, *outputFormat)
	if err != nil {
		logger.Fatal().Str("format", *outputFormat).Msg("unknown output format")
	}

	warnings := 0
	diag := func(d can.Diagnostic) {
		warnings++
		logger.Warn().
			Str("reason", d.Reason.String()).
			Uint8("src", d.Source).
			Uint8("dst", d.Destination).
			Str("pgn", fmt.Sprintf("0x%X", d.PGN)).
			Float64("timestamp", can.TimestampSeconds(d.Time)).
			Msg(d.Message)
	}

	engine := can.NewReconstructor(cfg.Options(), diag)

	frames, messages := 0, 0
	for {
		frame, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			warnings++
			logger.Warn().Err(err).Msg("skipping unparsable input line")
			continue
		}
		frames++
		for _, msg := range engine.Handle(frame) {
			messages++
			if err := writer.write(msg); err != nil {
				logger.Fatal().Err(err).Msg("failed to write output")
			}
		}
	}
	if err := writer.flush(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write output")
	}

	logger.Info().
		Int("frames", frames).
		Int("messages", messages).
		Int("warnings", warnings).
		Int("incomplete_sessions", engine.SessionCount()).
		Msg("done")
}

// openInput picks the serial device over the input path when both are given.
func openInput(path string, serialDev string, baud int) (io.Reader, func() error, error) {
	if serialDev != "" {
		port, err := serial.OpenPort(&serial.Config{
			Name: serialDev,
			Baud: baud,
			Size: 8,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open serial device %s: %w", serialDev, err)
		}
		return port, port.Close, nil
	}
	in, err := stdio.Input(path)
	if err != nil {
		return nil, nil, err
	}
	return in, in.Close, nil
}

func initLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("unknown log level %q", level)
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
}

func newMessageWriter(w io.Writer, format string) (messageWriter, error) {
	switch format {
	case "candump":
		return &candumpMessageWriter{w: can.NewCandumpWriter(w)}, nil
	case "json":
		return &jsonMessageWriter{enc: json.NewEncoder(w)}, nil
	case "cbor":
		return &cborMessageWriter{enc: cbor.NewEncoder(w)}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

type candumpMessageWriter struct {
	w *can.CandumpWriter
}

func (c *candumpMessageWriter) write(m can.Message) error { return c.w.WriteMessage(m) }
func (c *candumpMessageWriter) flush() error              { return nil }

type jsonMessageWriter struct {
	enc *json.Encoder
}

func (j *jsonMessageWriter) write(m can.Message) error { return j.enc.Encode(m.Record()) }
func (j *jsonMessageWriter) flush() error              { return nil }

type cborMessageWriter struct {
	enc *cbor.Encoder
}

func (c *cborMessageWriter) write(m can.Message) error { return c.enc.Encode(m.Record()) }
func (c *cborMessageWriter) flush() error              { return nil }
