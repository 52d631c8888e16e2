// can2csv converts candump captures to CSV. By default each raw frame becomes one
// row with its identifier fields broken out. With -reconstruct the transport layer
// sessions are reassembled first and each row is a complete message.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Notgnoshi/csvizmo/can"
	"github.com/Notgnoshi/csvizmo/config"
	"github.com/Notgnoshi/csvizmo/internal/stdio"
)

func main() {
	inputPath := flag.String("input", "-", "candump input path, - means stdin")
	outputPath := flag.String("output", "-", "CSV output path, - means stdout")
	reconstruct := flag.Bool("reconstruct", false, "reassemble transport layer sessions and emit message rows")
	configPath := flag.String("config", "", "path to TOML config with fast packet PGNs and timeout overrides")
	logLevel := flag.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can2csv: unknown log level %q\n", *logLevel)
		os.Exit(1)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
	}

	in, err := stdio.Input(*inputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open input")
	}
	defer in.Close()

	out, err := stdio.Output(*outputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open output")
	}
	defer out.Close()

	reader := can.NewCandumpReader(in)
	writer := can.NewCSVWriter(out)

	diag := func(d can.Diagnostic) {
		logger.Warn().
			Str("reason", d.Reason.String()).
			Uint8("src", d.Source).
			Uint8("dst", d.Destination).
			Str("pgn", fmt.Sprintf("0x%X", d.PGN)).
			Float64("timestamp", can.TimestampSeconds(d.Time)).
			Msg(d.Message)
	}
	var engine *can.Reconstructor
	if *reconstruct {
		engine = can.NewReconstructor(cfg.Options(), diag)
	}

	rows := 0
	for {
		frame, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Msg("skipping unparsable input line")
			continue
		}

		if engine == nil {
			if err := writer.WriteFrame(frame); err != nil {
				logger.Fatal().Err(err).Msg("failed to write output")
			}
			rows++
			continue
		}
		for _, msg := range engine.Handle(frame) {
			if err := writer.WriteMessage(msg); err != nil {
				logger.Fatal().Err(err).Msg("failed to write output")
			}
			rows++
		}
	}
	if err := writer.Flush(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write output")
	}

	logger.Info().Int("rows", rows).Msg("done")
}
