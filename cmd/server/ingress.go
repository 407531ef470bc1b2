package main

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"bufio"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// relayLines sends every line read from r to sink until r is exhausted
// or ctx is cancelled. The read runs on its own goroutine so a reader
// without EOF, such as a terminal, never holds up shutdown.
func relayLines(ctx context.Context, r io.Reader, sink ports.MessageSink, baseLogger *zerolog.Logger) {
	log := baseLogger.With().Str("component", "stdin_source").Logger()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Reading input failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Input source stopped")
			return
		case line, ok := <-lines:
			if !ok {
				log.Info().Msg("Input exhausted")
				return
			}
			if _, err := sink.Send(domain.NewMessage(line)); err != nil {
				log.Warn().Err(err).Msg("Failed to relay input line")
			}
		}
	}
}
