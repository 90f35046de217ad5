// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"unicode/utf8"
)

// =============================================================================
// STREAM READER
// =============================================================================

// streamBufferSize is the per-read buffer. Small enough that chunks reach
// the callback promptly, large enough to avoid syscall churn.
const streamBufferSize = 4096

// StreamReader decodes a streaming response body into text chunks.
//
// The reply is raw UTF-8 with no framing; a read can end mid-rune, so the
// decoder is stateful: bytes forming an incomplete trailing rune are held
// back and prepended to the next read. Chunk-local decoding would emit
// replacement characters at chunk boundaries.
type StreamReader struct {
	reader  io.Reader
	pending []byte // incomplete trailing rune bytes from the previous read
	buf     []byte
}

// NewStreamReader creates a stream reader over r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: r,
		buf:    make([]byte, streamBufferSize),
	}
}

// Process reads the stream and calls the callback for each decoded chunk.
// Blocks until the stream is complete or the context is cancelled. The
// context is checked before every read, so cancellation between chunks is
// observed before any further network I/O.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.reader.Read(s.buf)
		if n > 0 {
			if text := s.decode(s.buf[:n]); text != "" {
				callback(text)
			}
		}
		if err != nil {
			if err == io.EOF {
				// An incomplete rune at stream end is dropped: the bytes
				// cannot form a character and fabricating one would
				// corrupt the reply.
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeTransport, Message: "reading response stream", Cause: err}
		}
	}
}

// decode converts raw bytes to a complete-rune string, carrying any
// incomplete trailing rune over to the next call.
func (s *StreamReader) decode(data []byte) string {
	if len(s.pending) > 0 {
		data = append(s.pending, data...)
		s.pending = nil
	}

	// Walk back over at most one rune's worth of bytes; if the last rune
	// start begins a rune whose continuation bytes have not arrived yet,
	// hold that tail back for the next read.
	complete := len(data)
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		if utf8.RuneStart(data[len(data)-i]) {
			if !utf8.FullRune(data[len(data)-i:]) {
				complete = len(data) - i
			}
			break
		}
	}

	if complete < len(data) {
		s.pending = append([]byte(nil), data[complete:]...)
	}
	return string(data[:complete])
}
