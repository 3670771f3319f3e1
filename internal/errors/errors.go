package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// wrapCause attaches a stack trace to a lower-layer cause at the point it
// crosses into one of this package's typed protocol errors, so a failure
// logged at the session layer can still be traced back to where it
// originated (handshake read, chunk parse, AMF decode, ...). Nil causes
// (the zero-cause constructor calls) pass through unchanged.
func wrapCause(cause error) error {
	if cause == nil {
		return nil
	}
	return pkgerrors.WithStack(cause)
}

// protocolMarker is implemented by all protocol-layer error types so we can classify them.
type protocolMarker interface {
	error
	isProtocol()
}

// ProtocolError is a generic RTMP protocol layer error (validation, state, etc).
type ProtocolError struct {
	Op  string // high-level operation (e.g. "state.transition", "decode.message")
	Err error  // underlying cause (may be nil)
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("protocol error: %s", e.Op)
	}
	return fmt.Sprintf("protocol error: %s: %v", e.Op, e.Err)
}
func (e *ProtocolError) Unwrap() error { return e.Err }
func (e *ProtocolError) isProtocol()   {}

// HandshakeError indicates an RTMP handshake violation or failure.
type HandshakeError struct {
	Op  string
	Err error
}

func (e *HandshakeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("handshake error: %s", e.Op)
	}
	return fmt.Sprintf("handshake error: %s: %v", e.Op, e.Err)
}
func (e *HandshakeError) Unwrap() error { return e.Err }
func (e *HandshakeError) isProtocol()   {}

// ChunkError indicates an RTMP chunk parsing / serialization violation.
type ChunkError struct {
	Op  string
	Err error
}

func (e *ChunkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chunk error: %s", e.Op)
	}
	return fmt.Sprintf("chunk error: %s: %v", e.Op, e.Err)
}
func (e *ChunkError) Unwrap() error { return e.Err }
func (e *ChunkError) isProtocol()   {}

// AMFError indicates a failure in AMF0 encoding/decoding.
type AMFError struct {
	Op  string
	Err error
}

func (e *AMFError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("amf error: %s", e.Op)
	}
	return fmt.Sprintf("amf error: %s: %v", e.Op, e.Err)
}
func (e *AMFError) Unwrap() error { return e.Err }
func (e *AMFError) isProtocol()   {}

// TimeoutError indicates an operation exceeded a deadline or idle timeout.
type TimeoutError struct {
	Op       string
	Duration time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (after %s)", e.Op, e.Duration)
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}
func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout returns true if err is (or wraps) a TimeoutError, a context deadline exceeded,
// or any error type that exposes Timeout() bool and returns true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if stdErrors.As(err, &te) {
		return true
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var toErr interface{ Timeout() bool }
	if stdErrors.As(err, &toErr) && toErr.Timeout() {
		return true
	}
	return false
}

// IsProtocolError returns true if the error chain contains any protocol-layer
// error: ProtocolError, HandshakeError, ChunkError, AMFError, or one of the
// stream-key, max-streams, segmenter and command-state errors below.
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var pm protocolMarker
	return stdErrors.As(err, &pm)
}

// Constructors wrap the cause with github.com/pkg/errors at the boundary
// where a lower layer's error crosses into the typed protocol-error family,
// so a stack trace survives up to wherever the caller logs it.
func NewProtocolError(op string, cause error) error {
	return &ProtocolError{Op: op, Err: wrapCause(cause)}
}
func NewHandshakeError(op string, cause error) error {
	return &HandshakeError{Op: op, Err: wrapCause(cause)}
}
func NewChunkError(op string, cause error) error {
	return &ChunkError{Op: op, Err: wrapCause(cause)}
}
func NewAMFError(op string, cause error) error {
	return &AMFError{Op: op, Err: wrapCause(cause)}
}
func NewTimeoutError(op string, d time.Duration, cause error) error {
	return &TimeoutError{Op: op, Duration: d, Err: wrapCause(cause)}
}

// StreamKeyInvalidError indicates a publish stream key failed shape
// validation (empty, contains a path separator, or too long). Disposition:
// the caller sends onStatus NetStream.Publish.BadName and terminates.
type StreamKeyInvalidError struct {
	StreamKey string
	Reason    string
}

func (e *StreamKeyInvalidError) Error() string {
	return fmt.Sprintf("stream key %q invalid: %s", e.StreamKey, e.Reason)
}
func (e *StreamKeyInvalidError) isProtocol() {}

// NewStreamKeyInvalidError builds a StreamKeyInvalidError.
func NewStreamKeyInvalidError(streamKey, reason string) error {
	return &StreamKeyInvalidError{StreamKey: streamKey, Reason: reason}
}

// StreamKeyBusyError indicates a publish named a stream key already active
// under another publisher. Disposition: onStatus NetStream.Publish.BadName,
// terminate.
type StreamKeyBusyError struct {
	StreamKey string
}

func (e *StreamKeyBusyError) Error() string {
	return fmt.Sprintf("stream key %q already active", e.StreamKey)
}
func (e *StreamKeyBusyError) isProtocol() {}

// NewStreamKeyBusyError builds a StreamKeyBusyError.
func NewStreamKeyBusyError(streamKey string) error { return &StreamKeyBusyError{StreamKey: streamKey} }

// MaxStreamsExceededError indicates the concurrent-publisher cap was hit.
// Disposition: onStatus NetConnection.Connect.Rejected, terminate.
type MaxStreamsExceededError struct {
	Limit int
}

func (e *MaxStreamsExceededError) Error() string {
	return fmt.Sprintf("max concurrent streams (%d) exceeded", e.Limit)
}
func (e *MaxStreamsExceededError) isProtocol() {}

// NewMaxStreamsExceededError builds a MaxStreamsExceededError.
func NewMaxStreamsExceededError(limit int) error { return &MaxStreamsExceededError{Limit: limit} }

// SegmenterSpawnError indicates the external HLS segmenter subprocess could
// not be started.
type SegmenterSpawnError struct {
	StreamKey string
	Err       error
}

func (e *SegmenterSpawnError) Error() string {
	return fmt.Sprintf("segmenter spawn failed for %q: %v", e.StreamKey, e.Err)
}
func (e *SegmenterSpawnError) Unwrap() error { return e.Err }
func (e *SegmenterSpawnError) isProtocol()   {}

// NewSegmenterSpawnError builds a SegmenterSpawnError.
func NewSegmenterSpawnError(streamKey string, cause error) error {
	return &SegmenterSpawnError{StreamKey: streamKey, Err: wrapCause(cause)}
}

// SegmenterPipeClosedError indicates a write to the segmenter's stdin failed
// because the pipe (or the subprocess itself) had already gone away.
type SegmenterPipeClosedError struct {
	StreamKey string
	Err       error
}

func (e *SegmenterPipeClosedError) Error() string {
	return fmt.Sprintf("segmenter pipe closed for %q: %v", e.StreamKey, e.Err)
}
func (e *SegmenterPipeClosedError) Unwrap() error { return e.Err }
func (e *SegmenterPipeClosedError) isProtocol()   {}

// NewSegmenterPipeClosedError builds a SegmenterPipeClosedError.
func NewSegmenterPipeClosedError(streamKey string, cause error) error {
	return &SegmenterPipeClosedError{StreamKey: streamKey, Err: wrapCause(cause)}
}

// CommandNotApplicableError indicates a well-formed command arrived in a
// session state that doesn't accept it (e.g. publish before createStream).
type CommandNotApplicableError struct {
	Command string
	State   string
}

func (e *CommandNotApplicableError) Error() string {
	return fmt.Sprintf("command %q not applicable in state %q", e.Command, e.State)
}
func (e *CommandNotApplicableError) isProtocol() {}

// NewCommandNotApplicableError builds a CommandNotApplicableError.
func NewCommandNotApplicableError(command, state string) error {
	return &CommandNotApplicableError{Command: command, State: state}
}

// Usage pattern example:
//  if _, err := io.ReadFull(r, buf); err != nil {
//      return NewHandshakeError("read C0+C1", fmt.Errorf("io: %w", err))
//  }
// Keep layering context with fmt.Errorf("...: %w", err).
