package rpc

// Command dispatcher (T040)
//
// The dispatcher is responsible for:
//   1. Determining the RTMP command name from an AMF0 command message (type 20)
//   2. Parsing the command into the appropriate strongly-typed struct using
//      the existing Parse* helpers (connect, createStream, publish,
//      releaseStream, FCPublish, FCUnpublish, _checkbw)
//   3. Invoking the registered handler for that command name.
//   4. Logging unknown commands (play among them) and, when Send is set,
//      answering them with a generic "_result" (two null arguments).
//
// Design notes / assumptions:
//   * We only support AMF0 command messages (TypeID=20) per current feature set.
//   * For publish parsing we need the application (app) name negotiated
//     during the connect command. Instead of tightly coupling to a Session
//     type (not yet implemented in earlier tasks) we accept an appProvider
//     callback so tests or higher layers can supply the current application
//     name lazily.
//   * deleteStream is routed (if a handler is provided) but not parsed into a
//     dedicated struct yet – it receives the raw decoded AMF value slice so
//     the handler can perform ad‑hoc extraction.
//
// Error handling:
//   * Parsing errors or handler errors are returned to the caller – the caller
//     decides whether to terminate the connection or send an _error response.
//   * Unknown commands return nil (non-fatal) after logging a warning.

import (
	"bytes"
	"fmt"

	"github.com/DishankChauhan/streamX/internal/errors"
	"github.com/DishankChauhan/streamX/internal/logger"
	"github.com/DishankChauhan/streamX/internal/rtmp/amf"
	"github.com/DishankChauhan/streamX/internal/rtmp/chunk"
)

// Handler function types – kept narrow to the parsed command structure.
type (
	ConnectHandler       func(*ConnectCommand, *chunk.Message) error
	CreateStreamHandler  func(*CreateStreamCommand, *chunk.Message) error
	PublishHandler       func(*PublishCommand, *chunk.Message) error
	DeleteStreamHandler  func(values []interface{}, msg *chunk.Message) error
	SimpleCommandHandler func(*SimpleCommand, *chunk.Message) error
)

// Dispatcher routes AMF0 command messages to registered handlers.
type Dispatcher struct {
	appProvider func() string

	OnConnect        ConnectHandler
	OnCreateStream   CreateStreamHandler
	OnPublish        PublishHandler
	OnDeleteStream   DeleteStreamHandler
	OnReleaseStream  SimpleCommandHandler
	OnFCPublish      SimpleCommandHandler
	OnFCUnpublish    SimpleCommandHandler
	OnCheckBandwidth SimpleCommandHandler

	// Send, when set, is used to emit a generic "_result" reply (two null
	// arguments) for well-formed but unrecognized commands so strict clients
	// don't stall waiting on a transaction response.
	Send func(*chunk.Message) error

	log *logger.Logger
}

// NewDispatcher creates a dispatcher. appProvider may be nil; in that case
// publish/play parsing that relies on app will return a protocol error until
// a connect handler sets application state and a new dispatcher is built (or
// caller supplies a non-nil provider referencing mutable state).
func NewDispatcher(appProvider func() string) *Dispatcher {
	return &Dispatcher{appProvider: appProvider, log: logger.Logger().With("component", "dispatcher")}
}

// Dispatch examines msg (expected TypeID=20) and routes to the appropriate
// handler. It returns an error for parse/handler failures. Unknown commands
// are logged at warn level and produce no error.
func (d *Dispatcher) Dispatch(msg *chunk.Message) error {
	if msg == nil {
		return errors.NewProtocolError("dispatch", fmt.Errorf("nil message"))
	}
	if msg.TypeID != commandMessageAMF0TypeID {
		return errors.NewProtocolError("dispatch", fmt.Errorf("unexpected message type %d", msg.TypeID))
	}

	// Decode all AMF0 values. We decode once then branch; per current scope
	// payloads are small so this is acceptable. (If needed we could implement
	// a single-value streaming decoder to read just the first marker.)
	vals, err := amf.DecodeAll(msg.Payload)
	if err != nil {
		return errors.NewProtocolError("dispatch.decode", err)
	}
	if len(vals) == 0 {
		return errors.NewProtocolError("dispatch", fmt.Errorf("empty AMF payload"))
	}
	name, ok := vals[0].(string)
	if !ok {
		return errors.NewProtocolError("dispatch", fmt.Errorf("first AMF value not a string (command name)"))
	}

	switch name {
	case "connect":
		if d.OnConnect == nil {
			return d.noHandlerErr(name)
		}
		cc, err := ParseConnectCommand(msg)
		if err != nil {
			return err
		}
		return d.OnConnect(cc, msg)
	case "createStream":
		if d.OnCreateStream == nil {
			return d.noHandlerErr(name)
		}
		cs, err := ParseCreateStreamCommand(msg)
		if err != nil {
			return err
		}
		return d.OnCreateStream(cs, msg)
	case "publish":
		if d.OnPublish == nil {
			return d.noHandlerErr(name)
		}
		app := d.currentApp()
		pc, err := ParsePublishCommand(app, msg)
		if err != nil {
			return err
		}
		return d.OnPublish(pc, msg)
	case "deleteStream":
		if d.OnDeleteStream == nil {
			return d.noHandlerErr(name)
		}
		return d.OnDeleteStream(vals, msg)
	case "releaseStream":
		if d.OnReleaseStream == nil {
			return d.noHandlerErr(name)
		}
		sc, err := ParseReleaseStreamCommand(msg)
		if err != nil {
			return err
		}
		return d.OnReleaseStream(sc, msg)
	case "FCPublish":
		if d.OnFCPublish == nil {
			return d.noHandlerErr(name)
		}
		sc, err := ParseFCPublishCommand(msg)
		if err != nil {
			return err
		}
		return d.OnFCPublish(sc, msg)
	case "FCUnpublish":
		if d.OnFCUnpublish == nil {
			return d.noHandlerErr(name)
		}
		sc, err := ParseFCUnpublishCommand(msg)
		if err != nil {
			return err
		}
		return d.OnFCUnpublish(sc, msg)
	case "_checkbw":
		if d.OnCheckBandwidth == nil {
			return d.noHandlerErr(name)
		}
		sc, err := ParseCheckBandwidthCommand(msg)
		if err != nil {
			return err
		}
		return d.OnCheckBandwidth(sc, msg)
	default:
		// Unknown command – log a warning then reply with a generic _result
		// (two null arguments) so strict clients waiting on a transaction
		// response don't stall, per the conservative response contract.
		preview := previewHex(msg.Payload, 32)
		d.log.Warn("unknown command", "name", name, "len", len(vals), "payload_preview", preview)
		if d.Send != nil {
			txnID := 0.0
			if len(vals) > 1 {
				if n, ok := vals[1].(float64); ok {
					txnID = n
				}
			}
			resp, err := buildGenericResult(txnID)
			if err != nil {
				return nil
			}
			_ = d.Send(resp)
		}
		return nil
	}
}

func (d *Dispatcher) currentApp() string {
	if d.appProvider == nil {
		return ""
	}
	return d.appProvider()
}

func (d *Dispatcher) noHandlerErr(name string) error {
	return errors.NewProtocolError("dispatch", fmt.Errorf("no handler registered for command %q", name))
}

// previewHex returns a small hex string of the first n bytes of b.
func previewHex(b []byte, n int) string {
	if len(b) == 0 {
		return ""
	}
	if len(b) > n {
		b = b[:n]
	}
	var buf bytes.Buffer
	for i, by := range b {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%02x", by)
	}
	return buf.String()
}
