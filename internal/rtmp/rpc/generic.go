package rpc

import (
	"fmt"

	"github.com/DishankChauhan/streamX/internal/errors"
	"github.com/DishankChauhan/streamX/internal/rtmp/amf"
	"github.com/DishankChauhan/streamX/internal/rtmp/chunk"
)

// SimpleCommand is the parsed shape shared by the handful of commands whose
// only interesting field is their transaction id: releaseStream, FCPublish,
// FCUnpublish and _checkbw all arrive as ["name", txnID, null, ...extra].
type SimpleCommand struct {
	Name          string
	TransactionID float64
}

// parseSimpleCommand decodes msg and validates the leading command name,
// returning the transaction id. It tolerates any number of trailing
// arguments since callers that only need the txn id don't care about them.
func parseSimpleCommand(wantName string, msg *chunk.Message) (*SimpleCommand, error) {
	if msg == nil {
		return nil, errors.NewProtocolError(wantName+".parse", fmt.Errorf("nil message"))
	}
	if msg.TypeID != commandMessageAMF0TypeID {
		return nil, errors.NewProtocolError(wantName+".parse", fmt.Errorf("unexpected message type %d", msg.TypeID))
	}
	vals, err := amf.DecodeAll(msg.Payload)
	if err != nil {
		return nil, errors.NewProtocolError(wantName+".parse.decode", err)
	}
	if len(vals) < 2 {
		return nil, errors.NewProtocolError(wantName+".parse", fmt.Errorf("expected >=2 AMF values, got %d", len(vals)))
	}
	name, ok := vals[0].(string)
	if !ok || name != wantName {
		return nil, errors.NewProtocolError(wantName+".parse", fmt.Errorf("first value must be string %q", wantName))
	}
	txn, ok := vals[1].(float64)
	if !ok {
		return nil, errors.NewProtocolError(wantName+".parse", fmt.Errorf("second value must be number transaction ID"))
	}
	return &SimpleCommand{Name: name, TransactionID: txn}, nil
}

// ParseReleaseStreamCommand parses a releaseStream command, honored with a
// generic _result per the Connected state's command table.
func ParseReleaseStreamCommand(msg *chunk.Message) (*SimpleCommand, error) {
	return parseSimpleCommand("releaseStream", msg)
}

// ParseFCPublishCommand parses an FCPublish command.
func ParseFCPublishCommand(msg *chunk.Message) (*SimpleCommand, error) {
	return parseSimpleCommand("FCPublish", msg)
}

// ParseFCUnpublishCommand parses an FCUnpublish command, which ends a
// publishing session (equivalent to deleteStream for our purposes).
func ParseFCUnpublishCommand(msg *chunk.Message) (*SimpleCommand, error) {
	return parseSimpleCommand("FCUnpublish", msg)
}

// ParseCheckBandwidthCommand parses a _checkbw command.
func ParseCheckBandwidthCommand(msg *chunk.Message) (*SimpleCommand, error) {
	return parseSimpleCommand("_checkbw", msg)
}

// buildGenericResult builds a minimal _result reply carrying the client's
// transaction id and two null arguments, used for any well-formed but
// unrecognized command and for releaseStream/FCPublish acknowledgement.
func buildGenericResult(transactionID float64) (*chunk.Message, error) {
	payload, err := amf.EncodeAll("_result", transactionID, nil, nil)
	if err != nil {
		return nil, errors.NewProtocolError("generic.result.encode", fmt.Errorf("amf encode: %w", err))
	}
	return &chunk.Message{
		TypeID:          commandMessageAMF0TypeID,
		MessageStreamID: 0,
		Payload:         payload,
		MessageLength:   uint32(len(payload)),
	}, nil
}

// BuildGenericResult is the exported form of buildGenericResult, used by
// server-layer handlers for releaseStream/FCPublish acknowledgement.
func BuildGenericResult(transactionID float64) (*chunk.Message, error) {
	return buildGenericResult(transactionID)
}

// BuildOnBWDone builds the onBWDone notification sent once immediately after
// a successful connect _result, per the connect-success response table.
func BuildOnBWDone() (*chunk.Message, error) {
	payload, err := amf.EncodeAll("onBWDone", 0.0, nil)
	if err != nil {
		return nil, errors.NewProtocolError("onbwdone.encode", fmt.Errorf("amf encode: %w", err))
	}
	return &chunk.Message{
		TypeID:          commandMessageAMF0TypeID,
		MessageStreamID: 0,
		Payload:         payload,
		MessageLength:   uint32(len(payload)),
	}, nil
}

// BuildCheckBandwidthResponse builds the _checkbw reply: a _result echoing
// the client's transaction id with null and an advertised bandwidth number.
func BuildCheckBandwidthResponse(transactionID float64, advertisedBandwidth float64) (*chunk.Message, error) {
	payload, err := amf.EncodeAll("_result", transactionID, nil, advertisedBandwidth)
	if err != nil {
		return nil, errors.NewProtocolError("checkbw.response.encode", fmt.Errorf("amf encode: %w", err))
	}
	return &chunk.Message{
		TypeID:          commandMessageAMF0TypeID,
		MessageStreamID: 0,
		Payload:         payload,
		MessageLength:   uint32(len(payload)),
	}, nil
}

// BuildOnBWCheck builds the onBWCheck notification sent alongside the
// _checkbw reply while the session stays in Connected.
func BuildOnBWCheck() (*chunk.Message, error) {
	payload, err := amf.EncodeAll("onBWCheck", 0.0, nil)
	if err != nil {
		return nil, errors.NewProtocolError("onbwcheck.encode", fmt.Errorf("amf encode: %w", err))
	}
	return &chunk.Message{
		TypeID:          commandMessageAMF0TypeID,
		MessageStreamID: 0,
		Payload:         payload,
		MessageLength:   uint32(len(payload)),
	}, nil
}
