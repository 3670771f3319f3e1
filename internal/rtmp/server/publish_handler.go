package server

// Publish response building and stream-key validation.
//
// Orchestration (registry lookups, segmenter spawning, active-key-set
// bookkeeping) lives in command_integration.go; this file only builds the
// AMF0 messages the publish flow sends back to the client and validates the
// stream key the client asked to publish under.

import (
	"fmt"

	rtmperrors "github.com/DishankChauhan/streamX/internal/errors"
	"github.com/DishankChauhan/streamX/internal/rtmp/amf"
	"github.com/DishankChauhan/streamX/internal/rtmp/chunk"
	"github.com/DishankChauhan/streamX/internal/rtmp/rpc"
)

// sender is the minimal interface required from a connection to send a
// message back to the client. *conn.Connection satisfies it.
type sender interface {
	SendMessage(*chunk.Message) error
}

const maxStreamKeyLen = 255

// ValidateStreamKey enforces the stream key shape required before a publish
// is allowed to proceed: non-empty, no path separators, bounded length.
func ValidateStreamKey(key string) error {
	if key == "" {
		return rtmperrors.NewStreamKeyInvalidError(key, "empty")
	}
	for _, r := range key {
		if r == '/' || r == '\\' {
			return rtmperrors.NewStreamKeyInvalidError(key, "contains path separator")
		}
	}
	if len(key) > maxStreamKeyLen {
		return rtmperrors.NewStreamKeyInvalidError(key, fmt.Sprintf("length %d exceeds %d", len(key), maxStreamKeyLen))
	}
	return nil
}

// buildOnStatus builds a generic onStatus command message (transaction id 0,
// a null command object, and an ordered {level, code, description} info
// object), matching every onStatus shape the command table requires.
func buildOnStatus(level, code, description string) (*chunk.Message, error) {
	info := amf.Obj(
		"level", level,
		"code", code,
		"description", description,
	)
	payload, err := amf.EncodeAll("onStatus", 0.0, nil, info)
	if err != nil {
		return nil, rtmperrors.NewProtocolError("onstatus.encode", err)
	}
	return &chunk.Message{
		CSID:            5,
		TypeID:          rpc.CommandMessageAMF0TypeIDForTest(),
		MessageStreamID: 1,
		MessageLength:   uint32(len(payload)),
		Payload:         payload,
	}, nil
}

// BuildPublishStart builds the onStatus NetStream.Publish.Start response
// sent once a publish has been accepted.
func BuildPublishStart(streamKey string) (*chunk.Message, error) {
	return buildOnStatus("status", "NetStream.Publish.Start", fmt.Sprintf("Started publishing stream %s", streamKey))
}

// BuildPublishFailed builds the onStatus NetStream.Publish.Failed response
// sent for a CommandNotApplicable publish (e.g. publish before createStream)
// or a SegmenterSpawnFailure; the session stays alive in the first case and
// terminates in the second, per the caller's disposition.
func BuildPublishFailed(streamKey, reason string) (*chunk.Message, error) {
	return buildOnStatus("error", "NetStream.Publish.Failed", reason)
}

// BuildPublishBadName builds the onStatus NetStream.Publish.BadName response
// sent when a stream key fails validation or collides with an already-active
// publisher, per the StreamKeyInvalid/StreamKeyBusy error disposition.
func BuildPublishBadName(streamKey, reason string) (*chunk.Message, error) {
	return buildOnStatus("error", "NetStream.Publish.BadName", fmt.Sprintf("%s: %s", streamKey, reason))
}

// BuildConnectRejected builds the onStatus NetConnection.Connect.Rejected
// response sent when the concurrent-publisher cap (max_streams) is hit.
func BuildConnectRejected(description string) (*chunk.Message, error) {
	return buildOnStatus("error", "NetConnection.Connect.Rejected", description)
}

// HandlePublish parses the publish command, validates the stream key, and
// registers the stream in the registry (creating it if needed). It does not
// send any response itself — the caller decides which onStatus variant to
// send based on validation outcome and sends it.
func HandlePublish(reg *Registry, app string, msg *chunk.Message) (*rpc.PublishCommand, *Stream, error) {
	if reg == nil || msg == nil {
		return nil, nil, rtmperrors.NewProtocolError("publish.handle", fmt.Errorf("nil argument"))
	}
	pcmd, err := rpc.ParsePublishCommand(app, msg)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateStreamKey(pcmd.StreamKey); err != nil {
		return pcmd, nil, err
	}
	stream, created := reg.CreateStream(pcmd.StreamKey)
	if !created {
		return pcmd, stream, rtmperrors.NewStreamKeyBusyError(pcmd.StreamKey)
	}
	return pcmd, stream, nil
}
