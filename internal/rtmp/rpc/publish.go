package rpc

import (
	"fmt"

	"github.com/DishankChauhan/streamX/internal/errors"
	"github.com/DishankChauhan/streamX/internal/rtmp/amf"
	"github.com/DishankChauhan/streamX/internal/rtmp/chunk"
)

// PublishCommand represents a parsed "publish" command.
// Spec form: ["publish", 0, null, publishingName, publishingType]
// The publishing name itself is the stream key; it is used directly (no app
// prefix) as the per-stream output directory name.
type PublishCommand struct {
	PublishingName string
	PublishingType string // one of: live|record|append
	StreamKey      string // == PublishingName
}

// defaultPublishingType is used when the client omits the publishingType
// argument entirely.
const defaultPublishingType = "live"

// ParsePublishCommand parses an AMF0 command message assumed to contain a
// publish invocation. app is the application name negotiated during connect;
// it is accepted for logging/context but does not affect the stream key.
// Expected AMF0 sequence:
// 0: string "publish"
// 1: number 0 (transaction id is always 0 for publish in practice - ignored)
// 2: null
// 3: string publishingName
// 4: string publishingType (live|record|append) — optional, defaults to "live"
func ParsePublishCommand(app string, msg *chunk.Message) (*PublishCommand, error) {
	if msg == nil {
		return nil, errors.NewProtocolError("publish.parse", fmt.Errorf("nil message"))
	}
	if msg.TypeID != commandMessageAMF0TypeID { // must be AMF0 command message (type 20)
		return nil, errors.NewProtocolError("publish.parse", fmt.Errorf("unexpected message type %d", msg.TypeID))
	}

	vals, err := amf.DecodeAll(msg.Payload)
	if err != nil {
		return nil, errors.NewProtocolError("publish.parse.decode", err)
	}
	// Need at least 4 values; publishingType (index 4) is optional.
	if len(vals) < 4 {
		return nil, errors.NewProtocolError("publish.parse", fmt.Errorf("expected >=4 AMF values, got %d", len(vals)))
	}

	// 0: command name
	name, ok := vals[0].(string)
	if !ok || name != "publish" {
		return nil, errors.NewProtocolError("publish.parse", fmt.Errorf("first value must be string 'publish'"))
	}

	// 3: publishingName
	publishingName, ok := vals[3].(string)
	if !ok || publishingName == "" {
		return nil, errors.NewProtocolError("publish.parse", fmt.Errorf("publishingName required"))
	}

	// 4: publishingType (optional)
	publishingType := defaultPublishingType
	if len(vals) > 4 {
		if s, ok := vals[4].(string); ok && s != "" {
			publishingType = s
		}
	}
	switch publishingType {
	case "live", "record", "append":
		// valid
	default:
		return nil, errors.NewProtocolError("publish.parse", fmt.Errorf("unsupported publishingType %q", publishingType))
	}

	return &PublishCommand{
		PublishingName: publishingName,
		PublishingType: publishingType,
		StreamKey:      publishingName,
	}, nil
}
