package rpc

import (
	"fmt"

	"github.com/DishankChauhan/streamX/internal/errors"
	"github.com/DishankChauhan/streamX/internal/rtmp/amf"
	"github.com/DishankChauhan/streamX/internal/rtmp/chunk"
)

// BuildConnectResponse builds the standard _result response for a successful
// connect command. It returns an RTMP AMF0 command message (type 20) with the
// following structure:
// ["_result", transactionID, properties:Object, information:Object]
//
// properties fields, in wire order:
//
//	fmsVer:       "FMS/3,0,1,123"
//	capabilities: 31
//
// information fields, in wire order:
//
//	level:          "status"
//	code:           "NetConnection.Connect.Success"
//	description:    caller provided description
//	objectEncoding: 0 (we always answer in AMF0, even if the client asked for AMF3)
//
// The returned message uses MessageStreamID=0 (connection level). CSID is left
// as zero here; actual assignment (typically 3 for command) is handled by the
// chunk writer layer when serialising for the wire.
func BuildConnectResponse(transactionID float64, description string) (*chunk.Message, error) {
	props := amf.Obj(
		"fmsVer", "FMS/3,0,1,123",
		"capabilities", 31.0,
	)

	info := amf.Obj(
		"level", "status",
		"code", "NetConnection.Connect.Success",
		"description", description,
		"objectEncoding", 0.0,
	)

	payload, err := amf.EncodeAll("_result", transactionID, props, info)
	if err != nil {
		return nil, errors.NewProtocolError("connect.response.encode", fmt.Errorf("amf encode: %w", err))
	}

	return &chunk.Message{
		// CSID intentionally 0 (unset) – writer will decide actual chunk stream (usually 3)
		TypeID:          commandMessageAMF0TypeID,
		MessageStreamID: 0,
		Payload:         payload,
		MessageLength:   uint32(len(payload)),
	}, nil
}
