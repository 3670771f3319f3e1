package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	rtmperrors "github.com/DishankChauhan/streamX/internal/errors"
)

// FLVWriter serializes RTMP audio/video/metadata messages into the FLV tag
// stream a segmenter expects on its stdin: a 13-byte file header followed
// by repeated (11-byte tag header, payload, 4-byte previous-tag-size)
// records. It writes the file header exactly once, lazily, on first tag.
type FLVWriter struct {
	mu          sync.Mutex
	w           io.Writer
	wroteHeader bool
	closed      bool
}

// NewFLVWriter wraps w, an already-throttled or raw destination (typically
// a segmenter's stdin pipe).
func NewFLVWriter(w io.Writer) *FLVWriter {
	return &FLVWriter{w: w}
}

// flvHeader is the 13-byte FLV signature + flags + header-length + a
// zeroed PreviousTagSize0, declaring both audio and video present.
var flvHeader = []byte{'F', 'L', 'V', 0x01, 0x05, 0x00, 0x00, 0x00, 0x09, 0x00, 0x00, 0x00, 0x00}

func (f *FLVWriter) writeHeaderLocked() error {
	if f.wroteHeader {
		return nil
	}
	if _, err := f.w.Write(flvHeader); err != nil {
		return rtmperrors.NewChunkError("flv.header.write", err)
	}
	f.wroteHeader = true
	return nil
}

// WriteTag encodes one FLV tag (type 8 audio, 9 video, 18 script/metadata)
// carrying timestamp and payload, followed by its PreviousTagSize trailer.
func (f *FLVWriter) WriteTag(typeID uint8, timestamp uint32, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("flv writer closed")
	}
	if err := f.writeHeaderLocked(); err != nil {
		return err
	}

	dataSize := len(payload)
	if dataSize > 0xFFFFFF {
		return rtmperrors.NewChunkError("flv.tag.size", fmt.Errorf("payload too large: %d", dataSize))
	}

	var hdr [11]byte
	hdr[0] = typeID
	hdr[1] = byte(dataSize >> 16)
	hdr[2] = byte(dataSize >> 8)
	hdr[3] = byte(dataSize)
	hdr[4] = byte(timestamp >> 16)
	hdr[5] = byte(timestamp >> 8)
	hdr[6] = byte(timestamp)
	hdr[7] = byte(timestamp >> 24) // extended timestamp byte
	// bytes 8-10: stream id, always zero

	if _, err := f.w.Write(hdr[:]); err != nil {
		return rtmperrors.NewChunkError("flv.tag.header.write", err)
	}
	if dataSize > 0 {
		if _, err := f.w.Write(payload); err != nil {
			return rtmperrors.NewChunkError("flv.tag.payload.write", err)
		}
	}

	var prevSize [4]byte
	binary.BigEndian.PutUint32(prevSize[:], uint32(11+dataSize))
	if _, err := f.w.Write(prevSize[:]); err != nil {
		return rtmperrors.NewChunkError("flv.tag.trailer.write", err)
	}
	return nil
}

// Close marks the writer unusable for further tags. The underlying stream
// (the segmenter's stdin pipe) is closed separately by the Segmenter.
func (f *FLVWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
