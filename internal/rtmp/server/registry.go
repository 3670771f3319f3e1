package server

// Stream registry: tracks active publishing sessions keyed by stream key.
//
// The only cross-session resource the session model allows is the active
// stream-key set itself (see the concurrency model's "Shared resources"
// note): a mutex-guarded map inserted into on entry to Publishing and
// removed from on transition to Closed. Everything else here (codec
// bookkeeping, the segmenter handle) is per-stream metadata a single
// publisher owns for the lifetime of its own session.

import (
	"sync"
	"time"

	"github.com/DishankChauhan/streamX/internal/media"
)

// Registry holds all active streams keyed by stream key.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{streams: make(map[string]*Stream)} }

// Stream is the metadata kept for one active publish. Mutation of the codec
// fields is the only thing that can race (the connection's read loop sets
// them as it sniffs the first audio/video frames).
type Stream struct {
	Key        string
	StartTime  time.Time
	VideoCodec string
	AudioCodec string
	Segmenter  *media.Segmenter

	mu sync.RWMutex
}

// CreateStream returns the existing stream if present or creates a new one.
// The boolean indicates whether a new stream was created; a false return
// with a non-nil stream signals a duplicate active key (StreamKeyBusy).
func (r *Registry) CreateStream(key string) (*Stream, bool) {
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	if s, ok := r.streams[key]; ok {
		r.mu.RUnlock()
		return s, false
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[key]; ok { // double-check under write lock
		return s, false
	}
	s := &Stream{Key: key, StartTime: time.Now()}
	r.streams[key] = s
	return s, true
}

// Count returns the number of currently active streams.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// GetStream returns the stream for key or nil if absent.
func (r *Registry) GetStream(key string) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[key]
}

// DeleteStream removes the stream (if present) and returns true if deleted.
func (r *Registry) DeleteStream(key string) bool {
	if key == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[key]; ok {
		delete(r.streams, key)
		return true
	}
	return false
}

// --- CodecStore interface implementation (used by media.CodecDetector) ---

// SetAudioCodec sets the audio codec name in a thread-safe manner.
func (s *Stream) SetAudioCodec(codec string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.AudioCodec = codec
	s.mu.Unlock()
}

// SetVideoCodec sets the video codec name in a thread-safe manner.
func (s *Stream) SetVideoCodec(codec string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.VideoCodec = codec
	s.mu.Unlock()
}

// GetAudioCodec returns the current audio codec in a thread-safe manner.
func (s *Stream) GetAudioCodec() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AudioCodec
}

// GetVideoCodec returns the current video codec in a thread-safe manner.
func (s *Stream) GetVideoCodec() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.VideoCodec
}

// StreamKey returns the stream's key (required by the CodecStore interface).
func (s *Stream) StreamKey() string {
	if s == nil {
		return ""
	}
	return s.Key
}

// SetSegmenter attaches the spawned segmenter handle to the stream.
func (s *Stream) SetSegmenter(seg *media.Segmenter) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Segmenter = seg
	s.mu.Unlock()
}

// GetSegmenter returns the stream's segmenter handle, or nil before publish
// completes spawning it.
func (s *Stream) GetSegmenter() *media.Segmenter {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Segmenter
}
