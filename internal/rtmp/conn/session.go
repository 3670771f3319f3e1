package conn

// SessionState models the session's position in the connect → createStream
// → publish → media lifecycle.
type SessionState uint8

const (
	SessionStateHandshaking SessionState = iota
	SessionStateAwaitingConnect
	SessionStateConnected
	SessionStateStreamCreated
	SessionStatePublishing
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateHandshaking:
		return "Handshaking"
	case SessionStateAwaitingConnect:
		return "AwaitingConnect"
	case SessionStateConnected:
		return "Connected"
	case SessionStateStreamCreated:
		return "StreamCreated"
	case SessionStatePublishing:
		return "Publishing"
	case SessionStateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// assignedStreamID is the message stream id createStream always returns;
// a single-publisher-per-connection session never needs more than one.
const assignedStreamID = 1

// Session holds per-connection RTMP session metadata established after the
// handshake and connect command.
//
// Concurrency: mutated only by the connection's single read-loop goroutine;
// no locks required.
type Session struct {
	app            string
	tcUrl          string
	flashVer       string
	objectEncoding uint8

	transactionID uint32 // starts at 1
	streamID      uint32 // 0 until createStream, then fixed at assignedStreamID
	streamKey     string // == the publishing name, once publish is received

	state SessionState
}

// NewSession creates a Session already past the handshake (the connection
// layer only constructs one once ServerHandshake has completed), so it
// starts in AwaitingConnect.
func NewSession() *Session {
	return &Session{transactionID: 1, state: SessionStateAwaitingConnect}
}

// SetConnectInfo records the fields carried by the connect command and
// advances AwaitingConnect → Connected.
func (s *Session) SetConnectInfo(app, tcUrl, flashVer string, objectEncoding uint8) {
	s.app = app
	s.tcUrl = tcUrl
	s.flashVer = flashVer
	s.objectEncoding = objectEncoding
	if s.state == SessionStateAwaitingConnect {
		s.state = SessionStateConnected
	}
}

// NextTransactionID increments and returns the next transaction id.
func (s *Session) NextTransactionID() uint32 {
	s.transactionID++
	return s.transactionID
}

// AllocateStreamID assigns the fixed message stream id and advances
// Connected → StreamCreated. Safe to call more than once; it always returns
// the same id.
func (s *Session) AllocateStreamID() uint32 {
	s.streamID = assignedStreamID
	if s.state == SessionStateConnected {
		s.state = SessionStateStreamCreated
	}
	return s.streamID
}

// SetStreamKey records the stream key named by a publish command (the
// publishing name itself — no app prefix) and advances StreamCreated →
// Publishing.
func (s *Session) SetStreamKey(streamKey string) string {
	s.streamKey = streamKey
	if s.state == SessionStateStreamCreated {
		s.state = SessionStatePublishing
	}
	return s.streamKey
}

// Close marks the session terminal. Idempotent.
func (s *Session) Close() { s.state = SessionStateClosed }

// Accessor methods (read-only) ------------------------------------------------

func (s *Session) App() string           { return s.app }
func (s *Session) TcUrl() string         { return s.tcUrl }
func (s *Session) FlashVer() string      { return s.flashVer }
func (s *Session) ObjectEncoding() uint8 { return s.objectEncoding }
func (s *Session) TransactionID() uint32 { return s.transactionID }
func (s *Session) StreamID() uint32      { return s.streamID }
func (s *Session) StreamKey() string     { return s.streamKey }
func (s *Session) State() SessionState   { return s.state }
