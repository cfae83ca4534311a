package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"remoteeye/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Close codes sent to the peer before tearing a session down.
const (
	CloseAuthFailed = 4000
	CloseSuperseded = 4001
)

var ErrSessionClosed = errors.New("session closed")

// Session wraps one live websocket connection. Control traffic (commands,
// status events, acks) and media traffic ride separate queues so a burst of
// frames can never starve a command; media overflows by dropping the oldest
// buffered unit instead of blocking the publisher.
type Session struct {
	ID       string
	Role     domain.Role
	Identity string
	DeviceID domain.DeviceID

	conn         *websocket.Conn
	control      chan []byte
	media        chan *domain.MediaFrame
	seq          atomic.Uint64
	dropped      atomic.Uint64
	writeTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}

	logger *zap.SugaredLogger
}

func newSession(
	id string,
	role domain.Role,
	identity string,
	deviceID domain.DeviceID,
	conn *websocket.Conn,
	controlBuffer, mediaBuffer int,
	writeTimeout time.Duration,
	logger *zap.SugaredLogger,
) *Session {
	return &Session{
		ID:           id,
		Role:         role,
		Identity:     identity,
		DeviceID:     deviceID,
		conn:         conn,
		control:      make(chan []byte, controlBuffer),
		media:        make(chan *domain.MediaFrame, mediaBuffer),
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
		logger:       logger,
	}
}

// QueueControl enqueues a control envelope. It fails if the session is closed
// or the control buffer is full; control traffic is never silently dropped.
func (s *Session) QueueControl(data []byte) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case s.control <- data:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	default:
		return errors.New("control buffer full")
	}
}

// QueueMedia enqueues a media unit, evicting the oldest buffered unit when
// the buffer is full. It never blocks the caller.
func (s *Session) QueueMedia(frame *domain.MediaFrame) {
	select {
	case <-s.closed:
		return
	default:
	}

	stamped := *frame
	stamped.Seq = s.seq.Add(1)

	for {
		select {
		case s.media <- &stamped:
			return
		default:
		}
		select {
		case <-s.media:
			s.dropped.Add(1)
		default:
		}
	}
}

// Dropped returns the number of media units evicted from this session's
// buffer since it was opened.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// writePump is the single writer for the connection. Control drains with
// priority over media.
func (s *Session) writePump() {
	defer s.conn.Close()

	for {
		select {
		case <-s.closed:
			return
		case data := <-s.control:
			if err := s.write(websocket.TextMessage, data); err != nil {
				s.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case frame := <-s.media:
			// A control message that arrived meanwhile goes first.
			select {
			case data := <-s.control:
				if err := s.write(websocket.TextMessage, data); err != nil {
					s.Close(websocket.CloseAbnormalClosure, "")
					return
				}
			default:
			}
			data, err := s.encodeMedia(frame)
			if err != nil {
				s.logger.Errorw("failed to encode media frame", "session_id", s.ID, "error", err)
				continue
			}
			if err := s.write(websocket.TextMessage, data); err != nil {
				s.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

func (s *Session) encodeMedia(frame *domain.MediaFrame) ([]byte, error) {
	var t MessageType
	switch frame.Kind {
	case domain.MediaKindAudio:
		t = TypeAudio
	case domain.MediaKindLocation:
		t = TypeLocation
	default:
		t = TypeFrame
	}
	return encodeMessage(t, MediaPayload{
		Seq:       frame.Seq,
		Data:      frame.Payload,
		Timestamp: frame.Timestamp.UnixMilli(),
	})
}

func (s *Session) write(messageType int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(messageType, data)
}

// Close tears the session down exactly once, sending the close code first on
// a best-effort basis. Safe to call from any goroutine.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		s.conn.Close()
	})
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
