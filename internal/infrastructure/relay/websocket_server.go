package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/services"
	"remoteeye/pkg/config"
	"remoteeye/pkg/utils"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebSocketServer admits authenticated device and controller sessions and
// pumps their messages through the relay.
type WebSocketServer struct {
	auth     services.AuthService
	presence services.PresenceService
	commands services.CommandService
	registry *Registry
	router   *MediaRouter
	metrics  Metrics

	upgrader websocket.Upgrader

	pingInterval time.Duration
	pongTimeout  time.Duration

	malformedRate  rate.Limit
	malformedBurst int
	maxMessageSize int64
	buffers        buffers

	logger *zap.SugaredLogger
}

func NewWebSocketServer(
	auth services.AuthService,
	presence services.PresenceService,
	commands services.CommandService,
	registry *Registry,
	router *MediaRouter,
	metrics Metrics,
	cfg *config.Config,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	allowed := cfg.Auth.AllowedOrigins
	return &WebSocketServer{
		auth:     auth,
		presence: presence,
		commands: commands,
		registry: registry,
		router:   router,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				for _, o := range allowed {
					if o == "*" || strings.EqualFold(o, origin) {
						return true
					}
				}
				return false
			},
		},
		pingInterval:   cfg.Relay.PingInterval,
		pongTimeout:    cfg.Relay.PongTimeout,
		malformedRate:  rate.Limit(cfg.RateLimiting.WebSocket.MalformedPerSecond),
		malformedBurst: cfg.RateLimiting.WebSocket.MalformedBurst,
		maxMessageSize: cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
		buffers: buffers{
			control:      cfg.Relay.ControlBufferSize,
			media:        cfg.Relay.MediaBufferSize,
			writeTimeout: cfg.Relay.WriteTimeout,
		},
		logger:         logger,
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	token := bearerToken(r)
	claims, err := s.auth.VerifyAccessToken(token)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseAuthFailed, "authentication failed"),
			time.Now().Add(time.Second))
		conn.Close()
		s.logger.Infow("websocket auth rejected",
			"remote", r.RemoteAddr,
			"token", utils.MaskSensitive(token, 8),
			"error", err,
		)
		return
	}

	session, err := s.admit(conn, claims, r)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseAuthFailed, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	s.readLoop(session)
}

// bearerToken pulls the access token from the query string or, failing that,
// the Authorization header. Browser websocket clients cannot set headers, so
// the query form is the primary one.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (s *WebSocketServer) admit(conn *websocket.Conn, claims *services.Claims, r *http.Request) (*Session, error) {
	cfg := s.buffers

	switch claims.Role {
	case domain.RoleDevice:
		deviceID := domain.DeviceID(claims.Subject)
		session := newSession(uuid.New().String(), domain.RoleDevice, claims.Subject, deviceID,
			conn, cfg.control, cfg.media, cfg.writeTimeout, s.logger)
		s.registry.AdmitDevice(session)
		s.presence.DeviceOnline(context.Background(), deviceID)
		s.logger.Infow("device session admitted", "device_id", deviceID, "session_id", session.ID)
		return session, nil

	case domain.RoleController:
		deviceID := domain.DeviceID(r.URL.Query().Get("device_id"))
		if deviceID == "" {
			return nil, ErrDeviceRequired
		}
		if _, err := s.presence.Status(context.Background(), deviceID); err != nil {
			return nil, ErrDeviceRequired
		}
		session := newSession(uuid.New().String(), domain.RoleController, claims.Subject, deviceID,
			conn, cfg.control, cfg.media, cfg.writeTimeout, s.logger)
		s.registry.AdmitController(session)
		s.logger.Infow("controller session admitted",
			"device_id", deviceID, "controller_id", claims.Subject, "session_id", session.ID)
		return session, nil
	}

	return nil, ErrUnknownRole
}

func (s *WebSocketServer) readLoop(session *Session) {
	conn := session.conn
	conn.SetReadLimit(s.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	malformed := rate.NewLimiter(s.malformedRate, s.malformedBurst)

	messageChan := make(chan []byte, 16)
	errorChan := make(chan error, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
			messageChan <- data
		}
	}()

	for {
		select {
		case data := <-messageChan:
			if ok := s.handleRaw(session, data, malformed); !ok {
				session.Close(websocket.ClosePolicyViolation, "malformed message limit exceeded")
				goto cleanup
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("session read error", "session_id", session.ID, "error", err)
			}
			goto cleanup
		}

		if session.Closed() {
			goto cleanup
		}
	}

cleanup:
	wasCurrent := s.registry.Remove(session)
	if session.Role == domain.RoleDevice && wasCurrent {
		s.presence.DeviceOffline(context.Background(), session.DeviceID)
	}
	s.logger.Infow("session closed", "session_id", session.ID, "role", session.Role)
}

// handleRaw decodes and dispatches one inbound envelope. Malformed input is
// dropped; the returned bool goes false once the malformed budget is spent.
func (s *WebSocketServer) handleRaw(session *Session, data []byte, malformed *rate.Limiter) bool {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || !KnownMessageType(msg.Type) {
		return s.recordMalformed(session, malformed, "undecodable or unknown type")
	}

	if err := s.handleMessage(session, msg); err != nil {
		return s.recordMalformed(session, malformed, err.Error())
	}
	return true
}

func (s *WebSocketServer) recordMalformed(session *Session, malformed *rate.Limiter, reason string) bool {
	s.metrics.RecordMalformedMessage()
	s.logger.Debugw("malformed message dropped",
		"session_id", session.ID, "role", session.Role, "reason", reason)
	return malformed.Allow()
}

func (s *WebSocketServer) handleMessage(session *Session, msg Message) error {
	ctx := context.Background()

	switch session.Role {
	case domain.RoleDevice:
		return s.handleDeviceMessage(ctx, session, msg)
	default:
		return s.handleControllerMessage(ctx, session, msg)
	}
}

func (s *WebSocketServer) handleDeviceMessage(ctx context.Context, session *Session, msg Message) error {
	switch msg.Type {
	case TypeRegister:
		s.presence.Heartbeat(ctx, session.DeviceID)
		return nil

	case TypePing:
		s.presence.Heartbeat(ctx, session.DeviceID)
		return s.sendPong(session)

	case TypePong:
		return nil

	case TypeStatus:
		var payload StatusPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		s.presence.ReportStatus(ctx, session.DeviceID, payload.Status)
		return nil

	case TypeCommandAck:
		var payload CommandAckPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		cmd, err := s.commands.Acknowledge(ctx, session.DeviceID, payload.ID, payload.Status, payload.Error)
		if err != nil {
			// A bad ack is the device's problem, not a session fault.
			s.logger.Infow("command ack rejected",
				"device_id", session.DeviceID, "command_id", payload.ID, "error", err)
			return nil
		}
		s.relayCommandAck(session.DeviceID, cmd)
		return nil

	case TypeFrame, TypeAudio, TypeLocation:
		var payload MediaPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		kind, _ := mediaKindFor(msg.Type)
		ts := time.Now()
		if payload.Timestamp != 0 {
			ts = time.UnixMilli(payload.Timestamp)
		}
		s.router.Publish(session, kind, payload.Data, ts)
		return nil
	}

	return ErrUnexpectedMessage
}

func (s *WebSocketServer) handleControllerMessage(ctx context.Context, session *Session, msg Message) error {
	switch msg.Type {
	case TypeRegister:
		return nil

	case TypePing:
		return s.sendPong(session)

	case TypePong:
		return nil

	case TypeCommand:
		var payload CommandPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		cmd, _, err := s.commands.Enqueue(ctx, session.DeviceID, payload.Action, payload.Params)
		if err != nil {
			return err
		}
		// Echo the accepted command back so the controller learns its id.
		ack, err := encodeMessage(TypeCommandAck, CommandAckPayload{ID: cmd.ID, Status: cmd.Status})
		if err != nil {
			return err
		}
		return session.QueueControl(ack)
	}

	return ErrUnexpectedMessage
}

// relayCommandAck forwards an accepted status change to every controller
// watching the device. Delivery is best effort; a saturated controller just
// misses the update and can recover it from the command history.
func (s *WebSocketServer) relayCommandAck(deviceID domain.DeviceID, cmd *domain.Command) {
	ack, err := encodeMessage(TypeCommandAck, CommandAckPayload{ID: cmd.ID, Status: cmd.Status, Error: cmd.Error})
	if err != nil {
		s.logger.Errorw("failed to encode command ack", "command_id", cmd.ID, "error", err)
		return
	}
	for _, ctrl := range s.registry.ControllerSessions(deviceID) {
		if err := ctrl.QueueControl(ack); err != nil {
			s.logger.Debugw("dropped command ack relay",
				"session_id", ctrl.ID, "command_id", cmd.ID, "error", err)
		}
	}
}

// sendPong answers an application-level ping so clients that cannot observe
// protocol pongs still get a liveness signal.
func (s *WebSocketServer) sendPong(session *Session) error {
	data, err := json.Marshal(Message{Type: TypePong})
	if err != nil {
		return err
	}
	return session.QueueControl(data)
}

type buffers struct {
	control      int
	media        int
	writeTimeout time.Duration
}
