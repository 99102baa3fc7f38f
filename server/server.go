package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/showdown/broadcast"
	"github.com/wfunc/showdown/config"
	"github.com/wfunc/showdown/logger"
	"github.com/wfunc/showdown/monitor"
	"github.com/wfunc/showdown/network"
	"github.com/wfunc/showdown/persistence"
	"github.com/wfunc/showdown/room"
	showdownrpc "github.com/wfunc/showdown/rpc"
	"github.com/wfunc/showdown/services"
	"github.com/wfunc/showdown/session"
	"github.com/wfunc/showdown/timer"
)

// GameServer wires the websocket boundary to the room registry. All
// validation of inbound payloads happens here; rooms only ever see
// well-formed commands.
type GameServer struct {
	addr           string
	cfg            *config.Config
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	matchService   *services.MatchService
	mon            *monitor.Monitor
	rpcServer      *showdownrpc.Server
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		cfg:            cfg,
		sessionManager: session.NewManager(),
		mon:            monitor.NewMonitor("showdown"),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // controllers join from LAN addresses
			},
		},
	}

	s.broadcaster = broadcast.NewSessionBroadcaster(s.sessionManager)

	var recorder room.Recorder
	if db != nil {
		s.matchService = services.NewMatchService(db)
		recorder = s.matchService
	}

	bounds := room.Bounds{
		MinTickDuration: cfg.Game.MinTickDurationMs,
		MaxTickDuration: cfg.Game.MaxTickDurationMs,
		MinSlotsPerSide: cfg.Game.MinSlotsPerSide,
		MaxSlotsPerSide: cfg.Game.MaxSlotsPerSide,
	}
	s.roomManager = room.NewManager(bounds, s.broadcaster, recorder, s.mon, timer.NewManager())

	if s.matchService != nil {
		rpcServer, err := showdownrpc.NewServer(cfg.Server.RPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		s.rpcServer = rpcServer
		rpc.Register(showdownrpc.NewMatchQueryService(s.matchService))
	}

	return s
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}
	s.mon.StartServer(s.cfg.Server.MetricsAddress)

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.mon.SessionOpened()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.mon.SessionClosed()
		s.handleDisconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handleDisconnect drops the live routing entry only. The game-state
// record stays for reconnection.
func (s *GameServer) handleDisconnect(sess *session.Session) {
	participantID, _ := sess.Identity()
	if participantID != "" {
		s.roomManager.Detach(participantID)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeResumeHost:
		s.handleResumeHost(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeSelectTeam:
		s.handleSelectTeam(sess, packet)
	case network.MsgTypeLeaveTeam:
		s.handleLeaveTeam(sess)
	case network.MsgTypeLockAction:
		s.handleLockAction(sess, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess)
	case network.MsgTypePlayAgain:
		s.handlePlayAgain(sess)
	case network.MsgTypeEndSession:
		s.handleEndSession(sess)
	case network.MsgTypeUpdateConfig:
		s.handleUpdateConfig(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// sendError reports a failure to the originating session only.
func (s *GameServer) sendError(sess *session.Session, err error) {
	data, _ := json.Marshal(network.ErrorReply{Message: err.Error()})
	sess.Send(network.MsgTypeError, data)
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Session %s: marshal reply %d: %v", sess.GetID(), msgID, err)
		return
	}
	sess.Send(msgID, data)
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req network.CreateRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}

	hostID := req.HostID
	if hostID == "" {
		hostID = sess.GetID()
	}
	cfg := req.Config
	if cfg.TickDuration == 0 {
		cfg.TickDuration = s.cfg.Game.DefaultTickDurationMs
	}
	if cfg.SlotsPerSide == 0 {
		cfg.SlotsPerSide = s.cfg.Game.DefaultSlotsPerSide
	}

	r := s.roomManager.CreateRoom(hostID, cfg)
	sess.BindHost(hostID, r.Code)

	s.reply(sess, network.MsgTypeRoomCreated, network.RoomCreatedReply{RoomCode: r.Code})
	s.reply(sess, network.MsgTypeGameState, r.Snapshot())
}

func (s *GameServer) handleResumeHost(sess *session.Session, packet *network.Packet) {
	var req network.ResumeHostRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	req.RoomCode = strings.ToUpper(req.RoomCode)
	if err := req.Validate(); err != nil {
		s.sendError(sess, err)
		return
	}

	snapshot, err := s.roomManager.ResumeHost(req.RoomCode, req.HostID)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	sess.BindHost(req.HostID, req.RoomCode)
	s.reply(sess, network.MsgTypeGameState, snapshot)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req network.JoinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	req.RoomCode = strings.ToUpper(req.RoomCode)
	if err := req.Validate(); err != nil {
		s.sendError(sess, err)
		return
	}

	player, err := s.roomManager.Join(req.PlayerID, req.RoomCode, req.PlayerName)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	sess.BindPlayer(req.PlayerID, req.RoomCode)
	s.reply(sess, network.MsgTypeJoined, network.JoinedReply{Player: player, RoomCode: req.RoomCode})
}

func (s *GameServer) handleSelectTeam(sess *session.Session, packet *network.Packet) {
	var req network.SelectTeamRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.sendError(sess, err)
		return
	}

	r, playerID, err := s.playerRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.SelectTeam(playerID, req.Team); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleLeaveTeam(sess *session.Session) {
	r, playerID, err := s.playerRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.LeaveTeam(playerID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleLockAction(sess *session.Session, packet *network.Packet) {
	var req network.LockActionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.sendError(sess, err)
		return
	}

	r, playerID, err := s.playerRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.LockAction(playerID, req.Action); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleStartGame(sess *session.Session) {
	r, err := s.hostRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.StartGame(); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handlePlayAgain(sess *session.Session) {
	r, err := s.hostRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.PlayAgain(); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleEndSession(sess *session.Session) {
	r, err := s.hostRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := s.roomManager.EndSession(r.Code); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleUpdateConfig(sess *session.Session, packet *network.Packet) {
	var req network.UpdateConfigRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, err)
		return
	}

	r, err := s.hostRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	hostID, _ := sess.Identity()
	if err := r.UpdateConfig(hostID, req); err != nil {
		s.sendError(sess, err)
	}
}

// playerRoom resolves the session's bound player to its room.
func (s *GameServer) playerRoom(sess *session.Session) (*room.Room, string, error) {
	participantID, roomCode := sess.Identity()
	if participantID == "" || roomCode == "" {
		return nil, "", room.ErrPlayerNotFound
	}
	r, exists := s.roomManager.GetRoom(roomCode)
	if !exists {
		return nil, "", room.ErrRoomNotFound
	}
	return r, participantID, nil
}

// hostRoom resolves the session's bound host identity to its room.
func (s *GameServer) hostRoom(sess *session.Session) (*room.Room, error) {
	participantID, roomCode := sess.Identity()
	if participantID == "" || roomCode == "" {
		return nil, room.ErrRoomNotFound
	}
	r, exists := s.roomManager.GetRoom(roomCode)
	if !exists {
		return nil, room.ErrRoomNotFound
	}
	if r.HostID != participantID {
		return nil, room.ErrNotHost
	}
	return r, nil
}
