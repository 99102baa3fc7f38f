package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/showdown/logger"
	"github.com/wfunc/showdown/models"
	"github.com/wfunc/showdown/services"
)

// Server manages the RPC listener for operator tooling.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// MatchQueryService exposes match history and player stats over
// net/rpc.
type MatchQueryService struct {
	matches *services.MatchService
}

func NewMatchQueryService(ms *services.MatchService) *MatchQueryService {
	return &MatchQueryService{matches: ms}
}

type HistoryArgs struct {
	RoomCode string
	Limit    int
}

type HistoryReply struct {
	Records []models.MatchRecord
}

func (s *MatchQueryService) GetMatchHistory(args *HistoryArgs, reply *HistoryReply) error {
	records, err := s.matches.History(args.RoomCode, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type StatsArgs struct {
	PlayerName string
}

type StatsReply struct {
	Stats *models.PlayerStats
}

func (s *MatchQueryService) GetPlayerStats(args *StatsArgs, reply *StatsReply) error {
	stats, err := s.matches.StatsFor(args.PlayerName)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
