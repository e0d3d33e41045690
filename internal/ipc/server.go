package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"lookout/internal/daemon"
	"lookout/internal/logging"
	"lookout/internal/logs"
	"lookout/internal/monitor"
	"lookout/internal/registry"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Lookout", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun lookout stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertProject(p registry.Project) Project {
	return Project{
		ProjectPath:     p.ProjectPath,
		EncodedPath:     p.EncodedPath,
		DisplayName:     p.DisplayName,
		Monitoring:      p.Monitoring,
		LastActivity:    p.LastActivity,
		TotalEventCount: p.TotalEventCount,
		SessionCount:    p.SessionCount,
	}
}

func convertSession(session registry.Session) Session {
	return Session{
		SessionID:     session.SessionID,
		JSONLFilePath: session.JSONLFilePath,
		ProjectPath:   session.ProjectPath,
		IsActive:      session.IsActive,
		EventCount:    session.EventCount,
		StartTime:     session.StartTime,
		LastActivity:  session.LastActivity,
		FileSize:      session.FileSize,
	}
}

func convertStats(stats monitor.Stats) Stats {
	return Stats{
		FilesTailed:    stats.FilesTailed,
		LinesEmitted:   stats.LinesEmitted,
		BytesProcessed: stats.BytesProcessed,
		Errors:         stats.Errors,
		StartedAt:      stats.StartedAt,
		LinesPerSecond: stats.LinesPerSecond,
	}
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("monitoring start requested")
	started, err := s.daemon.StartMonitoring(s.ctx)
	if err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = started
	if started {
		resp.Message = "monitoring started"
		s.log().Info("monitoring started via IPC",
			logging.String(logging.FieldEventType, "monitoring_start"))
	} else {
		resp.Message = "monitoring already active"
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("monitoring stop requested")
	resp.Stopped = s.daemon.StopMonitoring()
	if resp.Stopped {
		resp.Message = "monitoring stopped"
		s.log().Info("monitoring stopped via IPC",
			logging.String(logging.FieldEventType, "monitoring_stop"))
	} else {
		resp.Message = "monitoring not active"
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.MonitoringActive = status.MonitoringActive
	resp.GlobalActive = status.GlobalActive
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.LogRoot = status.LogRoot
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	resp.ProjectCount = status.ProjectCount
	resp.Stats = convertStats(status.Stats)
	return nil
}

func (s *service) ProjectStart(req ProjectStartRequest, resp *ProjectStartResponse) error {
	s.log().Debug("project start requested", logging.String(logging.FieldProject, req.ProjectPath))
	started, err := s.daemon.StartProject(s.ctx, req.ProjectPath)
	if err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = started
	if started {
		resp.Message = "project monitoring started"
	} else {
		resp.Message = "project already monitored"
	}
	return nil
}

func (s *service) ProjectStop(req ProjectStopRequest, resp *ProjectStopResponse) error {
	s.log().Debug("project stop requested", logging.String(logging.FieldProject, req.ProjectPath))
	stopped, err := s.daemon.StopProject(s.ctx, req.ProjectPath)
	if err != nil {
		resp.Stopped = false
		resp.Message = err.Error()
		return nil
	}
	resp.Stopped = stopped
	if stopped {
		resp.Message = "project monitoring stopped"
	} else {
		resp.Message = "project not monitored"
	}
	return nil
}

func (s *service) ProjectList(_ ProjectListRequest, resp *ProjectListResponse) error {
	projects := s.daemon.Projects()
	resp.Projects = make([]Project, 0, len(projects))
	for _, project := range projects {
		resp.Projects = append(resp.Projects, convertProject(project))
	}
	return nil
}

func (s *service) SessionList(req SessionListRequest, resp *SessionListResponse) error {
	sessions := s.daemon.Sessions(req.ProjectPath)
	resp.Sessions = make([]Session, 0, len(sessions))
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, convertSession(session))
	}
	return nil
}

func (s *service) SessionContext(req SessionContextRequest, resp *SessionContextResponse) error {
	resp.Lines = s.daemon.SessionContext(req.ProjectPath, req.SessionID)
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	resp.Stats = convertStats(s.daemon.Stats())
	return nil
}

func (s *service) StatsReset(_ StatsResetRequest, resp *StatsResetResponse) error {
	s.daemon.ResetStats()
	resp.Reset = true
	s.log().Info("statistics reset via IPC",
		logging.String(logging.FieldEventType, "stats_reset"))
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.Options{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
