package ipc

import "time"

// Project mirrors a monitored project for transport.
type Project struct {
	ProjectPath     string
	EncodedPath     string
	DisplayName     string
	Monitoring      bool
	LastActivity    time.Time
	TotalEventCount int64
	SessionCount    int
}

// Session mirrors a discovered session for transport.
type Session struct {
	SessionID     string
	JSONLFilePath string
	ProjectPath   string
	IsActive      bool
	EventCount    int64
	StartTime     time.Time
	LastActivity  time.Time
	FileSize      int64
}

// Stats mirrors monitoring throughput for transport.
type Stats struct {
	FilesTailed    int
	LinesEmitted   int64
	BytesProcessed int64
	Errors         int64
	StartedAt      time.Time
	LinesPerSecond float64
}

// StartRequest asks the daemon to begin root-wide monitoring.
type StartRequest struct{}

// StartResponse reports the outcome of a start request.
type StartResponse struct {
	Started bool
	Message string
}

// StopRequest asks the daemon to end root-wide monitoring.
type StopRequest struct{}

// StopResponse reports the outcome of a stop request.
type StopResponse struct {
	Stopped bool
	Message string
}

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse carries daemon runtime information.
type StatusResponse struct {
	Running          bool
	MonitoringActive bool
	GlobalActive     bool
	PID              int
	StartedAt        time.Time
	LogRoot          string
	DatabasePath     string
	LockPath         string
	SocketPath       string
	ProjectCount     int
	Stats            Stats
}

// ProjectStartRequest asks the daemon to monitor one project.
type ProjectStartRequest struct {
	ProjectPath string
}

// ProjectStartResponse reports whether monitoring newly began.
type ProjectStartResponse struct {
	Started bool
	Message string
}

// ProjectStopRequest asks the daemon to stop monitoring one project.
type ProjectStopRequest struct {
	ProjectPath string
}

// ProjectStopResponse reports whether monitoring was active.
type ProjectStopResponse struct {
	Stopped bool
	Message string
}

// ProjectListRequest asks for all monitored projects.
type ProjectListRequest struct{}

// ProjectListResponse carries monitored projects in registration order.
type ProjectListResponse struct {
	Projects []Project
}

// SessionListRequest asks for the sessions of one project.
type SessionListRequest struct {
	ProjectPath string
}

// SessionListResponse carries sessions in discovery order.
type SessionListResponse struct {
	Sessions []Session
}

// SessionContextRequest asks for the recent lines of one session.
type SessionContextRequest struct {
	ProjectPath string
	SessionID   string
}

// SessionContextResponse carries recent session lines, oldest first.
type SessionContextResponse struct {
	Lines []string
}

// StatsRequest asks for throughput counters.
type StatsRequest struct{}

// StatsResponse carries throughput counters.
type StatsResponse struct {
	Stats Stats
}

// StatsResetRequest zeroes the throughput counters.
type StatsResetRequest struct{}

// StatsResetResponse acknowledges a counter reset.
type StatsResetResponse struct {
	Reset bool
}

// LogTailRequest asks for daemon log lines from an offset. A negative offset
// anchors at the end of the file.
type LogTailRequest struct {
	Offset     int64
	Limit      int
	Follow     bool
	WaitMillis int
}

// LogTailResponse carries log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string
	Offset int64
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification test outcome.
type TestNotificationResponse struct {
	Sent    bool
	Message string
}
