package api

import (
	"net/http"
	"runtime"
	"time"
)

type DiagnosticsInfo struct {
	HTTPAddr    string `json:"http_addr"`
	DataDir     string `json:"data_dir"`
	DBPath      string `json:"db_path"`
	HistoryPath string `json:"history_path"`
	Model       string `json:"model"`
	AgentName   string `json:"agent_name"`
}

type DiagnosticsResponse struct {
	Time           time.Time       `json:"time"`
	StartedAt      time.Time       `json:"started_at"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	GoVersion      string          `json:"go_version"`
	HistoryEntries int             `json:"history_entries"`
	PendingImages  int             `json:"pending_images"`
	Tools          int             `json:"tools"`
	Info           DiagnosticsInfo `json:"info"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	now := time.Now().UTC()
	started := s.StartedAt
	if started.IsZero() {
		started = now
	}
	resp := DiagnosticsResponse{
		Time:          now,
		StartedAt:     started,
		UptimeSeconds: int64(now.Sub(started).Seconds()),
		GoVersion:     runtime.Version(),
		Info:          s.Info,
	}
	if s.History != nil {
		resp.HistoryEntries = s.History.Len()
		resp.PendingImages = len(s.History.Images())
	}
	if s.Agent != nil && s.Agent.Registry != nil {
		resp.Tools = s.Agent.Registry.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}
