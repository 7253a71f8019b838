package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"urnik/internal/indicator"
	appLog "urnik/internal/log"
	"urnik/internal/metrics"
	"urnik/internal/model"
)

const (
	sseChannelBuffer = 4
	sseHeartbeat     = 30 * time.Second
	defaultDayCount  = 5
)

// handleIndicatorStream pushes the time indicator as server-sent events.
// Each connection owns one indicator.Ticker, stopped on disconnect.
func (s *Server) handleIndicatorStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	days := parseIntDefault(r.URL.Query().Get("days"), defaultDayCount)
	if days < 1 || days > 7 {
		writeError(w, http.StatusBadRequest, "days must be between 1 and 7")
		return
	}

	ch := make(chan *model.TimeIndicator, sseChannelBuffer)
	ticker := indicator.NewTicker(days, func(ti *model.TimeIndicator) {
		select {
		case ch <- ti:
		default:
			// Slow client; it gets the next tick.
		}
	},
		indicator.WithSpec(s.tickerSpec),
		indicator.WithLocation(s.loc),
		indicator.WithClock(s.now),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if err := ticker.Start(); err != nil {
		appLog.Error("indicator ticker start failed", err)
		return
	}
	defer ticker.Stop()

	metrics.IndicatorStreams.Inc()
	defer metrics.IndicatorStreams.Dec()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ti := <-ch:
			data, err := json.Marshal(ti)
			if err != nil {
				appLog.Error("indicator encode failed", err)
				continue
			}
			fmt.Fprintf(w, "event: indicator\ndata: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
