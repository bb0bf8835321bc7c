package gateway

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/thierryishimwe250/quintet/internal/observe"
	"github.com/thierryishimwe250/quintet/internal/transcript"
	"github.com/thierryishimwe250/quintet/internal/voice"
	"github.com/thierryishimwe250/quintet/pkg/audio"
	"github.com/thierryishimwe250/quintet/pkg/audio/playback"
	"github.com/thierryishimwe250/quintet/pkg/audio/record"
)

// liveMsg is a JSON text frame on the live websocket. Status and transcript
// updates flow server to client; the stop command flows client to server.
type liveMsg struct {
	Type    string `json:"type"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Role    string `json:"role,omitempty"`
	Text    string `json:"text,omitempty"`
}

// wsConn serialises writes to a websocket connection. coder/websocket allows
// only one concurrent writer per message type.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(ctx context.Context, msg liveMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) writeBinary(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

// wsSource feeds microphone samples received over the websocket into the
// capture unit. It implements [audio.Source].
type wsSource struct {
	mu       sync.Mutex
	onBuffer func([]float32)
}

func (s *wsSource) Start(onBuffer func([]float32)) error {
	s.mu.Lock()
	s.onBuffer = onBuffer
	s.mu.Unlock()
	return nil
}

func (s *wsSource) Release() error {
	s.mu.Lock()
	s.onBuffer = nil
	s.mu.Unlock()
	return nil
}

func (s *wsSource) push(samples []float32) {
	s.mu.Lock()
	cb := s.onBuffer
	s.mu.Unlock()
	if cb != nil {
		cb(samples)
	}
}

// decodeFloat32 interprets data as little-endian float32 samples. A trailing
// partial sample is dropped.
func decodeFloat32(data []byte) []float32 {
	n := len(data) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// wsSink forwards scheduled playback audio to the client as binary frames.
// The playback scheduler paces calls; a cancelled source is never sent.
type wsSink struct {
	ws  *wsConn
	ctx context.Context
}

func (s *wsSink) Play(frame audio.AudioFrame, cancel <-chan struct{}) {
	select {
	case <-cancel:
		return
	default:
	}
	if err := s.ws.writeBinary(s.ctx, frame.Data); err != nil {
		observe.Logger(s.ctx).Debug("live: drop playback frame", "err", err)
	}
}

// handleLive runs one voice conversation over a websocket. The controller,
// its session and the recording are torn down when the socket closes, the
// client sends a stop command, or the session reaches a terminal state.
func (g *Gateway) handleLive(w http.ResponseWriter, r *http.Request) {
	if g.opts.Live == nil {
		writeError(w, http.StatusServiceUnavailable, "live mode is not configured")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("live: accept", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	sessionID := newSessionID()
	log := observe.Logger(ctx).With("session", sessionID)

	ws := &wsConn{conn: conn}
	source := &wsSource{}
	var sink playback.Sink = &wsSink{ws: ws, ctx: ctx}

	if g.opts.RecordDir != "" {
		rec, err := record.Create(
			filepath.Join(g.opts.RecordDir, sessionID+".wav"),
			audio.Format{SampleRate: audio.PlaybackRate, Channels: 1},
		)
		if err != nil {
			log.Warn("live: recording disabled", "err", err)
		} else {
			sink = record.Tee(sink, rec)
			defer rec.Close()
		}
	}

	opts := []voice.Option{voice.WithMetrics(g.metrics)}
	if g.opts.Store != nil {
		opts = append(opts, voice.WithStore(g.opts.Store, sessionID))
	}
	ctrl := voice.New(g.opts.Live, g.opts.Voice, source, sink, opts...)

	ctrl.OnStatus(func(st voice.State, msg string) {
		if err := ws.writeJSON(ctx, liveMsg{Type: "status", State: st.String(), Message: msg}); err != nil {
			log.Debug("live: drop status update", "err", err)
		}
	})
	ctrl.OnTranscript(func(e transcript.Entry) {
		if err := ws.writeJSON(ctx, liveMsg{Type: "transcript", Role: e.Role, Text: e.Text}); err != nil {
			log.Debug("live: drop transcript update", "err", err)
		}
	})

	g.metrics.ActiveSessions.Add(ctx, 1)
	defer g.metrics.ActiveSessions.Add(ctx, -1)
	start := time.Now()
	defer func() {
		g.metrics.SessionDuration.Record(context.Background(), time.Since(start).Seconds())
	}()

	if err := ctrl.Start(ctx); err != nil {
		log.Error("live: start session", "err", err)
		conn.Close(websocket.StatusInternalError, "failed to start session")
		return
	}
	defer func() {
		ctrl.Stop()
		ctrl.Wait()
	}()

	log.Info("live session started")
	g.metrics.RecordModeRequest(ctx, "live", "ok")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("live session ended", "reason", err)
			return
		}
		switch typ {
		case websocket.MessageBinary:
			source.push(decodeFloat32(data))
			g.metrics.CapturedFrames.Add(ctx, 1)
		case websocket.MessageText:
			var cmd liveMsg
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			if cmd.Type == "stop" {
				ctrl.Stop()
				ctrl.Wait()
				conn.Close(websocket.StatusNormalClosure, "stopped")
				log.Info("live session stopped by client")
				return
			}
		}
	}
}
