package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/gesture_arm/internal/bridge"
	"github.com/relabs-tech/gesture_arm/internal/config"
	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

const wsWriteWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// monitor keeps the latest decision and pose and fans decisions out to
// websocket clients.
type monitor struct {
	mu       sync.RWMutex
	last     bridge.Decision
	haveLast bool
	pose     orientation.Pose
	havePose bool
	clients  map[chan bridge.Decision]struct{}
	logger   zerolog.Logger
}

func newMonitor(logger zerolog.Logger) *monitor {
	return &monitor{
		clients: make(map[chan bridge.Decision]struct{}),
		logger:  logger,
	}
}

func (m *monitor) setDecision(d bridge.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = d
	m.haveLast = true
	for ch := range m.clients {
		select {
		case ch <- d:
		default:
			// slow client, drop this frame
		}
	}
}

func (m *monitor) setPose(p orientation.Pose) {
	m.mu.Lock()
	m.pose = p
	m.havePose = true
	m.mu.Unlock()
}

func (m *monitor) subscribe() chan bridge.Decision {
	ch := make(chan bridge.Decision, 16)
	m.mu.Lock()
	m.clients[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

func (m *monitor) unsubscribe(ch chan bridge.Decision) {
	m.mu.Lock()
	delete(m.clients, ch)
	m.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("json encode error")
	}
}

func (m *monitor) handleDecision(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	d, ok := m.last, m.haveLast
	m.mu.RUnlock()

	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, d, m.logger)
}

func (m *monitor) handlePose(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	p, ok := m.pose, m.havePose
	m.mu.RUnlock()

	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, p, m.logger)
}

// handleWS streams every decision as a JSON text frame. The latest decision,
// if any, is sent first.
func (m *monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	ch := m.subscribe()
	defer m.unsubscribe(ch)

	// Reader goroutine only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	m.mu.RLock()
	d, ok := m.last, m.haveLast
	m.mu.RUnlock()
	if ok {
		if err := m.send(conn, d); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case d := <-ch:
			if err := m.send(conn, d); err != nil {
				m.logger.Debug().Err(err).Msg("websocket write error")
				return
			}
		}
	}
}

func (m *monitor) send(conn *websocket.Conn, d bridge.Decision) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(d)
}

func (m *monitor) routes(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/decision", m.handleDecision)
	mux.HandleFunc("/api/pose", m.handlePose)
	mux.HandleFunc("/ws", m.handleWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

// RunWeb serves the live monitor fed from MQTT.
func RunWeb(cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("web monitor needs MQTT_BROKER")
	}

	m := newMonitor(log.With().Str("component", "web").Logger())

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMs)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT broker")

	if err := subscribeJSON(client, cfg.TopicCommand, log.Logger, m.setDecision); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicPose, log.Logger, m.setPose); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Info().Str("addr", addr).Msg("web server listening")
	return http.ListenAndServe(addr, m.routes("web"))
}
