// Package audit es el FlowAuditLog: registro append-only de transiciones del flow por
// sesión, acotado en tamaño y con la misma vida que la sesión.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/codeflow/internal/metrics"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
)

type EventType string

const (
	EventLoginStarted      EventType = "login_started"
	EventCallbackReceived  EventType = "callback_received"
	EventStateRejected     EventType = "state_rejected"
	EventAuthorizationDeny EventType = "authorization_denied"
	EventTokenObtained     EventType = "token_obtained"
	EventExchangeFailed    EventType = "exchange_failed"
	EventResourceAccessed  EventType = "resource_accessed"
	EventTokenExpired      EventType = "token_expired"
	EventUpstreamFailed    EventType = "upstream_failed"
	EventLoggedOut         EventType = "logged_out"
)

type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// DefaultMaxEvents eventos retenidos por sesión; los más viejos se descartan.
const DefaultMaxEvents = 64

type Log struct {
	mu  sync.Mutex
	c   *gocache.Cache
	ttl time.Duration
	max int
	now func() time.Time
}

func New(ttl time.Duration, maxPerSession int) *Log {
	if maxPerSession <= 0 {
		maxPerSession = DefaultMaxEvents
	}
	return &Log{
		c:   gocache.New(ttl, time.Minute),
		ttl: ttl,
		max: maxPerSession,
		now: time.Now,
	}
}

// Record agrega ev al trail de sessionID y lo emite como log estructurado.
// Cada Record renueva la expiración del trail.
func (l *Log) Record(ctx context.Context, sessionID string, ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = l.now().UTC()
	}

	l.mu.Lock()
	var trail []Event
	if v, ok := l.c.Get(sessionID); ok {
		trail = v.([]Event)
	}
	trail = append(trail, ev)
	if len(trail) > l.max {
		trail = append([]Event(nil), trail[len(trail)-l.max:]...)
	}
	l.c.Set(sessionID, trail, l.ttl)
	l.mu.Unlock()

	metrics.FlowEvents.WithLabelValues(string(ev.Type)).Inc()
	logger.From(ctx).Info("flow event",
		logger.Component("audit"),
		logger.SessionID(sessionID),
		logger.String("event", string(ev.Type)),
		logger.String("from", ev.From),
		logger.String("to", ev.To),
		logger.String("detail", ev.Detail),
	)
}

// Events devuelve una copia del trail, del más viejo al más nuevo.
func (l *Log) Events(sessionID string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.c.Get(sessionID)
	if !ok {
		return []Event{}
	}
	trail := v.([]Event)
	out := make([]Event, len(trail))
	copy(out, trail)
	return out
}
