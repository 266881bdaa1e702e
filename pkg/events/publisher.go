package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pitabwire/frame/queue"
	"github.com/rs/xid"
)

// Publisher emits typed envelopes onto the service queue and mirrors each one
// to in-process subscribers. The live transcript feed rides on the local
// subscriptions.
type Publisher struct {
	queueMgr queue.Manager
	source   string
	queueRef string

	mu   sync.RWMutex
	subs map[string]chan Envelope
}

// NewPublisher creates a publisher that emits to the given queue reference.
func NewPublisher(queueMgr queue.Manager, source string, queueRef string) *Publisher {
	return &Publisher{
		queueMgr: queueMgr,
		source:   source,
		queueRef: queueRef,
		subs:     make(map[string]chan Envelope),
	}
}

// Emit wraps the payload in an envelope with a fresh ID and timestamp,
// mirrors it locally, then publishes it to the queue.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, recordingID string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env := Envelope{
		ID:          xid.New().String(),
		Type:        eventType,
		Source:      p.source,
		RecordingID: recordingID,
		Timestamp:   time.Now().UTC(),
		Data:        raw,
	}
	p.fanOut(env)
	return p.queueMgr.Publish(ctx, p.queueRef, env)
}

// fanOut mirrors an envelope to every local subscriber without blocking; a
// subscriber with a full buffer misses the event.
func (p *Publisher) fanOut(env Envelope) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for id, ch := range p.subs {
		select {
		case ch <- env:
		default:
			slog.Warn("event dropped: subscriber buffer full",
				slog.String("subscriber", id), slog.String("event_type", string(env.Type)))
		}
	}
}

// Subscribe opens a local subscription under id. The caller must Unsubscribe
// with the same id to release it.
func (p *Publisher) Subscribe(id string, bufSize int) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Envelope, bufSize)
	p.mu.Lock()
	p.subs[id] = ch
	p.mu.Unlock()
	return ch
}

// Unsubscribe closes and removes a local subscription. Unknown ids are a
// no-op.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.subs[id]; ok {
		close(ch)
		delete(p.subs, id)
	}
}
