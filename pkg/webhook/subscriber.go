package webhook

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"

	"github.com/cleanscribe/cleanscribe/pkg/events"
)

const defaultDeliveryWorkers = 16

// Subscriber implements queue.SubscribeWorker, fanning each event out to the
// consumers subscribed to its type. In-flight deliveries are capped by the
// worker count.
type Subscriber struct {
	repo      *Repository
	deliverer *Deliverer
	pool      workerpool.WorkerPool
	slots     chan struct{}
}

// NewSubscriber creates a subscriber that keeps at most workers deliveries
// in flight at once.
func NewSubscriber(repo *Repository, deliverer *Deliverer, pool workerpool.WorkerPool, workers int) *Subscriber {
	if workers <= 0 {
		workers = defaultDeliveryWorkers
	}
	return &Subscriber{
		repo:      repo,
		deliverer: deliverer,
		pool:      pool,
		slots:     make(chan struct{}, workers),
	}
}

// Handle is called by frame's pub/sub for each event message.
func (ws *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		util.Log(ctx).WithError(err).Error("webhook subscriber: unmarshal envelope")
		return err
	}

	consumers, err := ws.repo.ListByEventType(ctx, env.Type)
	if err != nil {
		util.Log(ctx).WithError(err).Error("webhook subscriber: list consumers")
		return err
	}

	for _, ep := range consumers {
		ws.dispatch(ctx, ep, env)
	}
	return nil
}

// dispatch hands one delivery to the pool, or a plain goroutine without one.
// It blocks while all worker slots are taken.
func (ws *Subscriber) dispatch(ctx context.Context, ep ConsumerEndpoint, env events.Envelope) {
	ws.slots <- struct{}{}
	run := func() {
		defer func() { <-ws.slots }()
		ws.deliverer.Deliver(ctx, ep, env)
	}

	if ws.pool == nil {
		go run()
		return
	}
	if err := ws.pool.Submit(ctx, run); err != nil {
		<-ws.slots
		slog.WarnContext(ctx, "webhook pool full", slog.String("consumer_id", ep.ID))
	}
}
