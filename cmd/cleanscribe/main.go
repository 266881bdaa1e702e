package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"

	csconfig "github.com/cleanscribe/cleanscribe/config"
	"github.com/cleanscribe/cleanscribe/internal/httputil"
	"github.com/cleanscribe/cleanscribe/internal/ingest"
	"github.com/cleanscribe/cleanscribe/internal/store"
	"github.com/cleanscribe/cleanscribe/pkg/aliasrule"
	"github.com/cleanscribe/cleanscribe/pkg/events"
	"github.com/cleanscribe/cleanscribe/pkg/hooks"
	"github.com/cleanscribe/cleanscribe/pkg/transcript"
	"github.com/cleanscribe/cleanscribe/pkg/webhook"
	webhookapi "github.com/cleanscribe/cleanscribe/pkg/webhook/api"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[csconfig.CleanscribeConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("cleanscribe"),
		frame.WithRegisterServerOauth2Client(),
		frame.WithDatastore(),
		frame.WithRegisterPublisher(eventRef, eventURL),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	authenticator := srv.SecurityManager().GetAuthenticator(ctx)

	pub := events.NewPublisher(srv.QueueManager(), "cleanscribe", eventRef)

	dbPool := srv.DatastoreManager().GetPool(ctx, "__default__pool_name__")
	recRepo := store.NewRepository(dbPool)
	whRepo := webhook.NewRepository(dbPool)

	whDeliverer := webhook.NewDeliverer(whRepo, webhook.DelivererConfig{
		MaxRetries:        cfg.WebhookMaxRetries,
		TimeoutSec:        cfg.WebhookTimeoutSec,
		BackoffInitialSec: cfg.WebhookBackoffSec,
		BackoffMaxSec:     cfg.WebhookBackoffMax,
		CBFailThreshold:   cfg.CBFailThreshold,
		CBResetTimeoutSec: cfg.CBResetTimeoutSec,
	}, pool)
	whSubscriber := webhook.NewSubscriber(whRepo, whDeliverer, pool, cfg.WebhookWorkers)

	rules := aliasrule.NewLoader(cfg.AliasRuleDir)
	if _, err := rules.LoadAll(); err != nil {
		slog.WarnContext(ctx, "loading alias rules", slog.String("error", err.Error()))
	}
	go func() {
		if err := rules.WatchAndReload(ctx.Done()); err != nil {
			slog.WarnContext(ctx, "alias rule watcher stopped", slog.String("error", err.Error()))
		}
	}()

	engine := transcript.New(
		transcript.WithMaxSpeakers(cfg.MaxSpeakers),
		transcript.WithMaxPhraseLen(cfg.MaxPhraseLen),
	)

	ingestHandler := ingest.NewHandler(recRepo, pub, engine, rules, ingest.Config{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		MaxSegmentCount: cfg.MaxSegmentCount,
		DefaultRuleSet:  cfg.DefaultRuleSet,
		EnrichHook: hooks.HookConfig{
			URL:        cfg.EnrichHookURL,
			AuthType:   cfg.EnrichHookAuthType,
			AuthSecret: cfg.EnrichHookSecret,
			TimeoutSec: cfg.EnrichHookTimeoutSec,
		},
	})
	ingestHandler.SetEventStream(pub)
	if cfg.EnrichHookURL != "" {
		ingestHandler.SetEnricher(hooks.NewExecutor(pub))
	}

	whHandler := webhookapi.NewHandler(whRepo, pub)

	apiMux := http.NewServeMux()
	ingestHandler.RegisterRoutes(apiMux)
	whHandler.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", httputil.AuthenticatedMiddleware(httputil.LoggingMiddleware(apiMux), authenticator))

	srv.Init(ctx,
		frame.WithRegisterSubscriber(eventRef+".webhooks", eventURL, whSubscriber),
		frame.WithHTTPHandler(httputil.H2CHandler(mux)),
	)

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
