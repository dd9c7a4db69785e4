// Package api exposes the inbound HTTP surface of OrderGate: the WhatsApp
// webhook endpoints and a health probe. Run wires the store, messaging
// provider, collaborator clients, engine, and background sweep together
// and serves until interrupted.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/tablelink/ordergate/internal/catalog"
	"github.com/tablelink/ordergate/internal/engine"
	"github.com/tablelink/ordergate/internal/messaging"
	"github.com/tablelink/ordergate/internal/orderapi"
	"github.com/tablelink/ordergate/internal/profile"
	"github.com/tablelink/ordergate/internal/scheduler"
	"github.com/tablelink/ordergate/internal/session"
	"github.com/tablelink/ordergate/internal/store"
	"github.com/tablelink/ordergate/internal/whatsapp"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultSweepSchedule runs the idle-session sweep at the top of every
// hour.
const DefaultSweepSchedule = "0 * * * *"

// Opts holds the API server configuration.
type Opts struct {
	Addr            string
	DSN             string
	VerifyToken     string
	AppSecret       string
	AccessToken     string
	Provider        string // "cloudapi" (default), "twilio", "whatsmeow"
	CatalogBaseURL  string
	CatalogAPIKey   string
	OrderAPIBaseURL string
	SweepSchedule   string
	WhatsmeowDSN    string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithDSN sets the database connection string. Empty keeps state in
// memory.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithVerifyToken sets the webhook subscription verify token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithAppSecret sets the webhook signature secret.
func WithAppSecret(secret string) Option {
	return func(o *Opts) { o.AppSecret = secret }
}

// WithAccessToken sets the Cloud API access token.
func WithAccessToken(token string) Option {
	return func(o *Opts) { o.AccessToken = token }
}

// WithMessagingProvider selects the outbound messaging provider.
func WithMessagingProvider(name string) Option {
	return func(o *Opts) { o.Provider = name }
}

// WithCatalogBaseURL sets the catalog collaborator base URL.
func WithCatalogBaseURL(u string) Option {
	return func(o *Opts) { o.CatalogBaseURL = u }
}

// WithCatalogAPIKey sets the catalog collaborator API key.
func WithCatalogAPIKey(k string) Option {
	return func(o *Opts) { o.CatalogAPIKey = k }
}

// WithOrderAPIBaseURL sets the order collaborator base URL.
func WithOrderAPIBaseURL(u string) Option {
	return func(o *Opts) { o.OrderAPIBaseURL = u }
}

// WithSweepSchedule sets the cron expression for the idle-session sweep.
func WithSweepSchedule(expr string) Option {
	return func(o *Opts) { o.SweepSchedule = expr }
}

// WithWhatsmeowDSN sets the device store DSN for the whatsmeow provider.
func WithWhatsmeowDSN(dsn string) Option {
	return func(o *Opts) { o.WhatsmeowDSN = dsn }
}

// Server holds the wired components behind the HTTP handlers.
type Server struct {
	opts   Opts
	engine *engine.Engine
}

// Run builds the full service from options and serves until SIGINT or
// SIGTERM.
func Run(options ...Option) error {
	opts := Opts{Addr: DefaultAddr, SweepSchedule: DefaultSweepSchedule}
	for _, opt := range options {
		opt(&opts)
	}

	st, err := openStore(opts.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	msgSvc, err := buildMessaging(st, opts)
	if err != nil {
		return err
	}

	catalogClient, err := catalog.NewClient(
		catalog.WithBaseURL(opts.CatalogBaseURL),
		catalog.WithAPIKey(opts.CatalogAPIKey),
	)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}
	orderClient, err := orderapi.NewClient(orderapi.WithBaseURL(opts.OrderAPIBaseURL))
	if err != nil {
		return fmt.Errorf("failed to create order client: %w", err)
	}

	sessions := session.NewManager(st)
	profiles := profile.NewManager(st, msgSvc)
	eng := engine.NewEngine(sessions, st, msgSvc, catalogClient, orderClient, profiles)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob(opts.SweepSchedule, func() {
		deleted, err := sessions.Sweep()
		if err != nil {
			slog.Error("Session sweep failed", "error", err)
			return
		}
		if deleted > 0 {
			slog.Info("Session sweep completed", "deleted", deleted)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	srv := &Server{opts: opts, engine: eng}

	router := mux.NewRouter()
	router.HandleFunc("/webhook/whatsapp", srv.handleWebhookVerification).Methods(http.MethodGet)
	router.HandleFunc("/webhook/whatsapp", srv.handleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	httpServer := &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("OrderGate API listening", "addr", opts.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}

// openStore selects a persistence backend from the DSN: postgres when it
// looks like a PostgreSQL connection string, SQLite for paths, memory when
// empty.
func openStore(dsn string) (store.Store, error) {
	if dsn == "" {
		slog.Warn("No DSN configured, using in-memory store; state is lost on restart")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// buildMessaging selects the outbound provider. The Cloud API provider
// resolves per-business credentials from the store; Twilio and whatsmeow
// degrade interactive prompts to numbered text.
func buildMessaging(st store.Store, opts Opts) (messaging.Service, error) {
	switch opts.Provider {
	case "twilio":
		return messaging.NewTwilioService()
	case "whatsmeow":
		client, err := whatsapp.NewClient(whatsapp.WithDBDSN(opts.WhatsmeowDSN))
		if err != nil {
			return nil, fmt.Errorf("failed to create whatsmeow client: %w", err)
		}
		return messaging.NewMeowService(client), nil
	default:
		creds := func(businessID string) (messaging.CloudAPICredentials, error) {
			biz, err := st.GetBusiness(businessID)
			if err != nil {
				return messaging.CloudAPICredentials{}, err
			}
			if biz == nil || biz.WAPhoneID == "" {
				return messaging.CloudAPICredentials{}, fmt.Errorf("no WhatsApp number configured for business %s", businessID)
			}
			return messaging.CloudAPICredentials{
				AccessToken:   opts.AccessToken,
				PhoneNumberID: biz.WAPhoneID,
			}, nil
		}
		return messaging.NewCloudAPIService(creds), nil
	}
}
