package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"finrep.org/internal/audit"
	"finrep.org/internal/authn"
	"finrep.org/internal/authz"
	"finrep.org/internal/httpapi"
	"finrep.org/internal/ids"
	"finrep.org/internal/obs"
	"finrep.org/internal/org"
	"finrep.org/internal/report"
	"finrep.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("FINREP_PG_DSN")
	if dsn == "" {
		log.Fatal("FINREP_PG_DSN is required")
	}
	secret := os.Getenv("FINREP_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("FINREP_TOKEN_SECRET is required")
	}
	addr := os.Getenv("FINREP_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	scope := authz.NewScopeResolver(store)
	auth := authz.NewAuthorizer(scope)
	recorder, err := audit.NewRecorder(store)
	if err != nil {
		log.Fatalf("audit recorder: %v", err)
	}
	orgs, err := org.NewService(store, auth, recorder)
	if err != nil {
		log.Fatalf("org service: %v", err)
	}
	reports, err := report.NewService(store, auth, recorder)
	if err != nil {
		log.Fatalf("report service: %v", err)
	}

	var authnOpts []authn.Option
	if issuer := os.Getenv("FINREP_TOKEN_ISSUER"); issuer != "" {
		authnOpts = append(authnOpts, authn.WithIssuer(issuer))
	}
	if raw := os.Getenv("FINREP_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("FINREP_TOKEN_TTL: %v", err)
		}
		authnOpts = append(authnOpts, authn.WithTokenTTL(ttl))
	}
	tokens, err := authn.NewService(secret, orgs, authnOpts...)
	if err != nil {
		log.Fatalf("authn service: %v", err)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := bootstrapAdmin(bootCtx, store, recorder); err != nil {
		bootCancel()
		log.Fatalf("bootstrap admin: %v", err)
	}
	bootCancel()

	api := httpapi.New(httpapi.Config{
		Ready:   httpapi.ReadyProbe{Pinger: store},
		Version: version,
		Authn:   tokens,
		Authz:   auth,
		Reports: reports,
		Orgs:    orgs,
		Auditor: recorder,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("starting finrep-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("stopped")
}

// bootstrapAdmin creates the first admin account from env so a fresh
// deployment has a way in. No-op when unset or when the account exists.
func bootstrapAdmin(ctx context.Context, store *pg.Store, recorder *audit.Recorder) error {
	email := strings.TrimSpace(strings.ToLower(os.Getenv("FINREP_BOOTSTRAP_ADMIN_EMAIL")))
	password := os.Getenv("FINREP_BOOTSTRAP_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	if _, err := store.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, org.ErrNotFound) {
		return err
	}
	hash, err := org.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u := org.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         authz.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	entry := audit.NewEntry(ctx, "user.create", "user", u.ID, authz.Actor{Email: "system"}, "bootstrap admin")
	if err := store.CreateUser(ctx, &u, &entry); err != nil {
		if errors.Is(err, org.ErrConflict) {
			return nil
		}
		return err
	}
	recorder.Emit(entry)
	log.Printf("bootstrapped admin account %s", email)
	return nil
}
