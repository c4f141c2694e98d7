// Package erp wires the API server command.
package erp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/mailer"
	platformcmd "github.com/Anuraj-dev/student-erp/internal/platform/cmd"
	"github.com/Anuraj-dev/student-erp/internal/platform/timeouts"
	"github.com/Anuraj-dev/student-erp/internal/server"
	"github.com/Anuraj-dev/student-erp/internal/storage/sqlite"
)

// Config holds the API server command configuration.
type Config struct {
	Addr      string `env:"STUDENT_ERP_ADDR" envDefault:":8080"`
	DBPath    string `env:"STUDENT_ERP_DB_PATH" envDefault:"erp.db"`
	JWTSecret string `env:"STUDENT_ERP_JWT_SECRET"`
	Issuer    string `env:"STUDENT_ERP_JWT_ISSUER" envDefault:"student-erp"`
	SMTP      mailer.SMTPConfig
}

// ParseConfig loads env defaults and parses flags into a Config. The JWT
// secret is deliberately env-only so it never appears in process listings.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database file")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "Token issuer name")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the API server and blocks until the context is canceled or the
// listener fails.
func Run(ctx context.Context, cfg Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("STUDENT_ERP_JWT_SECRET is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	srv := server.New(server.Stores{
		Courses:     store,
		Students:    store,
		Staff:       store,
		Admissions:  store,
		Fees:        store,
		Library:     store,
		Hostels:     store,
		Exams:       store,
		Revocations: store,
		Outbox:      store,
	}, auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.Issuer,
	}, nil)
	defer srv.Hub().Close()

	go srv.RunMaintenance(ctx)

	if cfg.SMTP.Enabled() {
		sender, err := mailer.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return fmt.Errorf("configure smtp: %w", err)
		}
		go mailer.NewDispatcher(store, sender, nil).Run(ctx)
	} else {
		log.Printf("smtp not configured, outbox dispatch disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
