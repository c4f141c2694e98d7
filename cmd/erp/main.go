package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	erpcmd "github.com/Anuraj-dev/student-erp/internal/cmd/erp"
	platformcmd "github.com/Anuraj-dev/student-erp/internal/platform/cmd"
	"github.com/Anuraj-dev/student-erp/internal/platform/config"
)

func main() {
	cfg, err := erpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[ERP] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceERP, func(ctx context.Context) error {
		return erpcmd.Run(ctx, cfg)
	})
	if err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
