package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/api"
	"github.com/contractorpay/invoice-reconciler/internal/app"
	"github.com/contractorpay/invoice-reconciler/internal/tool"
)

// MCP server over stdio. stdout carries the protocol, so logs go to stderr.
func main() {
	_ = godotenv.Load()

	log := logrus.StandardLogger()
	log.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := app.LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, config, app.Options{}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize tools")
	}
	defer a.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "invoice-reconciler",
		Version: api.Version,
	}, nil)
	tool.NewInvoices(a.Pipeline, a.Ledger, log).Register(server)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("MCP server stopped")
	}
}
