package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/contractorpay/invoice-reconciler/internal/app"
	"github.com/contractorpay/invoice-reconciler/internal/auth"
	"github.com/contractorpay/invoice-reconciler/internal/ledger"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/reconcile"
	"github.com/contractorpay/invoice-reconciler/internal/services"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "reconcile",
		Short:         "Extract contractor invoices and reconcile them against a payment ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "service config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline steps to stderr")

	cmd.AddCommand(
		newExtractCmd(opts),
		newMatchCmd(opts),
		newLedgerCmd(),
		newHashPasswordCmd(),
	)
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(logrus.WarnLevel)
	if o.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// build creates the pipeline with the given ledger file, which may be empty.
func (o *rootOptions) build(cmd *cobra.Command, ledgerPath string) (*app.App, error) {
	config, err := app.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if ledgerPath != "" {
		config.LedgerPath = ledgerPath
	}
	return app.Build(cmd.Context(), config, app.Options{}, o.logger(cmd))
}

func readDocument(path string, handwritten bool) (models.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RawDocument{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return models.RawDocument{
		Bytes:         data,
		Filename:      filepath.Base(path),
		IsHandwritten: handwritten,
	}, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var handwritten bool
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the fields extracted from an invoice as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], handwritten)
			if err != nil {
				return err
			}
			a, err := opts.build(cmd, "")
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Pipeline.Extract(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&handwritten, "handwritten", false, "treat the image as handwritten")
	return cmd
}

// matchOutput is what the match command prints.
type matchOutput struct {
	Result  *models.ExtractionResult `json:"result"`
	Verdict models.MatchVerdict      `json:"verdict"`
	Review  *services.ReviewResult   `json:"review"`
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var (
		ledgerPath  string
		handwritten bool
	)
	cmd := &cobra.Command{
		Use:   "match FILE",
		Short: "Extract an invoice and reconcile it against a ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], handwritten)
			if err != nil {
				return err
			}
			a, err := opts.build(cmd, ledgerPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Pipeline.Extract(cmd.Context(), doc)
			if err != nil {
				return err
			}
			entries, err := a.Ledger.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			verdict := reconcile.NewMatcher(opts.logger(cmd)).Match(res, entries)
			review := services.NewReviewer().Review(res, &verdict)
			res.Warnings = review.Messages()

			return writeJSON(cmd.OutOrStdout(), matchOutput{Result: res, Verdict: verdict, Review: review})
		},
	}
	cmd.Flags().StringVarP(&ledgerPath, "ledger", "l", "", "ledger YAML file (default: ledger_path from config)")
	cmd.Flags().BoolVar(&handwritten, "handwritten", false, "treat the image as handwritten")
	return cmd
}

func newLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger FILE",
		Short: "Print a ledger file as per-staff entries, expanding shared tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ledger.LoadFile(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for auth.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
