package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/html2pdf/pool/internal/config"
	"github.com/html2pdf/pool/internal/convert"
	"github.com/html2pdf/pool/internal/pdfopts"
	"github.com/html2pdf/pool/internal/poolsingleton"
)

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:                   "html2pdf <html-path> [<pdf-path> [<browser-path>]]",
		Short:                 "Convert an HTML file to PDF using a pooled headless browser",
		Args:                  cobra.RangeArgs(1, 3),
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, configPath)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML configuration file")
	cmd.AddCommand(newServeCommand())

	return cmd
}

func runConvert(cmd *cobra.Command, args []string, configPath string) error {
	htmlPath := args[0]
	pdfPath := defaultOutputPath(htmlPath)
	if len(args) >= 2 {
		pdfPath = args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("html2pdf: %w", err)
	}
	if len(args) == 3 {
		cfg.ChromePath = args[2]
	}

	if err := poolsingleton.Configure(*cfg); err != nil && err != poolsingleton.ErrAlreadyConfigured {
		return fmt.Errorf("html2pdf: %w", err)
	}

	pool := convert.PoolAdapter{Pool: poolsingleton.Get()}
	reg := poolsingleton.Metrics()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := convert.ConvertToFile(ctx, pool, convert.Input{FilePath: htmlPath}, pdfPath, pdfopts.Default(), reg, nil); err != nil {
		return fmt.Errorf("html2pdf: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", pdfPath)
	return nil
}

func defaultOutputPath(htmlPath string) string {
	ext := filepath.Ext(htmlPath)
	base := strings.TrimSuffix(htmlPath, ext)
	return base + ".pdf"
}
