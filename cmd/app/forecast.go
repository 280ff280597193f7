package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"DemandCast/internal/di"
	models "DemandCast/internal/domain/models"
	xhttp "DemandCast/pkg/http"

	"github.com/spf13/cobra"
)

type forecastOptions struct {
	requestPath string
	outputPath  string
}

func newForecastCmd(root *rootOptions) *cobra.Command {
	opts := &forecastOptions{}
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run one forecast request and print the result as JSON",
		Long: `Run one forecast request against the configured stores.

Examples:
  demandcast forecast --request request.json
  demandcast forecast --request - < request.json --output result.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readForecastRequest(cmd.InOrStdin(), opts.requestPath)
			if err != nil {
				return err
			}

			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			// stdout carries the result
			cfg.Logger.Output = "stderr"

			svc, cleanup, err := di.InitializeForecaster(cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer cleanup()

			out, err := svc.Forecast(cmd.Context(), *req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), opts.outputPath, out.Payload())
		},
	}
	cmd.Flags().StringVar(&opts.requestPath, "request", "", "forecast request JSON file, - for stdin")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

// readForecastRequest decodes and validates a ForecastConfig the same way the
// HTTP API does.
func readForecastRequest(stdin io.Reader, path string) (*models.ForecastConfig, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	req := &models.ForecastConfig{}
	if err := json.Unmarshal(b, req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if verr := xhttp.ValidateRequest(context.Background(), req); verr != nil {
		detail, _ := json.Marshal(verr)
		return nil, fmt.Errorf("invalid request: %s", detail)
	}
	return req, nil
}

func writeJSON(stdout io.Writer, path string, v interface{}) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
