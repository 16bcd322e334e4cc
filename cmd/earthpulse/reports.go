package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/horkydorky/Earth-Pulse/common/model"
)

func parseIndicators(ids []string) ([]model.Indicator, error) {
	out := make([]model.Indicator, 0, len(ids))
	for _, id := range ids {
		ind, err := model.ParseIndicator(id)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

func (a *app) regionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions [region_id]",
		Short: "List map regions, or show one region in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context) (any, error) {
				if len(args) == 1 {
					return a.svc.GetRegionDetails(ctx, model.Region(args[0]))
				}
				return a.svc.GetRegions(ctx)
			})
		},
	}
}

func (a *app) formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List report and export formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetReportFormats(ctx)
			})
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show API capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetAPIInfo(ctx)
			})
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API server's health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetHealth(ctx)
			})
		},
	}
}

// downloadSummary is printed after a report file has been saved.
type downloadSummary struct {
	ReportID    string `json:"report_id"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	Bytes       int    `json:"bytes"`
}

func (a *app) reportCmd() *cobra.Command {
	var (
		year       int
		indicators []string
		reportType string
		language   string
		download   bool
		out        string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Request generation of an environmental report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inds, err := parseIndicators(indicators)
			if err != nil {
				return err
			}
			req := &model.ReportRequest{
				ReportType: reportType,
				Year:       year,
				Region:     a.region(),
				Indicators: inds,
				Language:   language,
			}
			return a.call(cmd, func(ctx context.Context) (any, error) {
				resp, err := a.svc.GenerateReport(ctx, req)
				if err != nil || !download {
					return resp, err
				}
				dl, err := a.svc.DownloadReport(ctx, resp.ReportID)
				if err != nil {
					return nil, err
				}
				path := out
				if path == "" {
					path = dl.Filename
				}
				if path == "" {
					path = resp.ReportID + ".pdf"
				}
				if err := os.WriteFile(path, dl.Raw, 0o644); err != nil {
					return nil, fmt.Errorf("writing report: %w", err)
				}
				return downloadSummary{
					ReportID:    dl.ReportID,
					ContentType: dl.ContentType,
					Filename:    dl.Filename,
					Path:        path,
					Bytes:       len(dl.Raw),
				}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "fetch the generated report file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "where to save the downloaded report (default: server filename)")
	cmd.Flags().IntVar(&year, "year", 0, "report year (server default when unset)")
	cmd.Flags().StringSliceVar(&indicators, "indicators", nil, "indicators to include (default all)")
	cmd.Flags().StringVar(&reportType, "type", "", "report type, e.g. comprehensive")
	cmd.Flags().StringVar(&language, "language", "", "report language")
	return cmd
}

// exportSummary is printed when the payload went to a file.
type exportSummary struct {
	Format      model.ExportFormat `json:"format"`
	ContentType string             `json:"content_type"`
	Filename    string             `json:"filename"`
	Path        string             `json:"path"`
	Bytes       int                `json:"bytes"`
}

func (a *app) exportCmd() *cobra.Command {
	var (
		format     string
		out        string
		indicators []string
		start, end int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export indicator data as json, csv or xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inds, err := parseIndicators(indicators)
			if err != nil {
				return err
			}
			switch model.ExportFormat(format) {
			case model.ExportJSON, model.ExportCSV, model.ExportXLSX:
			default:
				return fmt.Errorf("unknown export format %q (valid: json, csv, xlsx)", format)
			}
			req := &model.ExportRequest{
				Format:     model.ExportFormat(format),
				Indicators: inds,
				Region:     a.region(),
				StartYear:  start,
				EndYear:    end,
			}

			ctx, cancel := a.requestContext(cmd)
			defer cancel()
			result, err := a.svc.ExportData(ctx, req)
			if err != nil {
				return err
			}

			if out == "" {
				if result.Document != nil {
					return printJSON(cmd, result.Document)
				}
				_, err := cmd.OutOrStdout().Write(result.Raw)
				return err
			}
			if err := os.WriteFile(out, result.Raw, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			return printJSON(cmd, exportSummary{
				Format:      result.Format,
				ContentType: result.ContentType,
				Filename:    result.Filename,
				Path:        out,
				Bytes:       len(result.Raw),
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(model.ExportJSON), "json, csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the raw payload to this file")
	cmd.Flags().StringSliceVar(&indicators, "indicators", []string{"ndvi", "glacier", "urban", "temperature"}, "indicators to export")
	cmd.Flags().IntVar(&start, "start", defaultStartYear, "first year")
	cmd.Flags().IntVar(&end, "end", defaultEndYear, "last year")
	return cmd
}
