package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/horkydorky/Earth-Pulse/common/model"
	"github.com/horkydorky/Earth-Pulse/modules/earthdata"
)

const (
	defaultStartYear = 2000
	defaultEndYear   = 2025
)

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year <= 0 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}

func (a *app) indicatorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indicator <ndvi|glacier|urban|temperature> <year>",
		Short: "Fetch one indicator for a year",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			indicator, err := model.ParseIndicator(args[0])
			if err != nil {
				return err
			}
			year, err := parseYear(args[1])
			if err != nil {
				return err
			}
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetIndicatorData(ctx, indicator, year, a.region())
			})
		},
	}
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <year>",
		Short: "Fetch all indicators for a year in one call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetEnvironmentalSummary(ctx, year, a.region())
			})
		},
	}
}

func (a *app) compareCmd() *cobra.Command {
	var start, end int
	var intermediate bool
	cmd := &cobra.Command{
		Use:   "compare <indicator>",
		Short: "Compare an indicator between two years",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indicator, err := model.ParseIndicator(args[0])
			if err != nil {
				return err
			}
			query := model.TemporalQuery{
				Indicator:           indicator,
				Region:              a.region(),
				StartYear:           start,
				EndYear:             end,
				IncludeIntermediate: intermediate,
			}
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetTemporalComparison(ctx, query)
			})
		},
	}
	cmd.Flags().IntVar(&start, "start", defaultStartYear, "baseline year")
	cmd.Flags().IntVar(&end, "end", defaultEndYear, "comparison year")
	cmd.Flags().BoolVar(&intermediate, "intermediate", false, "include years between start and end")
	return cmd
}

func (a *app) trendsCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "trends <indicator>",
		Short: "Fetch the yearly trend series for an indicator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indicator, err := model.ParseIndicator(args[0])
			if err != nil {
				return err
			}
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetIndicatorTrends(ctx, indicator, a.region(), from, to)
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", defaultStartYear, "first year")
	cmd.Flags().IntVar(&to, "to", defaultEndYear, "last year")
	return cmd
}

func (a *app) indicatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indicators",
		Short: "List supported indicators and regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context) (any, error) {
				return a.svc.GetIndicators(ctx)
			})
		},
	}
}

// dashboardView is what the dashboard command prints.
type dashboardView struct {
	Year       int                     `json:"year"`
	Region     model.Region            `json:"region"`
	Indicators map[model.Indicator]any `json:"indicators"`
	Cache      earthdata.CacheStatus   `json:"cache"`
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard <year>",
		Short: "Prefetch all four indicators and show the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			region := a.region()
			return a.call(cmd, func(ctx context.Context) (any, error) {
				data, err := a.svc.PrefetchIndicators(ctx, year, region)
				if err != nil {
					return nil, err
				}
				return dashboardView{
					Year:       year,
					Region:     region.OrDefault(),
					Indicators: data,
					Cache:      a.svc.GetCacheStatus(),
				}, nil
			})
		},
	}
}
