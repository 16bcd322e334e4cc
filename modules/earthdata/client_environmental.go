package earthdata

import (
	"context"
	"fmt"
	"strconv"

	"github.com/horkydorky/Earth-Pulse/common/model"
)

// This file holds the /environmental endpoints.

// GetNDVIData calls /environmental/ndvi/{year}
func (c *earthDataClient) GetNDVIData(ctx context.Context, year int, region model.Region) (*model.NDVIData, error) {
	var out model.NDVIData
	if err := c.getIndicator(ctx, model.IndicatorNDVI, year, region, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGlacierData calls /environmental/glacier/{year}
func (c *earthDataClient) GetGlacierData(ctx context.Context, year int, region model.Region) (*model.GlacierData, error) {
	var out model.GlacierData
	if err := c.getIndicator(ctx, model.IndicatorGlacier, year, region, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUrbanData calls /environmental/urban/{year}
func (c *earthDataClient) GetUrbanData(ctx context.Context, year int, region model.Region) (*model.UrbanData, error) {
	var out model.UrbanData
	if err := c.getIndicator(ctx, model.IndicatorUrban, year, region, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTemperatureData calls /environmental/temperature/{year}
func (c *earthDataClient) GetTemperatureData(ctx context.Context, year int, region model.Region) (*model.TemperatureData, error) {
	var out model.TemperatureData
	if err := c.getIndicator(ctx, model.IndicatorTemperature, year, region, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *earthDataClient) getIndicator(ctx context.Context, indicator model.Indicator, year int, region model.Region, out interface{}) error {
	endpoint := fmt.Sprintf("environmental/%s/%d", indicator, year)
	return c.Request(ctx, endpoint, &RequestOptions{
		Params:    map[string]string{"region": string(region.OrDefault())},
		Operation: string(indicator),
	}, out)
}

// GetEnvironmentalSummary calls /environmental/summary
func (c *earthDataClient) GetEnvironmentalSummary(ctx context.Context, year int, region model.Region) (*model.EnvironmentalSummary, error) {
	var out model.EnvironmentalSummary
	err := c.Request(ctx, "environmental/summary", &RequestOptions{
		Params: map[string]string{
			"year":   strconv.Itoa(year),
			"region": string(region.OrDefault()),
		},
		Operation: "summary",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTemporalComparison calls /environmental/compare/temporal. Results keep the server's order.
func (c *earthDataClient) GetTemporalComparison(ctx context.Context, query model.TemporalQuery) ([]model.ComparisonResult, error) {
	var out []model.ComparisonResult
	err := c.Request(ctx, "environmental/compare/temporal", &RequestOptions{
		Params: map[string]string{
			"indicator":            string(query.Indicator),
			"region":               string(query.Region.OrDefault()),
			"start_year":           strconv.Itoa(query.StartYear),
			"end_year":             strconv.Itoa(query.EndYear),
			"include_intermediate": strconv.FormatBool(query.IncludeIntermediate),
		},
		Operation: "compare_temporal",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetIndicatorTrends calls /environmental/trends/{indicator}
func (c *earthDataClient) GetIndicatorTrends(ctx context.Context, indicator model.Indicator, region model.Region, startYear, endYear int) ([]model.TrendPoint, error) {
	var out []model.TrendPoint
	err := c.Request(ctx, fmt.Sprintf("environmental/trends/%s", indicator), &RequestOptions{
		Params: map[string]string{
			"region":     string(region.OrDefault()),
			"year_range": fmt.Sprintf("%d-%d", startYear, endYear),
		},
		Operation: "trends",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetIndicators calls /environmental/indicators
func (c *earthDataClient) GetIndicators(ctx context.Context) (*model.IndicatorCatalog, error) {
	var out model.IndicatorCatalog
	if err := c.Request(ctx, "environmental/indicators", &RequestOptions{Operation: "indicators"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
