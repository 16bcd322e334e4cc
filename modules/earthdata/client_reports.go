package earthdata

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/horkydorky/Earth-Pulse/common/model"
)

// This file holds the /maps, /reports, /info and /health passthroughs. None of them are cached.

// GetRegions calls /maps/regions
func (c *earthDataClient) GetRegions(ctx context.Context) (*model.RegionList, error) {
	var out model.RegionList
	if err := c.Request(ctx, "maps/regions", &RequestOptions{Operation: "regions"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRegionDetails calls /maps/regions/{region_id}
func (c *earthDataClient) GetRegionDetails(ctx context.Context, region model.Region) (*model.RegionDetails, error) {
	var out model.RegionDetails
	endpoint := fmt.Sprintf("maps/regions/%s", url.PathEscape(string(region.OrDefault())))
	if err := c.Request(ctx, endpoint, &RequestOptions{Operation: "region_details"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateReport posts to /reports/generate
func (c *earthDataClient) GenerateReport(ctx context.Context, req *model.ReportRequest) (*model.ReportResponse, error) {
	if req == nil {
		req = &model.ReportRequest{}
	}
	var out model.ReportResponse
	err := c.Request(ctx, "reports/generate", &RequestOptions{
		Method:    http.MethodPost,
		Body:      req,
		Operation: "report_generate",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportData posts to /reports/export. JSON exports are decoded into
// ExportResult.Document; other formats only carry the raw payload.
func (c *earthDataClient) ExportData(ctx context.Context, req *model.ExportRequest) (*model.ExportResult, error) {
	if req == nil {
		return nil, fmt.Errorf("export request is required")
	}
	format := req.Format
	if format == "" {
		format = model.ExportJSON
	}
	body := *req
	body.Format = format

	opts := &RequestOptions{
		Method:    http.MethodPost,
		Body:      &body,
		Operation: "report_export",
	}
	if format == model.ExportCSV {
		opts.Headers = map[string]string{"Accept": "text/csv"}
	}

	const endpoint = "reports/export"
	resp, err := c.Do(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}

	result := &model.ExportResult{
		Format:      format,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    attachmentFilename(resp.Header.Get("Content-Disposition")),
		Raw:         resp.Body,
	}
	if format == model.ExportJSON {
		var doc model.ExportDocument
		if err := decodeJSON(endpoint, resp.Body, &doc); err != nil {
			return nil, err
		}
		result.Document = &doc
	}
	return result, nil
}

// GetReportFormats calls /reports/formats
func (c *earthDataClient) GetReportFormats(ctx context.Context) (*model.ReportFormats, error) {
	var out model.ReportFormats
	if err := c.Request(ctx, "reports/formats", &RequestOptions{Operation: "report_formats"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAPIInfo calls /info
func (c *earthDataClient) GetAPIInfo(ctx context.Context) (*model.APIInfo, error) {
	var out model.APIInfo
	if err := c.Request(ctx, "info", &RequestOptions{Operation: "info"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadReport fetches a generated report from /reports/download/{report_id}.
func (c *earthDataClient) DownloadReport(ctx context.Context, reportID string) (*model.ReportDownload, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report id is required")
	}
	endpoint := fmt.Sprintf("reports/download/%s", url.PathEscape(reportID))
	resp, err := c.Do(ctx, endpoint, &RequestOptions{
		Headers:   map[string]string{"Accept": "application/pdf"},
		Operation: "report_download",
	})
	if err != nil {
		return nil, err
	}
	return &model.ReportDownload{
		ReportID:    reportID,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    attachmentFilename(resp.Header.Get("Content-Disposition")),
		Raw:         resp.Body,
	}, nil
}

// GetHealth calls /health, which is served at the root rather than under /api/{version}.
func (c *earthDataClient) GetHealth(ctx context.Context) (*model.HealthStatus, error) {
	var out model.HealthStatus
	err := c.Request(ctx, "health", &RequestOptions{Operation: "health", Unversioned: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func attachmentFilename(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
