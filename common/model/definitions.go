package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ----------------------------------------------------------------------
// Enumerations
// ----------------------------------------------------------------------

// Indicator is one tracked environmental metric.
type Indicator string

const (
	IndicatorNDVI        Indicator = "ndvi"
	IndicatorGlacier     Indicator = "glacier"
	IndicatorUrban       Indicator = "urban"
	IndicatorTemperature Indicator = "temperature"
)

// Indicators lists every indicator in display order.
var Indicators = []Indicator{IndicatorNDVI, IndicatorGlacier, IndicatorUrban, IndicatorTemperature}

// ParseIndicator maps an indicator id such as "ndvi" to its Indicator.
func ParseIndicator(s string) (Indicator, error) {
	for _, ind := range Indicators {
		if string(ind) == s {
			return ind, nil
		}
	}
	return "", fmt.Errorf("unknown indicator %q (valid: ndvi, glacier, urban, temperature)", s)
}

// Region is a named geographic area used as a query dimension alongside year.
type Region string

const (
	RegionNepalHimalayas  Region = "nepal_himalayas"
	RegionKathmanduValley Region = "kathmandu_valley"
	RegionAnnapurna       Region = "annapurna_region"
	RegionEverest         Region = "everest_region"

	DefaultRegion = RegionNepalHimalayas
)

// OrDefault returns r, or DefaultRegion when r is empty.
func (r Region) OrDefault() Region {
	if r == "" {
		return DefaultRegion
	}
	return r
}

// DataSource is the provenance of a record.
type DataSource string

const (
	SourceMODIS    DataSource = "modis"
	SourceLandsat  DataSource = "landsat"
	SourceSentinel DataSource = "sentinel"
	SourceOther    DataSource = "other"
)

// Trend is the qualitative direction label the API attaches to a record.
// Values outside the constants below are passed through as-is.
type Trend string

const (
	TrendIncreasing  Trend = "increasing"
	TrendDecreasing  Trend = "decreasing"
	TrendStable      Trend = "stable"
	TrendExpanding   Trend = "expanding"
	TrendContracting Trend = "contracting"
	TrendWarming     Trend = "warming"
	TrendCooling     Trend = "cooling"
)

// ----------------------------------------------------------------------
// Indicator records
// ----------------------------------------------------------------------

// DataPoint is a single geolocated sample.
type DataPoint struct {
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	Value      float64   `json:"value"`
	Confidence *float64  `json:"confidence,omitempty"`
	Timestamp  Timestamp `json:"timestamp"`
}

// naiveLayout is how the API serializes timestamps that carry no zone.
// Fractional seconds are accepted by time.Parse without being in the layout.
const naiveLayout = "2006-01-02T15:04:05"

// Timestamp decodes RFC 3339 times as well as zone-less ones such as
// "2015-07-14T00:00:00", which are read as UTC. It encodes as RFC 3339.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	unquoted, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("timestamp %s: not a JSON string", s)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, unquoted); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(naiveLayout, unquoted)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", unquoted, err)
	}
	t.Time = parsed
	return nil
}

// NDVIData is vegetation index data for one year and region.
type NDVIData struct {
	Year                      int         `json:"year"`
	Region                    Region      `json:"region"`
	AverageNDVI               float64     `json:"average_ndvi"`
	MinNDVI                   float64     `json:"min_ndvi"`
	MaxNDVI                   float64     `json:"max_ndvi"`
	VegetationCoveragePercent float64     `json:"vegetation_coverage_percent"`
	DataPoints                []DataPoint `json:"data_points"`
	Source                    DataSource  `json:"source"`
	Trend                     Trend       `json:"trend,omitempty"`
}

// GlacierData is glacier coverage and retreat data.
type GlacierData struct {
	Year                int         `json:"year"`
	Region              Region      `json:"region"`
	GlacierAreaKm2      float64     `json:"glacier_area_km2"`
	IceThicknessM       *float64    `json:"ice_thickness_m,omitempty"`
	RetreatRateMPerYear *float64    `json:"retreat_rate_m_per_year,omitempty"`
	DataPoints          []DataPoint `json:"data_points"`
	Source              DataSource  `json:"source"`
	Trend               Trend       `json:"trend,omitempty"`
}

// UrbanData is urban expansion data.
type UrbanData struct {
	Year                int         `json:"year"`
	Region              Region      `json:"region"`
	UrbanAreaKm2        float64     `json:"urban_area_km2"`
	BuiltUpPercentage   float64     `json:"built_up_percentage"`
	PopulationEstimate  *int64      `json:"population_estimate,omitempty"`
	NightlightIntensity *float64    `json:"nightlight_intensity,omitempty"`
	DataPoints          []DataPoint `json:"data_points"`
	Source              DataSource  `json:"source"`
	Trend               Trend       `json:"trend,omitempty"`
}

// TemperatureData is land surface temperature data.
type TemperatureData struct {
	Year                int         `json:"year"`
	Region              Region      `json:"region"`
	AverageTemperatureC float64     `json:"average_temperature_c"`
	MinTemperatureC     float64     `json:"min_temperature_c"`
	MaxTemperatureC     float64     `json:"max_temperature_c"`
	HeatIslandEffect    *float64    `json:"heat_island_effect,omitempty"`
	DataPoints          []DataPoint `json:"data_points"`
	Source              DataSource  `json:"source"`
	Trend               Trend       `json:"trend,omitempty"`
}

// EnvironmentalSummary bundles all four indicators for one year and region.
type EnvironmentalSummary struct {
	Year            int              `json:"year"`
	Region          Region           `json:"region"`
	NDVIData        *NDVIData        `json:"ndvi_data,omitempty"`
	GlacierData     *GlacierData     `json:"glacier_data,omitempty"`
	UrbanData       *UrbanData       `json:"urban_data,omitempty"`
	TemperatureData *TemperatureData `json:"temperature_data,omitempty"`
}

// Clone methods return deep copies, so a caller may mutate its copy freely.
// Cloning a nil record returns nil.

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDataPoints(points []DataPoint) []DataPoint {
	if points == nil {
		return nil
	}
	out := make([]DataPoint, len(points))
	for i, p := range points {
		p.Confidence = clonePtr(p.Confidence)
		out[i] = p
	}
	return out
}

func (d *NDVIData) Clone() *NDVIData {
	if d == nil {
		return nil
	}
	c := *d
	c.DataPoints = cloneDataPoints(d.DataPoints)
	return &c
}

func (d *GlacierData) Clone() *GlacierData {
	if d == nil {
		return nil
	}
	c := *d
	c.IceThicknessM = clonePtr(d.IceThicknessM)
	c.RetreatRateMPerYear = clonePtr(d.RetreatRateMPerYear)
	c.DataPoints = cloneDataPoints(d.DataPoints)
	return &c
}

func (d *UrbanData) Clone() *UrbanData {
	if d == nil {
		return nil
	}
	c := *d
	c.PopulationEstimate = clonePtr(d.PopulationEstimate)
	c.NightlightIntensity = clonePtr(d.NightlightIntensity)
	c.DataPoints = cloneDataPoints(d.DataPoints)
	return &c
}

func (d *TemperatureData) Clone() *TemperatureData {
	if d == nil {
		return nil
	}
	c := *d
	c.HeatIslandEffect = clonePtr(d.HeatIslandEffect)
	c.DataPoints = cloneDataPoints(d.DataPoints)
	return &c
}

func (s *EnvironmentalSummary) Clone() *EnvironmentalSummary {
	if s == nil {
		return nil
	}
	c := *s
	c.NDVIData = s.NDVIData.Clone()
	c.GlacierData = s.GlacierData.Clone()
	c.UrbanData = s.UrbanData.Clone()
	c.TemperatureData = s.TemperatureData.Clone()
	return &c
}

// Validator is implemented by payloads that can check their own shape after decoding.
type Validator interface {
	Validate() error
}

var errMissingKey = errors.New("record is missing year or region")

func validateKey(year int, region Region) error {
	if year == 0 || region == "" {
		return errMissingKey
	}
	return nil
}

func (d *NDVIData) Validate() error        { return validateKey(d.Year, d.Region) }
func (d *GlacierData) Validate() error     { return validateKey(d.Year, d.Region) }
func (d *UrbanData) Validate() error       { return validateKey(d.Year, d.Region) }
func (d *TemperatureData) Validate() error { return validateKey(d.Year, d.Region) }

func (s *EnvironmentalSummary) Validate() error {
	if err := validateKey(s.Year, s.Region); err != nil {
		return err
	}
	var sections []Validator
	if s.NDVIData != nil {
		sections = append(sections, s.NDVIData)
	}
	if s.GlacierData != nil {
		sections = append(sections, s.GlacierData)
	}
	if s.UrbanData != nil {
		sections = append(sections, s.UrbanData)
	}
	if s.TemperatureData != nil {
		sections = append(sections, s.TemperatureData)
	}
	for _, v := range sections {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("summary section: %w", err)
		}
	}
	return nil
}

// ----------------------------------------------------------------------
// Comparison & trends
// ----------------------------------------------------------------------

// TemporalQuery selects a temporal comparison.
type TemporalQuery struct {
	Indicator           Indicator
	Region              Region
	StartYear           int
	EndYear             int
	IncludeIntermediate bool
}

// ComparisonResult compares an indicator between two years.
type ComparisonResult struct {
	ComparisonType   string    `json:"comparison_type"`
	Region           Region    `json:"region"`
	Indicator        Indicator `json:"indicator"`
	BaselineYear     *int      `json:"baseline_year,omitempty"`
	ComparisonYear   *int      `json:"comparison_year,omitempty"`
	BaselineValue    float64   `json:"baseline_value"`
	ComparisonValue  float64   `json:"comparison_value"`
	ChangeAmount     float64   `json:"change_amount"`
	ChangePercentage float64   `json:"change_percentage"`
	TrendSummary     string    `json:"trend_summary"`
	ImpactAssessment *string   `json:"impact_assessment,omitempty"`
}

// TrendPoint is one year of an indicator's history.
type TrendPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Trend Trend   `json:"trend,omitempty"`
}

// ----------------------------------------------------------------------
// Catalog & regions
// ----------------------------------------------------------------------

type IndicatorInfo struct {
	ID          Indicator `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	Source      string    `json:"source"`
	Range       string    `json:"range"`
}

type RegionInfo struct {
	ID          Region `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// IndicatorCatalog lists what the API can serve.
type IndicatorCatalog struct {
	Indicators []IndicatorInfo `json:"indicators"`
	Regions    []RegionInfo    `json:"regions"`
}

type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

type Bounds struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// RegionMapData describes one region for the map view.
type RegionMapData struct {
	RegionID    Region      `json:"region_id"`
	RegionName  string      `json:"region_name"`
	Center      LngLat      `json:"center"`
	Bounds      Bounds      `json:"bounds"`
	Coordinates [][]float64 `json:"coordinates"`
}

// RegionList is the /maps/regions payload.
type RegionList struct {
	Regions       []RegionMapData `json:"regions"`
	TotalCount    int             `json:"total_count"`
	DefaultRegion Region          `json:"default_region"`
}

// RegionDetails is the /maps/regions/{id} payload.
type RegionDetails struct {
	RegionID    Region      `json:"region_id"`
	RegionName  string      `json:"region_name"`
	Description string      `json:"description"`
	Area        struct {
		Km2         float64 `json:"km2"`
		Description string  `json:"description"`
	} `json:"area"`
	Population struct {
		Estimate    int64  `json:"estimate"`
		Description string `json:"description"`
	} `json:"population"`
	Elevation struct {
		Range       []float64 `json:"range"`
		Description string    `json:"description"`
	} `json:"elevation"`
	Climate struct {
		Zone        string `json:"zone"`
		Description string `json:"description"`
	} `json:"climate"`
	Center      LngLat      `json:"center"`
	Bounds      Bounds      `json:"bounds"`
	Coordinates [][]float64 `json:"coordinates"`
}

func (r *RegionDetails) Validate() error {
	if r.RegionID == "" {
		return errors.New("region details missing region_id")
	}
	return nil
}

// APIInfo is the /info payload.
type APIInfo struct {
	APIVersion         string            `json:"api_version"`
	Capabilities       []string          `json:"capabilities"`
	DataIndicators     map[string]string `json:"data_indicators"`
	GeographicCoverage []string          `json:"geographic_coverage"`
	IntegrationReady   bool              `json:"integration_ready"`
}

// ----------------------------------------------------------------------
// Reports & export
// ----------------------------------------------------------------------

// ReportRequest is the POST /reports/generate body. Zero fields are omitted
// so the server applies its own defaults.
type ReportRequest struct {
	ReportType    string      `json:"report_type,omitempty"`
	Year          int         `json:"year,omitempty"`
	Region        Region      `json:"region,omitempty"`
	Indicators    []Indicator `json:"indicators,omitempty"`
	IncludeCharts *bool       `json:"include_charts,omitempty"`
	IncludeMaps   *bool       `json:"include_maps,omitempty"`
	Language      string      `json:"language,omitempty"`
}

type ReportMetadata struct {
	ReportID    string      `json:"report_id"`
	GeneratedAt string      `json:"generated_at"`
	Version     string      `json:"version"`
	Region      Region      `json:"region"`
	Year        int         `json:"year"`
	Indicators  []Indicator `json:"indicators"`
	ReportType  string      `json:"report_type"`
	Pages       int         `json:"pages"`
	DataSource  string      `json:"data_source"`
}

// ReportResponse is the result of a report generation. DownloadURL is
// relative to the API host.
type ReportResponse struct {
	Status      string         `json:"status"`
	ReportID    string         `json:"report_id"`
	DownloadURL string         `json:"download_url"`
	Metadata    ReportMetadata `json:"metadata"`
	Preview     struct {
		Pages  int     `json:"pages"`
		SizeMB float64 `json:"size_mb"`
		Format string  `json:"format"`
	} `json:"preview"`
}

func (r *ReportResponse) Validate() error {
	if r.DownloadURL == "" {
		return errors.New("report response missing download_url")
	}
	return nil
}

// ReportFormats is the /reports/formats payload.
type ReportFormats struct {
	ReportFormats []FormatInfo `json:"report_formats"`
	DataFormats   []FormatInfo `json:"data_formats"`
}

type FormatInfo struct {
	Format      string `json:"format"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExportFormat is the encoding requested from /reports/export.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportRequest is the POST /reports/export body.
type ExportRequest struct {
	Format         ExportFormat `json:"format"`
	Indicators     []Indicator  `json:"indicators"`
	Region         Region       `json:"region,omitempty"`
	StartYear      int          `json:"start_year,omitempty"`
	EndYear        int          `json:"end_year,omitempty"`
	IncludeRawData *bool        `json:"include_raw_data,omitempty"`
}

// ExportDocument is the decoded body of a JSON export.
type ExportDocument struct {
	Metadata struct {
		ExportType  string      `json:"export_type"`
		Region      Region      `json:"region"`
		YearRange   string      `json:"year_range"`
		Indicators  []Indicator `json:"indicators"`
		DataPoints  int         `json:"data_points"`
		GeneratedAt string      `json:"generated_at"`
	} `json:"metadata"`
	Data []map[string]any `json:"data"`
}

// ExportResult carries an export payload. Document is set only for JSON exports.
type ExportResult struct {
	Format      ExportFormat
	ContentType string
	Filename    string
	Raw         []byte
	Document    *ExportDocument
}

// ReportDownload is a fetched report file.
type ReportDownload struct {
	ReportID    string
	ContentType string
	Filename    string
	Raw         []byte
}

// HealthStatus is the server's /health payload.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp Timestamp         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (h *HealthStatus) Validate() error {
	if h.Status == "" {
		return errors.New("health response is missing status")
	}
	return nil
}
