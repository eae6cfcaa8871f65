// Package registry fetches newly registered companies from the
// Handelsregister.ai search API. The preferred path queries by WZ2025
// industry classification codes; a legacy path searches by company-name
// text queries. Both paths deduplicate by entity id across batches and
// drop records without a usable business purpose, so the triage engine
// only ever sees classifiable candidates.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"golang.org/x/time/rate"

	"github.com/linnemanlabs/scout/internal/triage"
)

const (
	defaultBaseURL = "https://handelsregister.ai/api/v1"

	// minPurposeLen mirrors the pre-filter's hard-skip threshold.
	// Records below it are unclassifiable and not worth fetching.
	minPurposeLen = 30

	defaultBatchDelay = 300 * time.Millisecond
)

// IndustryCode is one WZ2025 classification code worth scanning.
type IndustryCode struct {
	Code        string
	Description string
}

// DeepTechCodes are the WZ2025 codes with high deep-tech signal:
// industrial hardware, cleantech, deep-tech software, R&D and aerospace.
var DeepTechCodes = []IndustryCode{
	{Code: "28.99.1", Description: "Industrieroboter"},
	{Code: "28.41.0", Description: "Werkzeugmaschinen"},
	{Code: "28.12.0", Description: "Hydraulik/Pneumatik"},
	{Code: "26.51.1", Description: "Mess/Kontroll-Instrumente"},
	{Code: "26.51.3", Description: "Prüfmaschinen"},
	{Code: "26.70.1", Description: "Optische Instrumente"},
	{Code: "26.12.0", Description: "Leiterplatten"},
	{Code: "26.11.9", Description: "Elektronische Bauelemente"},
	{Code: "27.20.0", Description: "Batterien/Akkumulatoren"},
	{Code: "26.11.1", Description: "Solarzellen/Solarmodule"},
	{Code: "27.11.2", Description: "Transformatoren/Stromrichter"},
	{Code: "27.12.0", Description: "Elektrizitätsverteilung"},
	{Code: "28.21.2", Description: "Wärmepumpen"},
	{Code: "62.10.4", Description: "KI/ML Entwicklung"},
	{Code: "58.29.0", Description: "Sonstige Software"},
	{Code: "72.10.2", Description: "Ingenieur-F&E"},
	{Code: "30.31.0", Description: "Luft-/Raumfahrzeugbau"},
}

// LegacyQueries are the name-heuristic searches used before industry-code
// filtering was available on the API.
var LegacyQueries = []string{
	"Software GmbH",
	"Tech GmbH",
	"Technologie GmbH",
	"KI GmbH",
	"AI GmbH",
	"Robotik GmbH",
	"Automation GmbH",
	"Data GmbH",
	"Biotech GmbH",
	"Medtech GmbH",
	"Sensor GmbH",
	"Digital GmbH",
	"Cyber GmbH",
	"Cloud GmbH",
	"Energie GmbH",
	"Innovation GmbH",
	"Labs GmbH",
	"Research GmbH",
}

// Config controls how a Client assembles its candidate set.
type Config struct {
	// APIKey authenticates against the registry API. Required.
	APIKey string

	// BaseURL overrides the production endpoint, mainly for tests.
	// Empty means the public API.
	BaseURL string

	// DateFrom restricts industry-code searches to companies registered
	// on or after this date (YYYY-MM-DD).
	DateFrom string

	// PerCodeLimit caps results per industry code (or per legacy query).
	PerCodeLimit int

	// Codes to scan. Empty means DeepTechCodes.
	Codes []IndustryCode

	// Legacy switches to the name-query path instead of industry codes.
	Legacy bool

	// QueriesPerSearch limits how many legacy queries run per fetch, to
	// conserve API credits. 0 means all of LegacyQueries.
	QueriesPerSearch int

	// MaxCompanies caps the legacy path's total yield. 0 means no cap.
	MaxCompanies int

	// MinRegistrationDate drops legacy results registered before this
	// time. Zero means no age filter.
	MinRegistrationDate time.Time

	// BatchDelay paces calls between batches. <= 0 falls back to
	// defaultBatchDelay.
	BatchDelay time.Duration
}

// Client queries the registry feed and implements triage.Source.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
	limiter    *rate.Limiter
}

// New creates a registry client. The logger may be nil.
func New(cfg Config, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	delay := cfg.BatchDelay
	if delay <= 0 {
		delay = defaultBatchDelay
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Wire types for the search API. Only the consumed fields are modeled.

type wireCompany struct {
	EntityID         string `json:"entity_id"`
	Name             string `json:"name"`
	LegalForm        string `json:"legal_form"`
	RegistrationDate string `json:"registration_date"`
	Purpose          string `json:"purpose"`
	Address          struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"address"`
	Registration struct {
		Court          string `json:"court"`
		RegisterType   string `json:"register_type"`
		RegisterNumber string `json:"register_number"`
	} `json:"registration"`
}

type searchResponse struct {
	Results []wireCompany `json:"results"`
	Total   int           `json:"total"`
	Meta    struct {
		RequestCreditCost int `json:"request_credit_cost"`
		CreditsRemaining  int `json:"credits_remaining"`
	} `json:"meta"`
}

// Fetch pulls the candidate set, deduplicated by entity id across
// batches. A single failing batch is logged and skipped; Fetch only
// fails when the run is canceled.
func (c *Client) Fetch(ctx context.Context) ([]triage.Company, error) {
	if c.cfg.Legacy {
		return c.fetchByQueries(ctx)
	}
	return c.fetchByCodes(ctx)
}

func (c *Client) fetchByCodes(ctx context.Context) ([]triage.Company, error) {
	codes := c.cfg.Codes
	if len(codes) == 0 {
		codes = DeepTechCodes
	}

	seen := make(map[string]struct{})
	var companies []triage.Company

	for _, wz := range codes {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch canceled: %w", err)
		}

		resp, err := c.searchByCode(ctx, wz.Code)
		if err != nil {
			c.logger.Error(ctx, err, "industry code batch failed", "code", wz.Code)
			continue
		}

		added := 0
		for i := range resp.Results {
			co := &resp.Results[i]
			if _, dup := seen[co.EntityID]; dup {
				continue
			}
			seen[co.EntityID] = struct{}{}
			if len(co.Purpose) < minPurposeLen {
				continue
			}
			companies = append(companies, transform(co))
			added++
		}

		c.logger.Info(ctx, "fetched industry code batch",
			"code", wz.Code,
			"description", wz.Description,
			"total", resp.Total,
			"added", added,
			"credits_remaining", resp.Meta.CreditsRemaining,
		)
	}

	c.logger.Info(ctx, "feed fetch complete", "companies", len(companies))
	return companies, nil
}

func (c *Client) fetchByQueries(ctx context.Context) ([]triage.Company, error) {
	queries := LegacyQueries
	if n := c.cfg.QueriesPerSearch; n > 0 && n < len(queries) {
		queries = queries[:n]
	}

	seen := make(map[string]struct{})
	var companies []triage.Company

	for _, q := range queries {
		if c.cfg.MaxCompanies > 0 && len(companies) >= c.cfg.MaxCompanies {
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch canceled: %w", err)
		}

		resp, err := c.search(ctx, q)
		if err != nil {
			c.logger.Error(ctx, err, "search batch failed", "query", q)
			continue
		}

		for i := range resp.Results {
			co := &resp.Results[i]
			if _, dup := seen[co.EntityID]; dup {
				continue
			}
			seen[co.EntityID] = struct{}{}
			if len(co.Purpose) < minPurposeLen {
				continue
			}
			if !c.cfg.MinRegistrationDate.IsZero() && tooOld(co.RegistrationDate, c.cfg.MinRegistrationDate) {
				continue
			}
			// Corporations only on this path.
			if co.Registration.RegisterType != "HRB" {
				continue
			}
			companies = append(companies, transform(co))
			if c.cfg.MaxCompanies > 0 && len(companies) >= c.cfg.MaxCompanies {
				break
			}
		}

		c.logger.Info(ctx, "fetched search batch", "query", q, "companies", len(companies))
	}

	c.logger.Info(ctx, "feed fetch complete", "companies", len(companies))
	return companies, nil
}

func (c *Client) searchByCode(ctx context.Context, code string) (*searchResponse, error) {
	limit := c.cfg.PerCodeLimit
	if limit <= 0 {
		limit = 100
	}
	dateFrom := c.cfg.DateFrom
	if dateFrom == "" {
		dateFrom = "2025-01-01"
	}

	params := url.Values{}
	params.Set("filters[industry_code]", code)
	params.Set("filters[industry_scheme]", "WZ2025")
	params.Set("filters[registration_date_from]", dateFrom)
	params.Set("limit", strconv.Itoa(limit))

	return c.doSearch(ctx, params)
}

func (c *Client) search(ctx context.Context, query string) (*searchResponse, error) {
	limit := c.cfg.PerCodeLimit
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	return c.doSearch(ctx, params)
}

func (c *Client) doSearch(ctx context.Context, params url.Values) (*searchResponse, error) {
	reqURL := c.baseURL + "/search-organizations?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}
	return &out, nil
}

// transform maps a raw feed record to the internal company shape,
// filling registry quirks (missing legal form, empty city) with the
// conventional defaults.
func transform(co *wireCompany) triage.Company {
	out := triage.Company{
		ID:               co.EntityID,
		Name:             co.Name,
		LegalForm:        co.LegalForm,
		City:             co.Address.City,
		State:            co.Address.State,
		RegistrationDate: co.RegistrationDate,
		BusinessPurpose:  co.Purpose,
		RegisterType:     co.Registration.RegisterType,
		RegisterNumber:   co.Registration.RegisterNumber,
	}
	if out.LegalForm == "" {
		out.LegalForm = "GmbH"
	}
	if out.City == "" {
		out.City = "Unbekannt"
	}
	if out.RegisterType == "" {
		out.RegisterType = "HRB"
	}
	return out
}

func tooOld(registrationDate string, min time.Time) bool {
	if registrationDate == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", registrationDate)
	if err != nil {
		return false
	}
	return t.Before(min)
}
