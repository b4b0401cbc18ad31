// Package advisory resolves CVE identifiers into the advisory lines shown in
// exploitation and privilege escalation summaries.
package advisory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// DefaultBaseURL serves NVD 1.0 JSON documents as <id>.json
const DefaultBaseURL = "https://olbat.github.io/nvdcve/"

// maxBodySize bounds the advisory document read from the service
const maxBodySize = 4 << 20

// Advisory is the vulnerability metadata used in a summary block
type Advisory struct {
	ID          string
	Summary     string
	Weakness    string
	Score       float64
	Severity    string
	AdvisoryURL string
}

// Lookuper resolves a CVE identifier
type Lookuper interface {
	Lookup(ctx context.Context, id string) (*Advisory, error)
}

// Client fetches advisories over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRateLimit allows at most rps requests per second. Zero disables the limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a client for baseURL. A zero timeout means 30 seconds.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var idPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// NormalizeID trims and upper-cases a CVE identifier and checks its shape
func NormalizeID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if !idPattern.MatchString(id) {
		return "", errors.ErrLookupFailed(fmt.Sprintf("%q", raw), fmt.Errorf("not a CVE identifier"))
	}
	return id, nil
}

// Lookup implements Lookuper
func (c *Client) Lookup(ctx context.Context, id string) (adv *Advisory, err error) {
	ctx, span := telemetry.StartSpan(ctx, "advisory.lookup",
		trace.WithAttributes(telemetry.AttrCVEID.String(id)))
	defer telemetry.EndSpan(span, &err)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.ErrLookupFailed(id, err)
		}
	}

	url := c.baseURL + id + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.ErrLookupFailed(id, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrLookupFailed(id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.ErrLookupFailed(id, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var doc nvdDocument
	if err := json.UnmarshalRead(io.LimitReader(resp.Body, maxBodySize), &doc); err != nil {
		return nil, errors.ErrLookupFailed(id, fmt.Errorf("decode response: %w", err))
	}
	adv, err = doc.advisory(id)
	if err != nil {
		return nil, errors.ErrLookupFailed(id, err)
	}

	logger.Debug("Fetched advisory",
		zap.String(logger.FieldCVE, id),
		zap.String("severity", adv.Severity),
		zap.Duration("duration", time.Since(start)),
	)
	return adv, nil
}

// nvdDocument is the part of an NVD 1.0 CVE item the report reads
type nvdDocument struct {
	CVE struct {
		Description struct {
			DescriptionData []nvdValue `json:"description_data"`
		} `json:"description"`
		ProblemType struct {
			ProblemTypeData []struct {
				Description []nvdValue `json:"description"`
			} `json:"problemtype_data"`
		} `json:"problemtype"`
		References struct {
			ReferenceData []struct {
				URL  string   `json:"url"`
				Tags []string `json:"tags"`
			} `json:"reference_data"`
		} `json:"references"`
	} `json:"cve"`
	Impact struct {
		BaseMetricV3 *struct {
			CVSSV3 *struct {
				BaseScore    float64 `json:"baseScore"`
				BaseSeverity string  `json:"baseSeverity"`
			} `json:"cvssV3"`
		} `json:"baseMetricV3"`
	} `json:"impact"`
}

type nvdValue struct {
	Value string `json:"value"`
}

// advisory extracts the fields. The description and the CVSS v3 metrics are
// required; weakness and vendor advisory may be absent.
func (d *nvdDocument) advisory(id string) (*Advisory, error) {
	if len(d.CVE.Description.DescriptionData) == 0 {
		return nil, fmt.Errorf("response has no description")
	}
	if d.Impact.BaseMetricV3 == nil || d.Impact.BaseMetricV3.CVSSV3 == nil {
		return nil, fmt.Errorf("response has no CVSS v3 metrics")
	}

	adv := &Advisory{
		ID:       id,
		Summary:  d.CVE.Description.DescriptionData[0].Value,
		Score:    d.Impact.BaseMetricV3.CVSSV3.BaseScore,
		Severity: d.Impact.BaseMetricV3.CVSSV3.BaseSeverity,
	}
	if pt := d.CVE.ProblemType.ProblemTypeData; len(pt) > 0 && len(pt[0].Description) > 0 {
		adv.Weakness = pt[0].Description[0].Value
	}
	for _, ref := range d.CVE.References.ReferenceData {
		if hasTag(ref.Tags, "Vendor Advisory") {
			adv.AdvisoryURL = ref.URL
			break
		}
	}
	return adv, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
