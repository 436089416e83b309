package coding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/opencarelabs/clinicore/internal/model"
)

const (
	defaultICD10BaseURL  = "https://clinicaltables.nlm.nih.gov/api/icd10cm/v3"
	defaultRxNormBaseURL = "https://rxnav.nlm.nih.gov/REST"
)

// Resolver enriches an extracted clinical record with ICD-10 and RxNorm
// codes from the public NLM terminology APIs. Lookups are best-effort: a
// failed or empty lookup leaves the code nil and never fails extraction.
type Resolver struct {
	client        *http.Client
	icd10BaseURL  string
	rxnormBaseURL string
	cache         *expirable.LRU[string, string]
}

type Option func(*Resolver)

func WithICD10BaseURL(baseURL string) Option {
	return func(r *Resolver) { r.icd10BaseURL = baseURL }
}

func WithRxNormBaseURL(baseURL string) Option {
	return func(r *Resolver) { r.rxnormBaseURL = baseURL }
}

func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) { r.client = client }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:        &http.Client{Timeout: 5 * time.Second},
		icd10BaseURL:  defaultICD10BaseURL,
		rxnormBaseURL: defaultRxNormBaseURL,
		cache:         expirable.NewLRU[string, string](5000, nil, 24*time.Hour),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Enrich(ctx context.Context, record *model.ClinicalRecord) {
	for i := range record.Conditions {
		name := record.Conditions[i].Name
		if name == "" {
			continue
		}
		if code := r.lookupICD10(ctx, name); code != "" {
			record.Conditions[i].ICD10Code = &code
		}
	}
	for i := range record.Medications {
		name := record.Medications[i].Name
		if name == "" {
			continue
		}
		if code := r.lookupRxNorm(ctx, name); code != "" {
			record.Medications[i].RxNormCode = &code
		}
	}
}

func (r *Resolver) lookupICD10(ctx context.Context, condition string) string {
	cacheKey := "icd10:" + strings.ToLower(condition)
	if code, ok := r.cache.Get(cacheKey); ok {
		return code
	}
	query := url.Values{}
	query.Set("sf", "code,name")
	query.Set("terms", condition)
	query.Set("maxList", "1")
	endpoint := strings.TrimRight(r.icd10BaseURL, "/") + "/search?" + query.Encode()

	// Response shape: [total, [codes], extra, [[code, name], ...]]
	var payload []json.RawMessage
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		logutil.GetLogger(ctx).Debug("icd10 lookup failed", zap.String("condition", condition), zap.Error(err))
		return ""
	}
	if len(payload) < 4 {
		return ""
	}
	var pairs [][]string
	if err := json.Unmarshal(payload[3], &pairs); err != nil || len(pairs) == 0 || len(pairs[0]) == 0 {
		return ""
	}
	code := pairs[0][0]
	r.cache.Add(cacheKey, code)
	return code
}

func (r *Resolver) lookupRxNorm(ctx context.Context, medication string) string {
	cacheKey := "rxnorm:" + strings.ToLower(medication)
	if code, ok := r.cache.Get(cacheKey); ok {
		return code
	}
	query := url.Values{}
	query.Set("name", medication)
	endpoint := strings.TrimRight(r.rxnormBaseURL, "/") + "/rxcui.json?" + query.Encode()

	var payload struct {
		IDGroup struct {
			RxNormID []string `json:"rxnormId"`
		} `json:"idGroup"`
	}
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		logutil.GetLogger(ctx).Debug("rxnorm lookup failed", zap.String("medication", medication), zap.Error(err))
		return ""
	}
	if len(payload.IDGroup.RxNormID) == 0 {
		return ""
	}
	code := payload.IDGroup.RxNormID[0]
	r.cache.Add(cacheKey, code)
	return code
}

func (r *Resolver) getJSON(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
