package ecos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keystat/keystat/pkg/errlvl"
)

const (
	// BaseURL is the root of the Bank of Korea ECOS open API.
	BaseURL = "https://ecos.bok.or.kr/api"
	// DefaultTimeout is used when NewKeyStatistics gets a non-positive timeout.
	DefaultTimeout = 15 * time.Second

	// keyStatisticPath is the KeyStatisticList service: JSON output, Korean labels, rows 1..101.
	keyStatisticPath = "%s/KeyStatisticList/%s/json/kr/1/101"
)

// KeyStatistics fetches the "100 key statistics" table from ECOS.
// Docs: https://ecos.bok.or.kr/api/#/DevGuide/StatisticalCodeSearch
type KeyStatistics struct {
	BaseURL string       // API root, overridable for tests
	apiKey  string       // ECOS authentication key, part of the URL path
	client  *http.Client // HTTP client with a request timeout
}

// NewKeyStatistics creates a KeyStatistics fetcher for the given API key.
func NewKeyStatistics(apiKey string, timeout time.Duration) *KeyStatistics {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &KeyStatistics{
		BaseURL: BaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch issues one GET to the KeyStatisticList endpoint and returns the decoded payload.
// The payload is not validated here, a payload without rows is still returned.
func (k *KeyStatistics) Fetch(ctx context.Context) (*Payload, error) {
	endpoint := fmt.Sprintf(keyStatisticPath, strings.TrimRight(k.BaseURL, "/"), url.PathEscape(k.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newError(errlvl.ERROR, errCreateRequest, k.redact(err))
	}
	req.Header.Set("accept", "application/json")

	res, err := k.client.Do(req)
	if err != nil {
		return nil, newError(errlvl.WARN, errRequestFailed, k.redact(err))
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, newError(errlvl.WARN, errInvalidStatus, fmt.Errorf("status %s", res.Status)).
			WithStatus(res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, newError(errlvl.WARN, errReadBody, k.redact(err)).WithStatus(res.StatusCode)
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError(errlvl.ERROR, errDecodeBody, err).WithStatus(res.StatusCode)
	}

	return &payload, nil
}

// redact removes the API key from err, net/http puts the full request URL into transport errors.
func (k *KeyStatistics) redact(err error) error {
	if k.apiKey == "" {
		return err
	}

	var uErr *url.Error
	if errors.As(err, &uErr) {
		uErr.URL = strings.ReplaceAll(uErr.URL, url.PathEscape(k.apiKey), redactedKey)
		uErr.URL = strings.ReplaceAll(uErr.URL, k.apiKey, redactedKey)
		return err
	}

	if strings.Contains(err.Error(), k.apiKey) {
		return errors.New(strings.ReplaceAll(err.Error(), k.apiKey, redactedKey))
	}
	return err
}

const redactedKey = "<redacted>"
