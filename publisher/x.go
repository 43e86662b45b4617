package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/keystat/keystat/composer"
	"github.com/keystat/keystat/pkg/errlvl"
)

const (
	// XCreatePostURL is the X API v2 "create post" endpoint.
	XCreatePostURL = "https://api.twitter.com/2/tweets"

	platformX = "x"
)

// XCredentials are the OAuth 1.0a user context keys of the posting account.
type XCredentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// XPublisher publishes posts to an X account.
type XPublisher struct {
	Endpoint string       // create post endpoint, overridable for tests
	client   *http.Client // OAuth1 signing client
}

// NewXPublisher creates an XPublisher that signs every request with the given credentials.
func NewXPublisher(creds XCredentials, timeout time.Duration) *XPublisher {
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)

	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	// Client keeps only the transport of the context client.
	client := cfg.Client(ctx, token)
	client.Timeout = timeout

	return &XPublisher{
		Endpoint: XCreatePostURL,
		client:   client,
	}
}

// Name returns the platform name.
func (*XPublisher) Name() string {
	return platformX
}

// MaxLength returns the X limit and the way X measures it.
func (*XPublisher) MaxLength() (int, composer.LengthFunc) {
	return composer.XMaxWeightedLength, composer.XWeightedLength
}

type xCreatePostRequest struct {
	Text string `json:"text"`
}

type xCreatePostResponse struct {
	Data *struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	// Problem details (auth failures, rate limits, duplicate content...)
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	// v1.1 style and validation errors
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (r *xCreatePostResponse) messages() []string {
	var m []string
	if r.Detail != "" {
		m = append(m, r.Detail)
	} else if r.Title != "" {
		m = append(m, r.Title)
	}
	for _, e := range r.Errors {
		if e.Message != "" {
			m = append(m, e.Message)
		}
	}
	return m
}

// Publish creates a post with the given text and returns its id.
func (x *XPublisher) Publish(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", newError(platformX, errlvl.ERROR, errEmptyText)
	}

	body, err := json.Marshal(xCreatePostRequest{Text: text})
	if err != nil {
		return "", newError(platformX, errlvl.ERROR, errCreateRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", newError(platformX, errlvl.ERROR, errCreateRequest, err)
	}
	req.Header.Set("content-type", "application/json")

	res, err := x.client.Do(req)
	if err != nil {
		return "", newError(platformX, errlvl.WARN, errRequestFailed, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(res.Body)

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", newError(platformX, errlvl.WARN, errDecodeResponse, err).WithResponse(res.StatusCode)
	}

	var parsed xCreatePostResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msgs := parsed.messages()
		if len(msgs) == 0 {
			msgs = []string{http.StatusText(res.StatusCode)}
		}
		return "", newError(platformX, rejectionLevel(res.StatusCode), errRejected).
			WithResponse(res.StatusCode, msgs...)
	}

	if decodeErr != nil {
		return "", newError(platformX, errlvl.ERROR, errDecodeResponse, decodeErr).WithResponse(res.StatusCode)
	}
	if parsed.Data == nil || parsed.Data.ID == "" {
		return "", newError(platformX, errlvl.ERROR, errRejected,
			fmt.Errorf("response without post id: %s", raw)).WithResponse(res.StatusCode, parsed.messages()...)
	}

	return parsed.Data.ID, nil
}

// rejectionLevel maps X statuses to severity: bad credentials need a human, rate limits and duplicates do not.
func rejectionLevel(status int) errlvl.Lvl {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errlvl.ERROR
	case http.StatusTooManyRequests:
		return errlvl.INFO
	default:
		return errlvl.WARN
	}
}
