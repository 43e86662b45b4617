package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keystat/keystat/pkg/errlvl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestXPublisher(t *testing.T, handler http.HandlerFunc) *XPublisher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	x := NewXPublisher(XCredentials{
		ConsumerKey:       "ck",
		ConsumerSecret:    "cs",
		AccessToken:       "at",
		AccessTokenSecret: "ats",
	}, time.Second)
	x.Endpoint = srv.URL + "/2/tweets"
	return x
}

func TestXPublisher_Publish(t *testing.T) {
	text := "한국은행 기준금리: 3.50 % (2024년01월15일)"

	var gotAuth, gotText, gotMethod string
	x := newTestXPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method

		var body xCreatePostRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText = body.Text

		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {"id": "1746913346873651200", "text": "ignored"}}`))
	})

	id, err := x.Publish(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "1746913346873651200", id)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, text, gotText)
	assert.True(t, strings.HasPrefix(gotAuth, "OAuth "), "request must be OAuth1 signed, got %q", gotAuth)
	assert.Contains(t, gotAuth, `oauth_consumer_key="ck"`)
	assert.Contains(t, gotAuth, `oauth_token="at"`)
}

func TestXPublisher_Publish_rejected(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantCode     int
		wantMessages []string
		wantLevel    errlvl.Lvl
	}{
		{
			name:         "duplicate content",
			status:       http.StatusForbidden,
			body:         `{"detail": "You are not allowed to create a Tweet with duplicate content.", "type": "about:blank", "title": "Forbidden", "status": 403}`,
			wantCode:     http.StatusForbidden,
			wantMessages: []string{"You are not allowed to create a Tweet with duplicate content."},
			wantLevel:    errlvl.ERROR,
		},
		{
			name:         "rate limited",
			status:       http.StatusTooManyRequests,
			body:         `{"title": "Too Many Requests", "detail": "Too Many Requests", "type": "about:blank", "status": 429}`,
			wantCode:     http.StatusTooManyRequests,
			wantMessages: []string{"Too Many Requests"},
			wantLevel:    errlvl.INFO,
		},
		{
			name:         "bad credentials with error list",
			status:       http.StatusUnauthorized,
			body:         `{"errors": [{"code": 32, "message": "Could not authenticate you."}]}`,
			wantCode:     http.StatusUnauthorized,
			wantMessages: []string{"Could not authenticate you."},
			wantLevel:    errlvl.ERROR,
		},
		{
			name:         "too long",
			status:       http.StatusBadRequest,
			body:         `{"errors": [{"message": "text length must be <= 280"}], "title": "Invalid Request", "detail": "One or more parameters to your request was invalid."}`,
			wantCode:     http.StatusBadRequest,
			wantMessages: []string{"One or more parameters to your request was invalid.", "text length must be <= 280"},
			wantLevel:    errlvl.WARN,
		},
		{
			name:         "non json error",
			status:       http.StatusBadGateway,
			body:         `<html>bad gateway</html>`,
			wantCode:     http.StatusBadGateway,
			wantMessages: []string{"Bad Gateway"},
			wantLevel:    errlvl.WARN,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := newTestXPublisher(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			id, err := x.Publish(context.Background(), "text")
			assert.Empty(t, id)

			var pErr *Error
			require.ErrorAs(t, err, &pErr)
			assert.ErrorIs(t, err, errRejected)
			assert.Equal(t, "x", pErr.Platform)
			assert.Equal(t, tt.wantCode, pErr.Code)
			assert.Equal(t, tt.wantMessages, pErr.Messages)
			assert.Equal(t, tt.wantLevel, errlvl.Of(err))
		})
	}
}

func TestXPublisher_Publish_invalidSuccessBody(t *testing.T) {
	x := newTestXPublisher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {}}`))
	})

	_, err := x.Publish(context.Background(), "text")
	assert.ErrorIs(t, err, errRejected)
}

func TestXPublisher_Publish_emptyText(t *testing.T) {
	called := false
	x := newTestXPublisher(t, func(http.ResponseWriter, *http.Request) {
		called = true
	})

	_, err := x.Publish(context.Background(), "")
	assert.ErrorIs(t, err, errEmptyText)
	assert.False(t, called)
}

func TestXPublisher_Publish_transportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	x := NewXPublisher(XCredentials{}, time.Second)
	x.Endpoint = srv.URL

	_, err := x.Publish(context.Background(), "text")

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, errRequestFailed)
	assert.Zero(t, pErr.Code)
}

func TestXPublisher_Publish_clientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {"id": "1"}}`))
	}))
	t.Cleanup(srv.Close)
	defer close(release)

	x := NewXPublisher(XCredentials{ConsumerKey: "ck", AccessToken: "at"}, 100*time.Millisecond)
	x.Endpoint = srv.URL

	start := time.Now()
	id, err := x.Publish(context.Background(), "text")

	assert.Empty(t, id)
	assert.ErrorIs(t, err, errRequestFailed)
	assert.Less(t, time.Since(start), time.Second)
}
