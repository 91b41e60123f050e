package core

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RetryOptions tunes the retrying HTTP client
type RetryOptions struct {
	MaxRetries int
	WaitMin    time.Duration
	WaitMax    time.Duration
	Timeout    time.Duration // Overall per-request timeout; 0 means none
}

// DefaultRetryOptions returns the options used for the release feed and downloads
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: 3,
		WaitMin:    500 * time.Millisecond,
		WaitMax:    5 * time.Second,
	}
}

// NewHTTPClient returns an http.Client that retries connection errors and 5xx
// responses with exponential backoff. Request contexts still cancel in-flight
// transfers.
func NewHTTPClient(opts RetryOptions) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.MaxRetries
	rc.RetryWaitMin = opts.WaitMin
	rc.RetryWaitMax = opts.WaitMax
	rc.Logger = retryLogger{}

	client := rc.StandardClient()
	client.Timeout = opts.Timeout
	return client
}

// retryLogger routes retryablehttp's leveled logging onto zerolog
type retryLogger struct{}

func (retryLogger) Error(msg string, kv ...interface{}) { emit(log.Error(), msg, kv) }
func (retryLogger) Info(msg string, kv ...interface{})  { emit(log.Debug(), msg, kv) }
func (retryLogger) Debug(msg string, kv ...interface{}) { emit(log.Trace(), msg, kv) }
func (retryLogger) Warn(msg string, kv ...interface{})  { emit(log.Warn(), msg, kv) }

func emit(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
