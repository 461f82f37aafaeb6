package limits

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/igamenovoer/my-litellm-proxy/pkg/limits/ratelimit"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
)

// Response headers, named the way OpenAI names them.
const (
	HeaderLimitRequests     = "X-RateLimit-Limit-Requests"
	HeaderRemainingRequests = "X-RateLimit-Remaining-Requests"
)

// CodeRateLimited is the error code of a 429 answered by the gateway.
const CodeRateLimited = "rate_limited"

// Handle enforces the limits of the authenticated key. The slot is held
// until next returns, which for streams is the end of the stream.
func (m *Manager) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ := auth.GetKeyInfo(r.Context())
		d, release, err := m.Acquire(info)
		writeLimitHeaders(w, d)
		if err != nil {
			var le *LimitError
			if errors.As(err, &le) {
				m.logger.WarnContext(r.Context(), "request rate limited",
					"key_alias", le.KeyAlias,
					"limit", le.LimitType,
					"retry_after", le.RetryAfter,
					"path", r.URL.Path,
				)
				writeLimitError(w, le)
				return
			}
			_ = proxy.WriteErrorResponse(w, http.StatusInternalServerError, types.NewServerError(err.Error()))
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}

func writeLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit == 0 {
		return
	}
	w.Header().Set(HeaderLimitRequests, strconv.FormatInt(d.Limit, 10))
	w.Header().Set(HeaderRemainingRequests, strconv.FormatInt(d.Remaining, 10))
}

func writeLimitError(w http.ResponseWriter, le *LimitError) {
	seconds := int64(math.Ceil(le.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))

	msg := "Rate limit reached: too many requests per minute for this key."
	if le.LimitType == ratelimit.LimitParallel {
		msg = "Rate limit reached: too many parallel requests for this key."
	}
	_ = proxy.WriteErrorResponse(w, http.StatusTooManyRequests,
		types.NewErrorResponse(msg, types.ErrorTypeRateLimitExceeded, "", CodeRateLimited))
}
