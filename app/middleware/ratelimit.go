package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	limiter "github.com/ulule/limiter/v3"
	"github.com/vibast-solutions/ms-go-gocardless/app/types"
)

// RateLimit limits requests per client IP. The store is consulted on every
// request; when it fails the request goes through and the error is logged.
func RateLimit(lim *limiter.Limiter, logger logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if lim == nil {
				return next(ctx)
			}

			result, err := lim.Get(ctx.Request().Context(), ctx.RealIP())
			if err != nil {
				if logger != nil {
					logger.WithError(err).Warn("rate_limit_store_failed")
				}
				return next(ctx)
			}

			headers := ctx.Response().Header()
			headers.Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			headers.Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))

			if result.Reached {
				retryAfter := time.Until(time.Unix(result.Reset, 0)).Seconds()
				if retryAfter < 0 {
					retryAfter = 0
				}
				headers.Set("Retry-After", strconv.Itoa(int(retryAfter)))
				return ctx.JSON(http.StatusTooManyRequests, &types.ErrorResponse{Error: "rate limit exceeded"})
			}

			return next(ctx)
		}
	}
}

// NewLimiter parses a formatted rate such as "120-M". An empty rate disables
// limiting and returns nil.
func NewLimiter(store limiter.Store, formatted string) (*limiter.Limiter, error) {
	if formatted == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}
