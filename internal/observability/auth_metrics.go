package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics holds the instruments of the auth layer.
type AuthMetrics struct {
	logins       metric.Int64Counter
	authFailures metric.Int64Counter
	rejections   metric.Int64Counter
}

// NewAuthMetrics creates the auth layer instruments on the global meter
// provider.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("authd/auth")

	logins, err := meter.Int64Counter(
		"auth.logins",
		metric.WithDescription("Number of successful sign-ins"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	authFailures, err := meter.Int64Counter(
		"auth.failures",
		metric.WithDescription("Number of refused authentication attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"ratelimit.rejections",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		logins:       logins,
		authFailures: authFailures,
		rejections:   rejections,
	}, nil
}

// RecordLogin counts a successful sign-in of the given kind (password,
// provider, admin).
func (m *AuthMetrics) RecordLogin(ctx context.Context, kind string) {
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordAuthFailure counts a refused authentication attempt, labelled with
// the internal reason (expired, bad_signature, forbidden, ...). The label is
// operational only; responses never carry it.
func (m *AuthMetrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.authFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRateLimitRejection counts a request rejected at the window ceiling.
func (m *AuthMetrics) RecordRateLimitRejection(ctx context.Context) {
	m.rejections.Add(ctx, 1)
}
