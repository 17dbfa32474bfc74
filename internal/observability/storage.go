package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"authd/internal/models"
	"authd/internal/storage"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("authd/storage")
	meter := otel.Meter("authd/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	// Email is deliberately not recorded as a span attribute.
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	start := time.Now()
	result, err := s.inner.GetUserByEmail(ctx, email)
	s.record(ctx, span, "GetUserByEmail", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, span := s.startSpan(ctx, "GetUserByID", attribute.Int64("user_id", id))
	start := time.Now()
	result, err := s.inner.GetUserByID(ctx, id)
	s.record(ctx, span, "GetUserByID", start, err)
	return result, err
}

func (s *InstrumentedStorage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	start := time.Now()
	result, err := s.inner.CreateUser(ctx, user)
	s.record(ctx, span, "CreateUser", start, err)
	return result, err
}

func (s *InstrumentedStorage) UpdateUser(ctx context.Context, user *models.User) error {
	ctx, span := s.startSpan(ctx, "UpdateUser", attribute.Int64("user_id", user.ID))
	start := time.Now()
	err := s.inner.UpdateUser(ctx, user)
	s.record(ctx, span, "UpdateUser", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteUser(ctx context.Context, id int64) error {
	ctx, span := s.startSpan(ctx, "DeleteUser", attribute.Int64("user_id", id))
	start := time.Now()
	err := s.inner.DeleteUser(ctx, id)
	s.record(ctx, span, "DeleteUser", start, err)
	return err
}

func (s *InstrumentedStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	ctx, span := s.startSpan(ctx, "ListUsers")
	start := time.Now()
	result, err := s.inner.ListUsers(ctx)
	s.record(ctx, span, "ListUsers", start, err)
	return result, err
}

func (s *InstrumentedStorage) CountUsers(ctx context.Context) (storage.UserCounts, error) {
	ctx, span := s.startSpan(ctx, "CountUsers")
	start := time.Now()
	result, err := s.inner.CountUsers(ctx)
	s.record(ctx, span, "CountUsers", start, err)
	return result, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
