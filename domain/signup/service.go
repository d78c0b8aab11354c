package signup

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/internal/models"
	"github.com/akeren/waitlist-signup/pkg/circuitbreaker"
	apperrors "github.com/akeren/waitlist-signup/pkg/errors"
	"github.com/akeren/waitlist-signup/pkg/events"
	"github.com/akeren/waitlist-signup/pkg/keylock"
)

const publishTimeout = 2 * time.Second

var tracer = otel.Tracer("github.com/akeren/waitlist-signup/domain/signup")

type SignupService interface {
	Submit(ctx context.Context, req *SignupRequest, clientIP string) (*SubmitResponse, error)
	// RejectInvalid records a request that failed binding and returns the
	// validation error to send back.
	RejectInvalid(ctx context.Context, fields []apperrors.ValidationErrorResponse) error
	// Count never fails; storage errors read as zero.
	Count(ctx context.Context) *CountResponse
	Export(ctx context.Context, credential string) ([]byte, error)
	StoreExists(ctx context.Context) (bool, error)
}

// Authorizer decides whether an export credential is accepted.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) bool
}

// Dependencies wires a SignupService. Only Repository is required.
type Dependencies struct {
	Logger        *log.Logger
	Repository    SignupRepository
	Locker        keylock.Locker
	Authorizer    Authorizer
	Publisher     events.Publisher
	Cache         Cache
	CountCacheTTL time.Duration
	Metrics       prometheus.Registerer
	Clock         func() time.Time
}

type signupService struct {
	logger     *log.Logger
	repository SignupRepository
	locker     keylock.Locker
	authorizer Authorizer
	publisher  events.Publisher
	publishCB  circuitbreaker.CircuitBreaker
	counts     *countCache
	metrics    *submissionMetrics
	now        func() time.Time
}

func NewSignupService(deps Dependencies) SignupService {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	locker := deps.Locker
	if locker == nil {
		locker = keylock.NewMemoryLocker()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &signupService{
		logger:     logger,
		repository: deps.Repository,
		locker:     locker,
		authorizer: deps.Authorizer,
		publisher:  publisher,
		publishCB: circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			Name:             "signup-events",
			FailureThreshold: 3,
			RecoveryTimeout:  time.Minute,
			SuccessThreshold: 1,
			OnStateChange: func(name string, from, to circuitbreaker.CircuitState) {
				logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		counts:  newCountCache(deps.Cache, deps.CountCacheTTL, logger),
		metrics: newSubmissionMetrics(deps.Metrics),
		now:     now,
	}
}

func (s *signupService) Submit(ctx context.Context, req *SignupRequest, clientIP string) (*SubmitResponse, error) {
	ctx, span := tracer.Start(ctx, "signup.Submit")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("Submit received nil request")
		s.metrics.record(OutcomeInvalid)
		return nil, apperrors.NewValidationError(MessageInvalid, nil)
	}

	signup := ToSignupModel(req, s.now(), clientIP)
	span.SetAttributes(attribute.String("signup.role", signup.Role))

	release, err := s.locker.Lock(ctx, "signup:"+signup.EmailNormalized)
	if err != nil {
		logger.Error("Failed to acquire signup lock", "error", err)
		return nil, s.storageFailure(span, err)
	}
	defer release()

	exists, err := s.repository.HasEmail(ctx, signup.EmailNormalized)
	if err != nil {
		logger.Error("Failed to check for existing signup", "error", err)
		return nil, s.storageFailure(span, err)
	}
	if exists {
		s.metrics.record(OutcomeDuplicate)
		return nil, apperrors.NewConflictError(MessageDuplicate, ErrDuplicateSignup)
	}

	if err := s.repository.Append(ctx, signup); err != nil {
		if errors.Is(err, ErrDuplicateSignup) {
			s.metrics.record(OutcomeDuplicate)
			return nil, apperrors.NewConflictError(MessageDuplicate, err)
		}
		logger.Error("Failed to append signup", "error", err)
		return nil, s.storageFailure(span, err)
	}
	// Released early so event publishing does not hold the email lock.
	release()

	s.metrics.record(OutcomeAccepted)
	s.counts.invalidate(ctx)
	logger.Info("New signup", "email", signup.Email, "role", signup.Role)

	s.publishAccepted(ctx, logger, signup)

	return &SubmitResponse{Success: true, Message: MessageAccepted}, nil
}

func (s *signupService) storageFailure(span trace.Span, err error) error {
	s.metrics.record(OutcomeError)
	span.RecordError(err)
	span.SetStatus(codes.Error, "storage failure")
	return apperrors.NewStorageError(MessageServerError, err)
}

func (s *signupService) publishAccepted(ctx context.Context, logger *log.Logger, signup *models.Signup) {
	if events.IsNop(s.publisher) {
		return
	}

	event := events.NewEvent(events.SignupAccepted, map[string]string{
		"email":     signup.Email,
		"role":      signup.Role,
		"timestamp": signup.Row()[0],
	})

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publishCB.Call(func() error {
		return s.publisher.Publish(ctx, event)
	})
	if err != nil {
		logger.Warn("Failed to publish signup event", "event_id", event.ID, "error", err)
	}
}

func (s *signupService) RejectInvalid(ctx context.Context, fields []apperrors.ValidationErrorResponse) error {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)
	logger.Info("Rejected invalid signup", "fields", len(fields))
	s.metrics.record(OutcomeInvalid)
	return apperrors.NewValidationError(MessageInvalid, fields)
}

func (s *signupService) Count(ctx context.Context) *CountResponse {
	n, gen, ok := s.counts.get(ctx)
	if ok {
		return &CountResponse{Count: n}
	}

	count, err := s.repository.Count(ctx)
	if err != nil {
		logger := log.GetLoggerInstanceFromContext(ctx, s.logger)
		logger.Error("Failed to count signups", "error", err)
		return &CountResponse{Count: 0}
	}
	count = max(count, 0)

	s.counts.set(ctx, gen, count)
	return &CountResponse{Count: count}
}

func (s *signupService) Export(ctx context.Context, credential string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "signup.Export")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if credential == "" || s.authorizer == nil || !s.authorizer.Authorize(ctx, credential) {
		logger.Warn("Rejected export request")
		return nil, apperrors.NewUnauthorizedError(MessageUnauthorized, nil)
	}

	exists, err := s.repository.Exists(ctx)
	if err != nil {
		logger.Error("Failed to check signup store", "error", err)
		return nil, apperrors.NewStorageError(MessageServerError, err)
	}
	if !exists {
		return nil, apperrors.NewNotFoundError(MessageNoSignups, ErrStoreEmpty)
	}

	count, err := s.repository.Count(ctx)
	if err != nil {
		logger.Error("Failed to count signups", "error", err)
		return nil, apperrors.NewStorageError(MessageServerError, err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFoundError(MessageNoSignups, ErrStoreEmpty)
	}

	var buf bytes.Buffer
	if err := s.repository.Export(ctx, &buf); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(MessageNoSignups, ErrStoreEmpty)
		}
		logger.Error("Failed to export signups", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		return nil, apperrors.NewStorageError(MessageServerError, err)
	}

	span.SetAttributes(attribute.Int("signup.count", count))
	logger.Info("Signups exported", "count", count)
	return buf.Bytes(), nil
}

func (s *signupService) StoreExists(ctx context.Context) (bool, error) {
	return s.repository.Exists(ctx)
}
