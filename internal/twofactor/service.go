// Package twofactor drives SMS two-factor enrollment and verification against
// an external provider. Codes are never stored, inspected or logged here.
package twofactor

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/sirupsen/logrus"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/repository"
)

// Recorder counts provider call outcomes.
type Recorder interface {
	TwoFactorOutcome(op, outcome string)
}

type Config struct {
	// Region is the ISO 3166 region used to parse phone numbers without a country prefix.
	Region string
	// Timeout bounds every provider call.
	Timeout  time.Duration
	Logger   logrus.FieldLogger
	Recorder Recorder
}

type Service struct {
	provider Provider
	users    repository.UserRepository
	cfg      Config
}

// EnrollInput describes a new two-factor identity. Username defaults to Email.
type EnrollInput struct {
	Email    string
	Phone    string
	Username string
}

func NewService(provider Provider, users repository.UserRepository, cfg Config) *Service {
	if cfg.Region == "" {
		cfg.Region = "US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Service{
		provider: provider,
		users:    users,
		cfg:      cfg,
	}
}

// Enroll registers the phone with the provider and creates the local user
// carrying the provider handle. A duplicate email is rejected before any
// provider call. If the local create fails after the provider registered the
// phone, the provider enrollment is removed again on a best-effort basis.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, domain.E(domain.KindInvalidInput, "a valid email is required", nil)
	}
	num, err := s.parsePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = email
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.E(domain.KindAlreadyEnrolled, "user already exists", nil)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	log := s.cfg.Logger.WithField("op", "enroll")

	authyID, err := s.register(ctx, email, num, log)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:    email,
		Username: username,
		Phone:    phonenumbers.Format(num, phonenumbers.E164),
		Role:     domain.RoleUser,
		AuthyID:  authyID,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		s.compensate(ctx, authyID, log)
		s.cfg.Recorder.TwoFactorOutcome("enroll", "local_error")
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.E(domain.KindAlreadyEnrolled, "user already exists", err)
		}
		return nil, domain.E(domain.KindDataAccess, "create enrolled user", err)
	}

	s.cfg.Recorder.TwoFactorOutcome("enroll", "success")
	log.WithFields(logrus.Fields{"user_id": user.ID, "authy_id": authyID}).Info("user enrolled")
	return user, nil
}

// EnrollUser attaches a phone to an existing account that has no provider
// handle yet, keeping its password. Accounts already enrolled are rejected
// before any provider call.
func (s *Service) EnrollUser(ctx context.Context, userID int64, phone string) (*domain.User, error) {
	num, err := s.parsePhone(phone)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Enrolled() {
		return nil, domain.E(domain.KindAlreadyEnrolled, "user is already enrolled in two-factor verification", nil)
	}

	log := s.cfg.Logger.WithFields(logrus.Fields{"op": "enroll_user", "user_id": userID})

	authyID, err := s.register(ctx, user.Email, num, log)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.SetTwoFactor(ctx, userID, authyID, phonenumbers.Format(num, phonenumbers.E164))
	if err != nil {
		s.compensate(ctx, authyID, log)
		s.cfg.Recorder.TwoFactorOutcome("enroll", "local_error")
		return nil, err
	}

	s.cfg.Recorder.TwoFactorOutcome("enroll", "success")
	log.WithField("authy_id", authyID).Info("existing user enrolled")
	return updated, nil
}

// RequestCode asks the provider to text a code and returns the masked destination.
func (s *Service) RequestCode(ctx context.Context, authyID string) (string, error) {
	if strings.TrimSpace(authyID) == "" {
		return "", domain.E(domain.KindUnknownEnrollment, "user is not enrolled in two-factor verification", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	phone, err := s.provider.RequestSMS(callCtx, authyID)
	if err != nil {
		s.cfg.Recorder.TwoFactorOutcome("request_code", outcomeFor(err))
		s.cfg.Logger.WithField("authy_id", authyID).WithError(err).Warn("code request failed")
		return "", providerError(err, "sending verification code failed")
	}

	s.cfg.Recorder.TwoFactorOutcome("request_code", "success")
	return phone, nil
}

// VerifyCode reports the provider's verdict on code. It fails closed: any
// provider error yields false together with the error.
func (s *Service) VerifyCode(ctx context.Context, authyID, code string) (bool, error) {
	if strings.TrimSpace(authyID) == "" {
		return false, domain.E(domain.KindUnknownEnrollment, "user is not enrolled in two-factor verification", nil)
	}
	if code == "" {
		s.cfg.Recorder.TwoFactorOutcome("verify", "rejected")
		return false, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	ok, err := s.provider.VerifyToken(callCtx, authyID, code)
	if err != nil {
		s.cfg.Recorder.TwoFactorOutcome("verify", outcomeFor(err))
		s.cfg.Logger.WithField("authy_id", authyID).WithError(err).Warn("code verification failed")
		return false, providerError(err, "verifying code failed")
	}
	if !ok {
		s.cfg.Recorder.TwoFactorOutcome("verify", "rejected")
		return false, nil
	}

	s.cfg.Recorder.TwoFactorOutcome("verify", "success")
	return true, nil
}

func (s *Service) parsePhone(raw string) (*phonenumbers.PhoneNumber, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), s.cfg.Region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return nil, domain.E(domain.KindInvalidInput, "a valid phone number is required", nil)
	}
	return num, nil
}

func (s *Service) register(ctx context.Context, email string, num *phonenumbers.PhoneNumber, log logrus.FieldLogger) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	authyID, err := s.provider.RegisterUser(callCtx, Registration{
		Email:       email,
		Cellphone:   phonenumbers.GetNationalSignificantNumber(num),
		CountryCode: int(num.GetCountryCode()),
	})
	if err != nil {
		s.cfg.Recorder.TwoFactorOutcome("enroll", "provider_error")
		log.WithError(err).Warn("provider registration failed")
		return "", domain.E(domain.KindProvider, "two-factor registration failed", err)
	}
	return authyID, nil
}

func (s *Service) compensate(ctx context.Context, authyID string, log logrus.FieldLogger) {
	// the request may already be cancelled; the cleanup gets its own deadline
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	if err := s.provider.DeleteUser(callCtx, authyID); err != nil {
		log.WithField("authy_id", authyID).WithError(err).Error("orphaned provider enrollment")
		return
	}
	log.WithField("authy_id", authyID).Warn("provider enrollment rolled back")
}

func providerError(err error, message string) error {
	if errors.Is(err, ErrUnknownUser) {
		return domain.E(domain.KindUnknownEnrollment, "two-factor enrollment not recognized", err)
	}
	return domain.E(domain.KindProvider, message, err)
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "provider_error"
	}
}

type nopRecorder struct{}

func (nopRecorder) TwoFactorOutcome(string, string) {}
