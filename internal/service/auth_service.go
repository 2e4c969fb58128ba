package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/repository"
	"workorder-tracker/internal/token"
	"workorder-tracker/internal/twofactor"
)

const minPasswordLength = 8

// TwoFactor is the slice of the two-factor state machine the sign-in flow drives.
type TwoFactor interface {
	Enroll(ctx context.Context, in twofactor.EnrollInput) (*domain.User, error)
	EnrollUser(ctx context.Context, userID int64, phone string) (*domain.User, error)
	RequestCode(ctx context.Context, authyID string) (string, error)
	VerifyCode(ctx context.Context, authyID, code string) (bool, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// SignInResult is returned by every flow that may start a session. Token is
// empty while a verification code is still outstanding under the strict policy.
type SignInResult struct {
	Token            string
	User             *domain.User
	AuthyID          string
	MaskedPhone      string
	ChallengePending bool
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// AuthService orchestrates credentials, two-factor challenges and token issuance.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*SignInResult, error)
	Enroll(ctx context.Context, in twofactor.EnrollInput) (*domain.User, error)
	EnrollViewer(ctx context.Context, viewer *token.Claims, phone string) (*domain.User, error)
	SignIn(ctx context.Context, login, password string) (*SignInResult, error)
	RequestCode(ctx context.Context, login string) (*SignInResult, error)
	VerifyCode(ctx context.Context, authyID, code string) (*SignInResult, error)
	VerifyViewerCode(ctx context.Context, viewer *token.Claims, code string) (*domain.User, error)
}

type AuthOptions struct {
	// RequireCode withholds the session token from password sign-ins of
	// enrolled users until a code has been verified.
	RequireCode bool
	Logger      logrus.FieldLogger
}

type authService struct {
	users       repository.UserRepository
	twoFactor   TwoFactor
	tokens      TokenIssuer
	requireCode bool
	log         logrus.FieldLogger
}

func NewAuthService(users repository.UserRepository, twoFactor TwoFactor, tokens TokenIssuer, opts AuthOptions) AuthService {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &authService{
		users:       users,
		twoFactor:   twoFactor,
		tokens:      tokens,
		requireCode: opts.RequireCode,
		log:         log.WithField("component", "auth"),
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*SignInResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	password := strings.TrimSpace(in.Password)

	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, domain.E(domain.KindInvalidInput, "a valid email is required", nil)
	}
	if username == "" {
		return nil, domain.E(domain.KindInvalidInput, "username is required", nil)
	}
	if len(password) < minPasswordLength {
		return nil, domain.E(domain.KindInvalidInput, "password must be at least 8 characters", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.E(domain.KindConflict, "user already exists", err)
		}
		return nil, err
	}

	tok, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return &SignInResult{Token: tok, User: sanitizeUser(user)}, nil
}

func (s *authService) Enroll(ctx context.Context, in twofactor.EnrollInput) (*domain.User, error) {
	user, err := s.twoFactor.Enroll(ctx, in)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// EnrollViewer adds two-factor verification to the signed-in account, so its
// password sign-ins start a code challenge from then on.
func (s *authService) EnrollViewer(ctx context.Context, viewer *token.Claims, phone string) (*domain.User, error) {
	if viewer == nil {
		return nil, domain.E(domain.KindUnauthenticated, "not authenticated as user", nil)
	}
	user, err := s.twoFactor.EnrollUser(ctx, viewer.UserID, phone)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// SignIn authenticates login. With a password the credentials are checked and,
// unless the strict policy holds it back for enrolled users, a token is issued
// right away. Without a password only the code challenge is started.
func (s *authService) SignIn(ctx context.Context, login, password string) (*SignInResult, error) {
	user, err := s.lookup(ctx, login)
	if err != nil {
		return nil, err
	}
	log := s.log.WithField("user_id", user.ID)

	password = strings.TrimSpace(password)
	if password == "" {
		if !user.Enrolled() {
			return nil, domain.E(domain.KindUnknownEnrollment, "user has not enrolled in two-factor verification", nil)
		}
		return s.challenge(ctx, user)
	}

	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		log.Info("sign-in rejected")
		return nil, domain.E(domain.KindUnauthenticated, "invalid password", nil)
	}

	if !user.Enrolled() {
		return s.session(user)
	}
	if s.requireCode {
		return s.challenge(ctx, user)
	}

	result, err := s.challenge(ctx, user)
	if err != nil {
		return nil, err
	}
	tok, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	result.Token = tok
	log.Info("signed in with pending code")
	return result, nil
}

func (s *authService) RequestCode(ctx context.Context, login string) (*SignInResult, error) {
	user, err := s.lookup(ctx, login)
	if err != nil {
		return nil, err
	}
	if !user.Enrolled() {
		return nil, domain.E(domain.KindUnknownEnrollment, "user has not enrolled in two-factor verification", nil)
	}
	return s.challenge(ctx, user)
}

// VerifyCode issues a token for the user holding authyID once the provider
// accepts code. A rejected code is InvalidCode; provider failures pass through.
func (s *authService) VerifyCode(ctx context.Context, authyID, code string) (*SignInResult, error) {
	authyID = strings.TrimSpace(authyID)
	if authyID == "" {
		return nil, domain.E(domain.KindUnknownEnrollment, "user has not enrolled in two-factor verification", nil)
	}
	user, err := s.users.GetByAuthyID(ctx, authyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.E(domain.KindUnknownEnrollment, "two-factor enrollment not recognized", nil)
		}
		return nil, err
	}

	if err := s.verify(ctx, user, code); err != nil {
		return nil, err
	}
	return s.session(user)
}

// VerifyViewerCode checks a code for the already authenticated viewer.
func (s *authService) VerifyViewerCode(ctx context.Context, viewer *token.Claims, code string) (*domain.User, error) {
	if viewer == nil {
		return nil, domain.E(domain.KindUnauthenticated, "not authenticated as user", nil)
	}
	user, err := s.users.GetByID(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Enrolled() {
		return nil, domain.E(domain.KindUnknownEnrollment, "user has not enrolled in two-factor verification", nil)
	}
	if err := s.verify(ctx, user, code); err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *authService) lookup(ctx context.Context, login string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, domain.E(domain.KindUnauthenticated, "no user found with this login credentials", nil)
	}
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.E(domain.KindUnauthenticated, "no user found with this login credentials", nil)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) challenge(ctx context.Context, user *domain.User) (*SignInResult, error) {
	phone, err := s.twoFactor.RequestCode(ctx, user.AuthyID)
	if err != nil {
		return nil, err
	}
	return &SignInResult{
		User:             sanitizeUser(user),
		AuthyID:          user.AuthyID,
		MaskedPhone:      phone,
		ChallengePending: true,
	}, nil
}

func (s *authService) verify(ctx context.Context, user *domain.User, code string) error {
	ok, err := s.twoFactor.VerifyCode(ctx, user.AuthyID, strings.TrimSpace(code))
	if err != nil {
		return err
	}
	if !ok {
		s.log.WithField("user_id", user.ID).Info("verification code rejected")
		return domain.E(domain.KindInvalidCode, "wrong verification code", nil)
	}
	return nil
}

func (s *authService) session(user *domain.User) (*SignInResult, error) {
	tok, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Token: tok, User: sanitizeUser(user), AuthyID: user.AuthyID}, nil
}
