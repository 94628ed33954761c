package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"restaurantpos/internal/caching"
	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/repositories"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "restaurantpos-auth"
	tokenAudience = "restaurantpos-api"

	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 6

	loginAttemptLimit  = 5
	loginAttemptWindow = 15 * time.Minute
)

// AuthEventKind names a session transition
type AuthEventKind string

const (
	AuthSignedIn  AuthEventKind = "signed_in"
	AuthSignedOut AuthEventKind = "signed_out"
)

// AuthEvent is delivered to OnAuthStateChange listeners
type AuthEvent struct {
	Kind   AuthEventKind
	UserID uuid.UUID
}

// AuthService is the identity provider: credentials, sessions and token rotation
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignOut(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*models.AuthSession, error)
	Session(ctx context.Context, accessToken string) (*models.Profile, error)

	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	Keyfunc(token *jwt.Token) (interface{}, error)
	HashPassword(password string) (string, error)

	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
}

// TokenClaims are the access token claims. Role is deliberately absent.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// AccountID returns the authenticated user id, falling back to sub for
// tokens minted by an external identity provider
func (c *TokenClaims) AccountID() (uuid.UUID, error) {
	raw := c.UserID
	if raw == "" {
		raw = c.RegisteredClaims.Subject
	}
	return uuid.Parse(raw)
}

type authService struct {
	profileRepo repositories.ProfileRepository
	cacheSvc    caching.CacheService
	jwks        *keyfunc.JWKS
	jwtSecret   []byte
	tokenTTL    int // Access token TTL in seconds
	refreshTTL  int // Refresh token TTL in seconds
	now         func() time.Time

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(AuthEvent)
}

// NewAuthService creates the identity provider. jwks may be nil when no
// external identity provider is configured.
func NewAuthService(profileRepo repositories.ProfileRepository, cacheSvc caching.CacheService, jwks *keyfunc.JWKS, jwtSecret string, tokenTTLSeconds, refreshTTLSeconds int) AuthService {
	return &authService{
		profileRepo: profileRepo,
		cacheSvc:    cacheSvc,
		jwks:        jwks,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTLSeconds,
		refreshTTL:  refreshTTLSeconds,
		now:         time.Now,
		listeners:   make(map[int]func(AuthEvent)),
	}
}

// NewJWKS fetches and keeps refreshing the key set of an external identity provider
func NewJWKS(jwksURL string) (*keyfunc.JWKS, error) {
	return keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Printf("WARN: JWKS refresh failed: %v", err)
		},
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" {
		return common.NewValidationError("email", "email is required")
	}
	if !strings.Contains(email, "@") {
		return common.NewValidationError("email", "email is invalid")
	}
	if len(password) < MinPasswordLength {
		return common.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

func (s *authService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// SignUp always creates a cashier. Elevation is an admin action.
func (s *authService) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	profile := &models.Profile{
		ID:           uuid.New(),
		Email:        email,
		Role:         models.RoleCashier,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, errors.Wrap(common.ErrConflict, "an account with this email already exists")
		}
		return nil, common.Persistence("create profile", err)
	}

	session, err := s.issue(ctx, profile)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: new account %s signed up", profile.ID)
	s.emit(AuthEvent{Kind: AuthSignedIn, UserID: profile.ID})
	return session, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.NewValidationError("email", "email and password are required")
	}

	throttleKey := "login:" + email
	limited, err := s.cacheSvc.IsRateLimited(ctx, throttleKey, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		log.Printf("WARN: login throttle unavailable: %v", err)
	} else if limited {
		return nil, errors.Wrap(common.ErrRateLimited, "too many sign-in attempts, try again later")
	}

	profile, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errors.Wrap(common.ErrUnauthenticated, "invalid email or password")
		}
		return nil, common.Persistence("load profile", err)
	}
	if profile.PasswordHash == "" {
		return nil, errors.Wrap(common.ErrUnauthenticated, "account has no password set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Wrap(common.ErrUnauthenticated, "invalid email or password")
	}

	if err := s.cacheSvc.ResetRateLimit(ctx, throttleKey); err != nil {
		log.Printf("WARN: failed to reset login throttle: %v", err)
	}

	session, err := s.issue(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.emit(AuthEvent{Kind: AuthSignedIn, UserID: profile.ID})
	return session, nil
}

func (s *authService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return common.NewValidationError("refresh_token", "refresh token is required")
	}
	key := refreshKey(refreshToken)
	data, err := s.cacheSvc.GetString(ctx, key)
	if err != nil {
		return errors.Wrap(err, "failed to read refresh token")
	}
	if err := s.cacheSvc.Delete(ctx, key); err != nil {
		return errors.Wrap(err, "failed to revoke refresh token")
	}
	if userID, parseErr := uuid.Parse(data); parseErr == nil {
		s.emit(AuthEvent{Kind: AuthSignedOut, UserID: userID})
	}
	return nil
}

// Refresh rotates the pair: the presented refresh token is revoked before a new one is issued
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.AuthSession, error) {
	if refreshToken == "" {
		return nil, common.NewValidationError("refresh_token", "refresh token is required")
	}
	key := refreshKey(refreshToken)
	data, err := s.cacheSvc.GetString(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read refresh token")
	}
	if data == "" {
		return nil, errors.Wrap(common.ErrUnauthenticated, "refresh token is invalid or expired")
	}
	userID, err := uuid.Parse(data)
	if err != nil {
		return nil, errors.Wrap(common.ErrUnauthenticated, "refresh token is invalid")
	}
	if err := s.cacheSvc.Delete(ctx, key); err != nil {
		return nil, errors.Wrap(err, "failed to revoke refresh token")
	}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errors.Wrap(common.ErrUnauthenticated, "account no longer exists")
		}
		return nil, common.Persistence("load profile", err)
	}
	return s.issue(ctx, profile)
}

// Session validates an access token and returns the profile as stored now
func (s *authService) Session(ctx context.Context, accessToken string) (*models.Profile, error) {
	claims, err := s.ValidateToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.AccountID()
	if err != nil {
		return nil, errors.Wrap(common.ErrUnauthenticated, "token has no valid subject")
	}
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errors.Wrap(common.ErrUnauthenticated, "no profile for this account")
		}
		return nil, common.Persistence("load profile", err)
	}
	return profile, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.Keyfunc)
	if err != nil {
		return nil, errors.Wrapf(common.ErrUnauthenticated, "token validation failed: %v", err)
	}
	if !parsed.Valid {
		return nil, errors.Wrap(common.ErrUnauthenticated, "invalid token claims")
	}
	return claims, nil
}

// Keyfunc resolves the verification key: HMAC tokens are ours, anything
// else must verify against the external identity provider's key set.
func (s *authService) Keyfunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		return s.jwtSecret, nil
	}
	if s.jwks != nil {
		return s.jwks.Keyfunc(token)
	}
	return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
}

func (s *authService) OnAuthStateChange(fn func(AuthEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *authService) emit(event AuthEvent) {
	s.mu.Lock()
	fns := make([]func(AuthEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// issue mints an access token and stores a new refresh token
func (s *authService) issue(ctx context.Context, profile *models.Profile) (*models.AuthSession, error) {
	now := s.now()
	tokenID := uuid.NewString()

	claims := TokenClaims{
		UserID: profile.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   profile.ID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenTTL) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign JWT")
	}

	refreshToken, err := generateSecureToken()
	if err != nil {
		return nil, err
	}
	if err := s.cacheSvc.SetString(ctx, refreshKey(refreshToken), profile.ID.String(), time.Duration(s.refreshTTL)*time.Second); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	return &models.AuthSession{
		TokenResponse: models.TokenResponse{
			AccessToken:  accessToken,
			TokenType:    "Bearer",
			ExpiresIn:    s.tokenTTL,
			RefreshToken: refreshToken,
			UserID:       profile.ID.String(),
			TokenID:      tokenID,
			IssuedAt:     now,
		},
		User: profile,
	}, nil
}

// generateSecureToken returns 32 random bytes, URL-safe encoded
func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate token")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// refreshKey stores only a SHA-256 of the refresh token
func refreshKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "restaurantpos:refresh:" + hex.EncodeToString(sum[:])
}
