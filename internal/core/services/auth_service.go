package services

import (
	"context"
	"errors"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
	"remoteeye/pkg/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrRefreshInvalid     = errors.New("invalid refresh token")
	ErrInvalidPairingCode = errors.New("invalid or expired pairing code")
	ErrPairingCodeActive  = errors.New("an active pairing code already exists for this claim")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const pairingCodeLength = 6

// AuthService is the gate every connection and REST caller passes through:
// pairing-code issue/redeem, token verification and refresh.
type AuthService interface {
	IssuePairingCode(ctx context.Context, claim string) (*domain.PairingCode, error)
	RedeemPairingCode(ctx context.Context, code, name string, info map[string]interface{}) (*PairingResult, error)
	LookupPairingCode(ctx context.Context, code string) (*domain.PairingCode, error)
	RegisterController(ctx context.Context, deviceID domain.DeviceID, name string) (*TokenPair, error)
	Login(ctx context.Context, deviceID domain.DeviceID, secret string) (*TokenPair, error)
	VerifyAccessToken(token string) (*Claims, error)
	Refresh(refreshToken string) (string, error)
	AccessTokenTTL() time.Duration
}

// Claims carries the relay identity inside a JWT: subject is the device or
// controller id, Role says which class of connection the token admits.
type Claims struct {
	Role    domain.Role `json:"role"`
	Refresh bool        `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token pair plus the access expiry in seconds.
type TokenPair struct {
	Identity     string `json:"identity"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// PairingResult is returned when a pairing code is redeemed: the freshly
// created device plus its one-time plaintext secret and token pair.
type PairingResult struct {
	Device *domain.Device
	Secret string
	Tokens TokenPair
}

type authService struct {
	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	pairingCodeTTL  time.Duration
	devices         ports.DeviceRepository
	pairings        ports.PairingCodeRepository
}

func NewAuthService(
	jwtSecret string,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
	pairingCodeTTL time.Duration,
	devices ports.DeviceRepository,
	pairings ports.PairingCodeRepository,
) AuthService {
	return &authService{
		jwtSecret:       []byte(jwtSecret),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		pairingCodeTTL:  pairingCodeTTL,
		devices:         devices,
		pairings:        pairings,
	}
}

func (s *authService) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

func (s *authService) IssuePairingCode(ctx context.Context, claim string) (*domain.PairingCode, error) {
	// Expired codes are garbage; sweep before checking for an active one.
	if _, err := s.pairings.DeleteExpired(ctx, time.Now()); err != nil {
		return nil, err
	}

	if claim != "" {
		existing, err := s.pairings.FindActiveByClaim(ctx, claim)
		if err != nil && !errors.Is(err, domain.ErrPairingCodeNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, ErrPairingCodeActive
		}
	}

	raw, err := crypto.GeneratePairingCode(pairingCodeLength)
	if err != nil {
		return nil, err
	}

	code := &domain.PairingCode{
		Code:      raw,
		Claim:     claim,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.pairingCodeTTL),
	}
	if err := s.pairings.Create(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

func (s *authService) RedeemPairingCode(ctx context.Context, code, name string, info map[string]interface{}) (*PairingResult, error) {
	pairing, err := s.pairings.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrPairingCodeNotFound) {
			return nil, ErrInvalidPairingCode
		}
		return nil, err
	}
	if !pairing.Active(time.Now()) {
		return nil, ErrInvalidPairingCode
	}

	secret, err := crypto.GenerateSecret()
	if err != nil {
		return nil, err
	}
	secretHash, err := crypto.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	device := &domain.Device{
		ID:         domain.DeviceID(uuid.New().String()),
		Name:       name,
		SecretHash: secretHash,
		Presence:   domain.PresenceOffline,
		LastSeen:   now,
		Info:       info,
		Settings:   map[string]interface{}{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// Redeem is atomic per code; a concurrent second redeem loses here.
	// Claiming the code before creating the device means a lost race leaves
	// no orphaned device row behind.
	if err := s.pairings.Redeem(ctx, code, device.ID); err != nil {
		if errors.Is(err, domain.ErrPairingCodeNotFound) {
			return nil, ErrInvalidPairingCode
		}
		return nil, err
	}

	if err := s.devices.Create(ctx, device); err != nil {
		return nil, err
	}

	tokens, err := s.tokenPair(string(device.ID), domain.RoleDevice)
	if err != nil {
		return nil, err
	}

	return &PairingResult{Device: device, Secret: secret, Tokens: *tokens}, nil
}

func (s *authService) LookupPairingCode(ctx context.Context, code string) (*domain.PairingCode, error) {
	return s.pairings.GetByCode(ctx, code)
}

func (s *authService) RegisterController(ctx context.Context, deviceID domain.DeviceID, name string) (*TokenPair, error) {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.tokenPair(uuid.New().String(), domain.RoleController)
}

func (s *authService) Login(ctx context.Context, deviceID domain.DeviceID, secret string) (*TokenPair, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !crypto.VerifySecret(secret, device.SecretHash) {
		return nil, ErrInvalidCredentials
	}
	return s.tokenPair(string(device.ID), domain.RoleDevice)
}

func (s *authService) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Refresh {
		// A refresh token must not open a session.
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) Refresh(refreshTokenString string) (string, error) {
	claims, err := s.parse(refreshTokenString)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return "", ErrRefreshInvalid
		}
		return "", ErrRefreshInvalid
	}
	if !claims.Refresh {
		return "", ErrRefreshInvalid
	}
	return s.signAccessToken(claims.Subject, claims.Role)
}

func (s *authService) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *authService) tokenPair(identity string, role domain.Role) (*TokenPair, error) {
	access, err := s.signAccessToken(identity, role)
	if err != nil {
		return nil, err
	}

	refreshClaims := &Claims{
		Role:    role,
		Refresh: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.refreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Identity:     identity,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTokenTTL / time.Second),
	}, nil
}

func (s *authService) signAccessToken(identity string, role domain.Role) (string, error) {
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
