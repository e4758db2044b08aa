package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenSubject  = "diary-owner"
	tokenAudience = "paindiary-api"
)

type loginInput struct {
	Passphrase string `json:"passphrase"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var errInvalidToken = errors.New("invalid token")

func (handler *Handler) Login(c *fiber.Ctx) error {
	key := clientKey(c)
	now := handler.now()
	if handler.loginLimiter.blocked(key, now) {
		wait := handler.loginLimiter.retryAfter(key, now)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(wait.Round(time.Second).Seconds())))
		return apiError(c, fiber.StatusTooManyRequests, "too many login attempts")
	}

	input := loginInput{}
	if err := decodeJSONBody(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if strings.TrimSpace(input.Passphrase) == "" {
		return apiError(c, fiber.StatusBadRequest, "passphrase is required")
	}
	if err := bcrypt.CompareHashAndPassword(handler.passphraseHash, []byte(input.Passphrase)); err != nil {
		handler.loginLimiter.fail(key, now)
		handler.log.Warn("login failed", "client", key)
		return apiError(c, fiber.StatusUnauthorized, "invalid passphrase")
	}
	handler.loginLimiter.reset(key)

	token, expiresAt, err := handler.buildToken(now)
	if err != nil {
		handler.log.Error("token signing failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to issue token")
	}
	return c.JSON(tokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (handler *Handler) buildToken(now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(handler.tokenTTL)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   tokenSubject,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(handler.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// AuthRequired accepts requests carrying a valid bearer token.
func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	if err := handler.authenticateRequest(c); err != nil {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.Next()
}

func (handler *Handler) authenticateRequest(c *fiber.Ctx) error {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, rawToken, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(rawToken) == "" {
		return errInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(rawToken), claims, func(token *jwt.Token) (interface{}, error) {
		return handler.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithSubject(tokenSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(handler.now),
	)
	if err != nil || !token.Valid {
		return errInvalidToken
	}
	return nil
}
