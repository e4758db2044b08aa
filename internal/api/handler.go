package api

import (
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/paindiary/internal/logger"
	"github.com/terraincognita07/paindiary/internal/metrics"
	"github.com/terraincognita07/paindiary/internal/services"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 12 * time.Hour

type Handler struct {
	manager        *services.DataManager
	secretKey      []byte
	passphraseHash []byte
	tokenTTL       time.Duration
	loginLimiter   *attemptLimiter
	log            *logger.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
}

type HandlerOptions struct {
	SecretKey      string
	PassphraseHash string
	TokenTTL       time.Duration
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

func NewHandler(manager *services.DataManager, options HandlerOptions) (*Handler, error) {
	if manager == nil {
		return nil, errors.New("data manager is required")
	}
	if strings.TrimSpace(options.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}
	hash := strings.TrimSpace(options.PassphraseHash)
	if hash == "" {
		return nil, errors.New("passphrase hash is required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, errors.New("passphrase hash is not a bcrypt hash")
	}
	if options.TokenTTL <= 0 {
		options.TokenTTL = defaultTokenTTL
	}
	if options.Logger == nil {
		options.Logger = logger.NewNop()
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Handler{
		manager:        manager,
		secretKey:      []byte(options.SecretKey),
		passphraseHash: []byte(hash),
		tokenTTL:       options.TokenTTL,
		loginLimiter:   newAttemptLimiter(loginAttemptLimit, loginAttemptWindow),
		log:            options.Logger.With("component", "api"),
		metrics:        options.Metrics,
		now:            options.Now,
	}, nil
}
