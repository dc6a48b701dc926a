/*
Package shortlink issues short codes for filing documents and counts how
often each one is followed.
*/
package shortlink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/types"
)

const maxCreateAttempts = 5

type Service struct {
	store   Store
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
	newCode func() (string, error)
}

func NewService(store Store, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
		newCode: func() (string, error) { return GenerateCode(DefaultCodeLength) },
	}
}

// ShortURL is the public address a code is served under.
func (s *Service) ShortURL(code string) string {
	return s.baseURL + "/l/" + code
}

func (s *Service) CreateShortLink(ctx context.Context, original string, meta types.LinkMetadata) (string, error) {
	code, err := s.CreateShortLinkCode(ctx, original, meta)
	if err != nil {
		return "", err
	}
	return s.ShortURL(code), nil
}

func (s *Service) CreateShortLinkCode(ctx context.Context, original string, meta types.LinkMetadata) (string, error) {
	original = strings.TrimSpace(original)
	if err := validateURL(original); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}

		link := types.ShortLink{
			ShortCode:   code,
			OriginalURL: original,
			CreatedAt:   s.now().UTC(),
			Metadata:    meta,
		}

		err = s.store.Create(ctx, link)
		if errors.Is(err, ErrCodeExists) {
			s.logger.Debug("short code collision", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return "", err
		}

		s.logger.Info("short link created",
			zap.String("code", code),
			zap.String("stock_code", meta.StockCode),
		)
		return code, nil
	}

	return "", fmt.Errorf("failed to allocate a unique short code after %d attempts: %w", maxCreateAttempts, ErrCodeExists)
}

// ResolveShortLink returns the original URL and counts the visit. ok is false
// for malformed or unknown codes.
func (s *Service) ResolveShortLink(ctx context.Context, code string) (string, bool, error) {
	if ValidateCode(code) != nil {
		return "", false, nil
	}

	link, err := s.store.Get(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := s.store.IncrementClicks(ctx, code); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	return link.OriginalURL, true, nil
}

func (s *Service) GetAllLinksAnalytics(ctx context.Context) ([]types.ShortLink, error) {
	return s.store.List(ctx)
}

func validateURL(raw string) error {
	if err := validation.Validate(raw, validation.Required, is.RequestURL); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return nil
}
