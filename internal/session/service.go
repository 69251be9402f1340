package session

import (
	"context"
	"fmt"
	"time"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
	"foh-coordinator/internal/utils"
)

type Store interface {
	GetToken(ctx context.Context, token string) (*models.SessionToken, error)
	InsertToken(ctx context.Context, token *models.SessionToken) error
	CloseActiveForTable(ctx context.Context, tableID string) error
	SetTokenStatus(ctx context.Context, token string, from, to models.SessionStatus) (bool, error)
}

// Service mints and checks the self-order session tokens printed as QR codes
// on the table slip.
type Service struct {
	DB      Store
	TTL     time.Duration
	BaseURL string
	Logger  *logger.Logger
	now     func() time.Time
}

func NewService(db Store, ttl time.Duration, baseURL string, log *logger.Logger) *Service {
	return &Service{DB: db, TTL: ttl, BaseURL: baseURL, Logger: log, now: time.Now}
}

// Issue supersedes any active token for the table before minting a new one,
// so a re-used table or takeaway slot never leaks a stale QR link. At most
// one active token per table holds at all times.
func (s *Service) Issue(ctx context.Context, tableID string) (*models.SessionToken, error) {
	if err := s.DB.CloseActiveForTable(ctx, tableID); err != nil {
		return nil, fmt.Errorf("supersede sessions for %s: %w", tableID, err)
	}

	value, err := utils.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	token := &models.SessionToken{
		Token:     value,
		TableID:   tableID,
		Status:    models.SessionActive,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.TTL),
	}
	if err := s.DB.InsertToken(ctx, token); err != nil {
		return nil, fmt.Errorf("insert session token: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("SESSION", fmt.Sprintf("issued token for table %s, expires %s", tableID, token.ExpiresAt.Format(time.RFC3339)))
	}
	return token, nil
}

// Validate resolves a token to its table id. Callers must re-validate on
// every request; tokens are never trusted as valid forever.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	st, err := s.DB.GetToken(ctx, token)
	if err != nil {
		return "", err
	}
	if st.Status != models.SessionActive {
		return "", fmt.Errorf("session is %s: %w", st.Status, apperr.ErrTokenExpired)
	}
	if !s.now().Before(st.ExpiresAt) {
		// Lazy expiry: flip the row so the audit trail shows why it died.
		if _, err := s.DB.SetTokenStatus(ctx, token, models.SessionActive, models.SessionExpired); err != nil && s.Logger != nil {
			s.Logger.Warn("SESSION", fmt.Sprintf("expire token: %v", err))
		}
		return "", fmt.Errorf("session expired at %s: %w", st.ExpiresAt.Format(time.RFC3339), apperr.ErrTokenExpired)
	}
	return st.TableID, nil
}

// Close ends a session after settlement. Closing an already closed token is
// not an error.
func (s *Service) Close(ctx context.Context, token string) error {
	if _, err := s.DB.SetTokenStatus(ctx, token, models.SessionActive, models.SessionCompleted); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// CloseForTable ends whatever session is active on the table. Idempotent;
// the checkout coordinator calls it after winning the settlement guard.
func (s *Service) CloseForTable(ctx context.Context, tableID string) error {
	return s.DB.CloseActiveForTable(ctx, tableID)
}

// SelfOrderURL is the public link a customer lands on when scanning the QR.
func (s *Service) SelfOrderURL(token string) string {
	return fmt.Sprintf("%s/%s", s.BaseURL, token)
}
