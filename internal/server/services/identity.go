// Package services contains server-side business logic. IdentityService
// handles sign-up, sign-in, token refresh, password reset and the
// recent-login protected account operations.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/cryptox"
	"github.com/dmitrijs2005/linkstash/internal/dbx"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/dmitrijs2005/linkstash/internal/server/auth"
	"github.com/dmitrijs2005/linkstash/internal/server/config"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/repomanager"
	"github.com/sethvargo/go-password/password"
)

const minPasswordLength = 6

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type IdentityService struct {
	repomanager                  repomanager.RepositoryManager
	mailer                       Mailer
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	recentLoginWindow            time.Duration
	resetCodeValidity            time.Duration
	now                          func() time.Time
}

func NewIdentityService(m repomanager.RepositoryManager, cfg *config.Config, mailer Mailer, logger logging.Logger) *IdentityService {
	return &IdentityService{
		repomanager:                  m,
		mailer:                       mailer,
		logger:                       logger,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		recentLoginWindow:            cfg.RecentLoginWindow,
		resetCodeValidity:            cfg.ResetCodeValidity,
		now:                          time.Now,
	}
}

func authErr(code common.AuthCode) error {
	return common.NewAuthError(code)
}

// internal logs err and hides it behind the generic internal code.
func (s *IdentityService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "identity operation failed", "op", op, "error", err)
	return authErr(common.CodeInternal)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", authErr(common.CodeInvalidEmail)
	}
	return email, nil
}

func checkPasswordStrength(pw string) error {
	if len([]rune(pw)) < minPasswordLength {
		return authErr(common.CodeWeakPassword)
	}
	return nil
}

// CreateIdentity registers a new account and signs it in.
func (s *IdentityService) CreateIdentity(ctx context.Context, email, pw string) (*models.Identity, *TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if err := checkPasswordStrength(pw); err != nil {
		return nil, nil, err
	}

	salt, verifier := cryptox.NewCredentials(pw)

	var (
		identity *models.Identity
		pair     *TokenPair
	)
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Identities(tx).Create(ctx, &models.Identity{Email: email, Salt: salt, Verifier: verifier})
		if err != nil {
			return err
		}
		identity = created
		pair, err = s.generateTokenPair(ctx, tx, created.ID, s.now())
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, authErr(common.CodeEmailAlreadyInUse)
		}
		return nil, nil, s.internal(ctx, "create identity", err)
	}
	return identity, pair, nil
}

// SignIn verifies email and password and mints a token pair.
func (s *IdentityService) SignIn(ctx context.Context, email, pw string) (*models.Identity, *TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}

	identity, err := s.repomanager.Identities(s.repomanager.DB()).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, authErr(common.CodeUserNotFound)
		}
		return nil, nil, s.internal(ctx, "sign in", err)
	}
	if !cryptox.CheckPassword(pw, identity.Salt, identity.Verifier) {
		return nil, nil, authErr(common.CodeWrongPassword)
	}

	pair, err := s.generateTokenPair(ctx, s.repomanager.DB(), identity.ID, s.now())
	if err != nil {
		return nil, nil, s.internal(ctx, "sign in", err)
	}
	return identity, pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired,
// unknown ones ErrorUnauthorized.
func (s *IdentityService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	digest := models.DigestRefreshToken(refreshToken)
	token, err := s.repomanager.RefreshTokens(s.repomanager.DB()).Find(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expired(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, digest); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, tx, token.UserID, token.AuthTime)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// SignOut revokes refreshToken, or every refresh token of userID when
// refreshToken is empty.
func (s *IdentityService) SignOut(ctx context.Context, userID, refreshToken string) error {
	repo := s.repomanager.RefreshTokens(s.repomanager.DB())
	var err error
	if refreshToken == "" {
		err = repo.DeleteByUser(ctx, userID)
	} else {
		err = repo.Delete(ctx, models.DigestRefreshToken(refreshToken))
	}
	if err != nil {
		return s.internal(ctx, "sign out", err)
	}
	return nil
}

// Email returns the email of userID.
func (s *IdentityService) Email(ctx context.Context, userID string) (string, error) {
	identity, err := s.repomanager.Identities(s.repomanager.DB()).GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return identity.Email, nil
}

// Reauthenticate re-checks the password of userID and returns tokens with a
// fresh authentication time.
func (s *IdentityService) Reauthenticate(ctx context.Context, userID, pw string) (*TokenPair, error) {
	identity, err := s.repomanager.Identities(s.repomanager.DB()).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, authErr(common.CodeUserNotFound)
		}
		return nil, s.internal(ctx, "reauthenticate", err)
	}
	if !cryptox.CheckPassword(pw, identity.Salt, identity.Verifier) {
		return nil, authErr(common.CodeWrongPassword)
	}

	pair, err := s.generateTokenPair(ctx, s.repomanager.DB(), identity.ID, s.now())
	if err != nil {
		return nil, s.internal(ctx, "reauthenticate", err)
	}
	return pair, nil
}

func (s *IdentityService) requireRecentLogin(caller auth.Caller) error {
	if s.now().Sub(caller.AuthTime) > s.recentLoginWindow {
		return authErr(common.CodeRequiresRecentLogin)
	}
	return nil
}

// UpdatePassword replaces the caller's password. The caller must have
// entered their password within the recent login window.
func (s *IdentityService) UpdatePassword(ctx context.Context, caller auth.Caller, newPassword string) error {
	if err := s.requireRecentLogin(caller); err != nil {
		return err
	}
	if err := checkPasswordStrength(newPassword); err != nil {
		return err
	}

	salt, verifier := cryptox.NewCredentials(newPassword)
	err := s.repomanager.Identities(s.repomanager.DB()).UpdateCredentials(ctx, caller.UserID, salt, verifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return authErr(common.CodeUserNotFound)
		}
		return s.internal(ctx, "update password", err)
	}
	return nil
}

// DeleteIdentity removes the caller's account and all of its tokens.
func (s *IdentityService) DeleteIdentity(ctx context.Context, caller auth.Caller) error {
	if err := s.requireRecentLogin(caller); err != nil {
		return err
	}

	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, caller.UserID); err != nil {
			return err
		}
		return s.repomanager.Identities(tx).Delete(ctx, caller.UserID)
	})
	if err != nil {
		return s.internal(ctx, "delete identity", err)
	}
	return nil
}

// SendPasswordResetEmail issues a reset code for email and hands it to the
// mailer.
func (s *IdentityService) SendPasswordResetEmail(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	identity, err := s.repomanager.Identities(s.repomanager.DB()).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return authErr(common.CodeUserNotFound)
		}
		return s.internal(ctx, "send reset", err)
	}

	code, err := password.Generate(10, 4, 0, false, true)
	if err != nil {
		return s.internal(ctx, "send reset", err)
	}

	rc := &models.ResetCode{Code: code, UserID: identity.ID, Email: identity.Email, Expires: s.now().Add(s.resetCodeValidity)}
	if err := s.repomanager.ResetCodes(s.repomanager.DB()).Create(ctx, rc); err != nil {
		return s.internal(ctx, "send reset", err)
	}
	if err := s.mailer.SendResetCode(ctx, identity.Email, code); err != nil {
		return s.internal(ctx, "send reset", err)
	}
	return nil
}

func (s *IdentityService) findResetCode(ctx context.Context, db dbx.DBTX, code string) (*models.ResetCode, error) {
	repo := s.repomanager.ResetCodes(db)
	rc, err := repo.Find(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, authErr(common.CodeInvalidResetCode)
		}
		return nil, err
	}
	if rc.Expires.Before(s.now()) {
		_ = repo.Delete(ctx, code)
		return nil, authErr(common.CodeExpiredResetCode)
	}
	return rc, nil
}

// VerifyResetCode returns the email a valid reset code was issued for.
func (s *IdentityService) VerifyResetCode(ctx context.Context, code string) (string, error) {
	rc, err := s.findResetCode(ctx, s.repomanager.DB(), code)
	if err != nil {
		if _, ok := common.AuthCodeOf(err); ok {
			return "", err
		}
		return "", s.internal(ctx, "verify reset code", err)
	}
	return rc.Email, nil
}

// ConfirmPasswordReset consumes code and sets newPassword. Existing sessions
// of the account are revoked.
func (s *IdentityService) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	if err := checkPasswordStrength(newPassword); err != nil {
		return err
	}
	salt, verifier := cryptox.NewCredentials(newPassword)

	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		rc, err := s.findResetCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := s.repomanager.Identities(tx).UpdateCredentials(ctx, rc.UserID, salt, verifier); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return authErr(common.CodeUserNotFound)
			}
			return err
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, rc.UserID); err != nil {
			return err
		}
		return s.repomanager.ResetCodes(tx).Delete(ctx, code)
	})
	if err != nil {
		if _, ok := common.AuthCodeOf(err); ok {
			return err
		}
		return s.internal(ctx, "confirm reset", err)
	}
	return nil
}

func (s *IdentityService) generateTokenPair(ctx context.Context, db dbx.DBTX, userID string, authTime time.Time) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, authTime, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}
	repo := s.repomanager.RefreshTokens(db)
	now := s.now()
	if n, err := repo.DeleteExpired(ctx, userID, now); err != nil {
		return nil, err
	} else if n > 0 {
		s.logger.Debug(ctx, "purged expired refresh tokens", "user", userID, "count", n)
	}
	err = repo.Create(ctx, models.RefreshToken{
		UserID:    userID,
		Digest:    models.DigestRefreshToken(refresh),
		AuthTime:  authTime,
		ExpiresAt: now.Add(s.refreshTokenValidityDuration),
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
