package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"finlead/internal/metrics"
	"finlead/internal/repositories"
	"finlead/internal/utils"
)

const (
	// CodeTTL is the validity window of an issued code.
	CodeTTL = 5 * time.Minute

	// DefaultMaxAttempts is how many wrong codes are tolerated before the
	// pending record is discarded.
	DefaultMaxAttempts = 5

	// RoleClient is the role claim minted into every session credential.
	RoleClient = "client"
)

var (
	ErrAccountNotFound   = errors.New("no account matches this phone number")
	ErrCodeNotFound      = errors.New("no pending code for this phone number")
	ErrCodeExpired       = errors.New("pending code has expired")
	ErrCodeMismatch      = errors.New("submitted code does not match")
	ErrAttemptsExhausted = errors.New("too many failed attempts")
)

// VerifyPolicy bounds how often a pending code may be guessed.
type VerifyPolicy struct {
	MaxAttempts int
}

// IssueResult reports a successful code issuance. Mock is set when the
// outbound SMS was simulated.
type IssueResult struct {
	Mock bool
}

type OTPService interface {
	RequestCode(ctx context.Context, phoneNumber string) (*IssueResult, error)
	VerifyCode(ctx context.Context, phoneNumber, code string) (string, error)
}

type otpService struct {
	codes    repositories.CodeRepository
	accounts repositories.AccountRepository
	gateway  SMSGateway
	tokens   TokenIssuer
	policy   VerifyPolicy
}

func NewOTPService(codes repositories.CodeRepository, accounts repositories.AccountRepository, gateway SMSGateway, tokens TokenIssuer, policy VerifyPolicy) OTPService {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	return &otpService{codes: codes, accounts: accounts, gateway: gateway, tokens: tokens, policy: policy}
}

// RequestCode issues a fresh code for a phone number bound to an existing
// account and sends it over SMS. Re-issuing overwrites any previous pending
// code for the same number, which is the resend behavior. A gateway failure
// after the code was persisted leaves the record in place; the caller can
// retry the send or verify a previously received code.
func (s *otpService) RequestCode(ctx context.Context, phoneNumber string) (*IssueResult, error) {
	phoneKey := utils.NormalizePhone(phoneNumber)
	variants := utils.PhoneLookupVariants(phoneNumber)

	account, err := s.accounts.FindByPhone(ctx, variants)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if account == nil {
		log.Info().Str("phone_key", phoneKey).Msg("Code requested for unknown phone number")
		return nil, ErrAccountNotFound
	}

	code, err := utils.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.codes.Put(ctx, phoneKey, code, CodeTTL); err != nil {
		return nil, err
	}
	metrics.CodesIssuedTotal.Inc()

	message := fmt.Sprintf("Twoj kod weryfikacyjny: %s. Kod jest wazny przez 5 minut.", code)
	if err := s.gateway.Send(ctx, "+"+phoneKey, message); err != nil {
		metrics.SMSSendErrorsTotal.Inc()
		log.Error().Err(err).Str("phone_key", phoneKey).Msg("SMS send failed, pending code left in place")
		return nil, err
	}

	mode := "live"
	if s.gateway.Mock() {
		mode = "mock"
	}
	metrics.SMSSendsTotal.WithLabelValues(mode).Inc()
	log.Info().Str("phone_key", phoneKey).Bool("mock", s.gateway.Mock()).Msg("Verification code issued")

	return &IssueResult{Mock: s.gateway.Mock()}, nil
}

// VerifyCode validates a submitted code and mints a session credential on
// success. The pending record is consumed on success, on expiry, and when
// the attempt budget is exhausted; a plain mismatch leaves it in place so
// the user can retry.
func (s *otpService) VerifyCode(ctx context.Context, phoneNumber, code string) (string, error) {
	phoneKey := utils.NormalizePhone(phoneNumber)

	pending, err := s.codes.Get(ctx, phoneKey)
	if err != nil {
		return "", fmt.Errorf("pending code lookup failed: %w", err)
	}
	if pending == nil {
		metrics.CodeVerificationsTotal.WithLabelValues("not_found").Inc()
		return "", ErrCodeNotFound
	}

	if time.Now().After(pending.ExpiresAt) {
		if err := s.codes.Delete(ctx, phoneKey); err != nil {
			return "", err
		}
		metrics.CodeVerificationsTotal.WithLabelValues("expired").Inc()
		return "", ErrCodeExpired
	}

	if pending.Attempts >= s.policy.MaxAttempts {
		if err := s.codes.Delete(ctx, phoneKey); err != nil {
			return "", err
		}
		metrics.CodeVerificationsTotal.WithLabelValues("exhausted").Inc()
		log.Warn().Str("phone_key", phoneKey).Int("attempts", pending.Attempts).Msg("Attempt budget exhausted, pending code discarded")
		return "", ErrAttemptsExhausted
	}

	if pending.Code != code {
		if err := s.codes.IncrementAttempts(ctx, phoneKey); err != nil {
			return "", err
		}
		metrics.CodeVerificationsTotal.WithLabelValues("mismatch").Inc()
		return "", ErrCodeMismatch
	}

	account, err := s.accounts.FindByPhone(ctx, utils.PhoneLookupVariants(phoneNumber))
	if err != nil {
		return "", fmt.Errorf("account lookup failed: %w", err)
	}
	if account == nil {
		// The account was deleted between request and verify.
		metrics.CodeVerificationsTotal.WithLabelValues("account_missing").Inc()
		return "", ErrAccountNotFound
	}

	token, err := s.tokens.Mint(account.ID.Hex(), RoleClient)
	if err != nil {
		return "", fmt.Errorf("failed to mint session token: %w", err)
	}

	if err := s.codes.Delete(ctx, phoneKey); err != nil {
		return "", err
	}

	metrics.CodeVerificationsTotal.WithLabelValues("success").Inc()
	log.Info().Str("phone_key", phoneKey).Str("account_id", account.ID.Hex()).Msg("Phone verification succeeded")

	return token, nil
}
