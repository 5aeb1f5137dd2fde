package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"finlead/internal/models"
)

type fakeCodeRepo struct {
	codes map[string]*models.PendingCode
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: make(map[string]*models.PendingCode)}
}

func (r *fakeCodeRepo) Put(ctx context.Context, phoneKey, code string, ttl time.Duration) error {
	now := time.Now()
	r.codes[phoneKey] = &models.PendingCode{
		PhoneKey:  phoneKey,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *fakeCodeRepo) Get(ctx context.Context, phoneKey string) (*models.PendingCode, error) {
	pending, ok := r.codes[phoneKey]
	if !ok {
		return nil, nil
	}
	copied := *pending
	return &copied, nil
}

func (r *fakeCodeRepo) IncrementAttempts(ctx context.Context, phoneKey string) error {
	if pending, ok := r.codes[phoneKey]; ok {
		pending.Attempts++
	}
	return nil
}

func (r *fakeCodeRepo) Delete(ctx context.Context, phoneKey string) error {
	delete(r.codes, phoneKey)
	return nil
}

type fakeAccountRepo struct {
	accounts []*models.Account
}

func (r *fakeAccountRepo) FindByPhone(ctx context.Context, variants []string) (*models.Account, error) {
	for _, account := range r.accounts {
		for _, variant := range variants {
			if account.Phone == variant {
				return account, nil
			}
		}
	}
	return nil, nil
}

type sentSMS struct {
	to      string
	message string
}

type fakeGateway struct {
	sent []sentSMS
	mock bool
	fail error
}

func (g *fakeGateway) Mock() bool { return g.mock }

func (g *fakeGateway) Send(ctx context.Context, to, message string) error {
	if g.fail != nil {
		return g.fail
	}
	g.sent = append(g.sent, sentSMS{to: to, message: message})
	return nil
}

type fakeIssuer struct{}

func (i *fakeIssuer) Mint(accountID, role string) (string, error) {
	return "token-" + accountID + "-" + role, nil
}

func newTestService(codes *fakeCodeRepo, accounts *fakeAccountRepo, gateway *fakeGateway) OTPService {
	return NewOTPService(codes, accounts, gateway, &fakeIssuer{}, VerifyPolicy{MaxAttempts: 3})
}

func directoryWith(phone string) *fakeAccountRepo {
	return &fakeAccountRepo{accounts: []*models.Account{
		{ID: primitive.NewObjectID(), Phone: phone, FirstName: "Anna"},
	}}
}

func TestRequestCode(t *testing.T) {
	t.Run("issues and stores a code for a known phone", func(t *testing.T) {
		codes := newFakeCodeRepo()
		gateway := &fakeGateway{}
		svc := newTestService(codes, directoryWith("+48500123456"), gateway)

		result, err := svc.RequestCode(context.Background(), "500 123 456")
		assert.NoError(t, err)
		assert.False(t, result.Mock)

		pending := codes.codes["48500123456"]
		assert.NotNil(t, pending)
		assert.Len(t, pending.Code, 6)
		assert.Equal(t, 0, pending.Attempts)
		assert.WithinDuration(t, time.Now().Add(CodeTTL), pending.ExpiresAt, 2*time.Second)

		assert.Len(t, gateway.sent, 1)
		assert.Equal(t, "+48500123456", gateway.sent[0].to)
		assert.Contains(t, gateway.sent[0].message, pending.Code)
	})

	t.Run("matches accounts stored with the raw input format", func(t *testing.T) {
		codes := newFakeCodeRepo()
		gateway := &fakeGateway{}
		svc := newTestService(codes, directoryWith("500 123 456"), gateway)

		_, err := svc.RequestCode(context.Background(), "500 123 456")
		assert.NoError(t, err)
	})

	t.Run("unknown phone does not send or store", func(t *testing.T) {
		codes := newFakeCodeRepo()
		gateway := &fakeGateway{}
		svc := newTestService(codes, &fakeAccountRepo{}, gateway)

		_, err := svc.RequestCode(context.Background(), "500 123 456")
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.Empty(t, codes.codes)
		assert.Empty(t, gateway.sent)
	})

	t.Run("mock gateway still stores a retrievable code", func(t *testing.T) {
		codes := newFakeCodeRepo()
		gateway := &fakeGateway{mock: true}
		svc := newTestService(codes, directoryWith("+48500123456"), gateway)

		result, err := svc.RequestCode(context.Background(), "500123456")
		assert.NoError(t, err)
		assert.True(t, result.Mock)
		assert.NotNil(t, codes.codes["48500123456"])
	})

	t.Run("gateway failure surfaces but leaves the code stored", func(t *testing.T) {
		codes := newFakeCodeRepo()
		gateway := &fakeGateway{fail: &GatewayError{StatusCode: 502, Details: "upstream unavailable"}}
		svc := newTestService(codes, directoryWith("+48500123456"), gateway)

		_, err := svc.RequestCode(context.Background(), "500123456")
		var gwErr *GatewayError
		assert.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "upstream unavailable", gwErr.Details)
		assert.NotNil(t, codes.codes["48500123456"])
	})

	t.Run("resend supersedes the previous code", func(t *testing.T) {
		codes := newFakeCodeRepo()
		gateway := &fakeGateway{}
		svc := newTestService(codes, directoryWith("+48500123456"), gateway)

		_, err := svc.RequestCode(context.Background(), "500123456")
		assert.NoError(t, err)

		// Pin a code that cannot collide with the second draw.
		first := "000000"
		codes.codes["48500123456"].Code = first

		_, err = svc.RequestCode(context.Background(), "500123456")
		assert.NoError(t, err)

		_, err = svc.VerifyCode(context.Background(), "500123456", first)
		assert.ErrorIs(t, err, ErrCodeMismatch)
	})
}

func TestVerifyCode(t *testing.T) {
	issue := func(t *testing.T, codes *fakeCodeRepo, svc OTPService) string {
		t.Helper()
		_, err := svc.RequestCode(context.Background(), "500123456")
		assert.NoError(t, err)
		return codes.codes["48500123456"].Code
	}

	t.Run("round trip issues a token and consumes the code", func(t *testing.T) {
		codes := newFakeCodeRepo()
		svc := newTestService(codes, directoryWith("+48500123456"), &fakeGateway{})
		code := issue(t, codes, svc)

		token, err := svc.VerifyCode(context.Background(), "500 123 456", code)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Contains(t, token, RoleClient)

		// One-time use: the same code must not verify twice.
		_, err = svc.VerifyCode(context.Background(), "500 123 456", code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("no pending code", func(t *testing.T) {
		svc := newTestService(newFakeCodeRepo(), directoryWith("+48500123456"), &fakeGateway{})

		_, err := svc.VerifyCode(context.Background(), "500123456", "123456")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("expired code is rejected and removed", func(t *testing.T) {
		codes := newFakeCodeRepo()
		svc := newTestService(codes, directoryWith("+48500123456"), &fakeGateway{})
		code := issue(t, codes, svc)

		codes.codes["48500123456"].ExpiresAt = time.Now().Add(-time.Millisecond)

		_, err := svc.VerifyCode(context.Background(), "500123456", code)
		assert.ErrorIs(t, err, ErrCodeExpired)
		assert.Empty(t, codes.codes)

		_, err = svc.VerifyCode(context.Background(), "500123456", code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("code valid just before expiry", func(t *testing.T) {
		codes := newFakeCodeRepo()
		svc := newTestService(codes, directoryWith("+48500123456"), &fakeGateway{})
		code := issue(t, codes, svc)

		codes.codes["48500123456"].ExpiresAt = time.Now().Add(50 * time.Millisecond)

		_, err := svc.VerifyCode(context.Background(), "500123456", code)
		assert.NoError(t, err)
	})

	t.Run("mismatch does not consume the code", func(t *testing.T) {
		codes := newFakeCodeRepo()
		svc := newTestService(codes, directoryWith("+48500123456"), &fakeGateway{})
		code := issue(t, codes, svc)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		_, err := svc.VerifyCode(context.Background(), "500123456", wrong)
		assert.ErrorIs(t, err, ErrCodeMismatch)
		_, err = svc.VerifyCode(context.Background(), "500123456", wrong)
		assert.ErrorIs(t, err, ErrCodeMismatch)
		assert.Equal(t, 2, codes.codes["48500123456"].Attempts)

		token, err := svc.VerifyCode(context.Background(), "500123456", code)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("attempt budget exhaustion discards the code", func(t *testing.T) {
		codes := newFakeCodeRepo()
		svc := newTestService(codes, directoryWith("+48500123456"), &fakeGateway{})
		code := issue(t, codes, svc)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		for i := 0; i < 3; i++ {
			_, err := svc.VerifyCode(context.Background(), "500123456", wrong)
			assert.ErrorIs(t, err, ErrCodeMismatch)
		}

		// Budget spent: even the correct code is refused and the record
		// removed.
		_, err := svc.VerifyCode(context.Background(), "500123456", code)
		assert.ErrorIs(t, err, ErrAttemptsExhausted)
		assert.Empty(t, codes.codes)

		_, err = svc.VerifyCode(context.Background(), "500123456", code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("account deleted between request and verify", func(t *testing.T) {
		codes := newFakeCodeRepo()
		accounts := directoryWith("+48500123456")
		svc := newTestService(codes, accounts, &fakeGateway{})
		code := issue(t, codes, svc)

		accounts.accounts = nil

		_, err := svc.VerifyCode(context.Background(), "500123456", code)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestNewOTPServiceDefaultsPolicy(t *testing.T) {
	svc := NewOTPService(newFakeCodeRepo(), &fakeAccountRepo{}, &fakeGateway{}, &fakeIssuer{}, VerifyPolicy{})

	impl, ok := svc.(*otpService)
	assert.True(t, ok)
	assert.Equal(t, DefaultMaxAttempts, impl.policy.MaxAttempts)
}

func TestGatewayErrorMessage(t *testing.T) {
	err := &GatewayError{StatusCode: 500, Details: "quota exceeded"}
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.False(t, errors.Is(err, ErrAccountNotFound))
}
