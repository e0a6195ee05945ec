package sessionservice

import (
	"context"
	"testing"
	"time"

	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/pkg/configpkg"
	"github.com/go-abel/nile-bank/pkg/randompkg"
	"github.com/go-abel/nile-bank/pkg/tokenpkg"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func testConfig() configpkg.Config {
	return configpkg.Config{
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	}
}

func newService(t *testing.T) (*Service, *MockRepo) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := NewMockRepo(ctrl)

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	return New(repo, testConfig(), tokenMaker), repo
}

func TestStart(t *testing.T) {
	service, repo := newService(t)

	arg := domain.CreateSessionParams{
		AccountID:     7,
		AccountNumber: randompkg.AccountNumber(),
		UserAgent:     "test-agent",
		ClientIP:      "127.0.0.1",
	}

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Times(1).
		DoAndReturn(func(_ context.Context, got domain.CreateSessionParams) (domain.Session, error) {
			require.Equal(t, arg.AccountID, got.AccountID)
			require.NotEmpty(t, got.ID)
			require.NotEmpty(t, got.RefreshToken)
			require.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Minute)

			return domain.Session{
				ID:           got.ID,
				AccountID:    got.AccountID,
				RefreshToken: got.RefreshToken,
				UserAgent:    got.UserAgent,
				ClientIP:     got.ClientIP,
				ExpiresAt:    got.ExpiresAt,
				CreatedAt:    time.Now(),
			}, nil
		})

	accessToken, accessExpiresAt, sess, err := service.Start(context.Background(), arg)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.WithinDuration(t, time.Now().Add(time.Minute), accessExpiresAt, time.Minute)
	require.Equal(t, arg.AccountID, sess.AccountID)

	// The access token must verify with the same maker and carry the account.
	payload, err := service.TokenMaker.VerifyToken(accessToken)
	require.NoError(t, err)
	require.Equal(t, arg.AccountID, payload.AccountID)
	require.Equal(t, arg.AccountNumber, payload.Subject)
}

func TestRenewAccessToken(t *testing.T) {
	arg := domain.CreateSessionParams{
		AccountID:     7,
		AccountNumber: randompkg.AccountNumber(),
	}

	// startSession runs Start against the given service to obtain a real
	// refresh token and the session the repo would have stored.
	startSession := func(t *testing.T, service *Service, repo *MockRepo) (string, domain.Session) {
		t.Helper()

		var stored domain.Session

		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Times(1).
			DoAndReturn(func(_ context.Context, got domain.CreateSessionParams) (domain.Session, error) {
				stored = domain.Session{
					ID:           got.ID,
					AccountID:    got.AccountID,
					RefreshToken: got.RefreshToken,
					ExpiresAt:    got.ExpiresAt,
					CreatedAt:    time.Now(),
				}

				return stored, nil
			})

		_, _, sess, err := service.Start(context.Background(), arg)
		require.NoError(t, err)

		return sess.RefreshToken, stored
	}

	t.Run("OK", func(t *testing.T) {
		service, repo := newService(t)
		refreshToken, stored := startSession(t, service, repo)

		repo.EXPECT().
			Get(gomock.Any(), gomock.Eq(stored.ID)).
			Times(1).
			Return(stored, nil)

		accessToken, expiresAt, err := service.RenewAccessToken(context.Background(), refreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, accessToken)
		require.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, time.Minute)

		payload, err := service.TokenMaker.VerifyToken(accessToken)
		require.NoError(t, err)
		require.Equal(t, arg.AccountID, payload.AccountID)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		service, _ := newService(t)

		_, _, err := service.RenewAccessToken(context.Background(), "not-a-token")
		require.ErrorIs(t, err, tokenpkg.ErrInvalidToken)
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		service, repo := newService(t)
		refreshToken, stored := startSession(t, service, repo)

		repo.EXPECT().
			Get(gomock.Any(), gomock.Eq(stored.ID)).
			Times(1).
			Return(domain.Session{}, domain.ErrSessionNotFound)

		_, _, err := service.RenewAccessToken(context.Background(), refreshToken)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Blocked", func(t *testing.T) {
		service, repo := newService(t)
		refreshToken, stored := startSession(t, service, repo)

		stored.IsBlocked = true

		repo.EXPECT().
			Get(gomock.Any(), gomock.Eq(stored.ID)).
			Times(1).
			Return(stored, nil)

		_, _, err := service.RenewAccessToken(context.Background(), refreshToken)
		require.ErrorIs(t, err, domain.ErrSessionBlocked)
	})

	t.Run("MismatchedToken", func(t *testing.T) {
		service, repo := newService(t)
		refreshToken, stored := startSession(t, service, repo)

		stored.RefreshToken = "another-refresh-token"

		repo.EXPECT().
			Get(gomock.Any(), gomock.Eq(stored.ID)).
			Times(1).
			Return(stored, nil)

		_, _, err := service.RenewAccessToken(context.Background(), refreshToken)
		require.ErrorIs(t, err, domain.ErrSessionMismatch)
	})

	t.Run("SessionExpired", func(t *testing.T) {
		service, repo := newService(t)
		refreshToken, stored := startSession(t, service, repo)

		stored.ExpiresAt = time.Now().Add(-time.Hour)

		repo.EXPECT().
			Get(gomock.Any(), gomock.Eq(stored.ID)).
			Times(1).
			Return(stored, nil)

		_, _, err := service.RenewAccessToken(context.Background(), refreshToken)
		require.ErrorIs(t, err, domain.ErrSessionExpired)
	})
}
