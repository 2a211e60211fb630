package service

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/ports"
)

// Authenticator runs the wallet challenge-response sign-in against the backend
type Authenticator struct {
	backend   ports.Backend
	wallet    ports.Wallet
	sessions  *SessionStore
	tokenizer ports.Tokenizer
	metrics   *metrics.Metrics
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(
	backend ports.Backend,
	wallet ports.Wallet,
	sessions *SessionStore,
	tokenizer ports.Tokenizer,
	m *metrics.Metrics,
) *Authenticator {
	return &Authenticator{
		backend:   backend,
		wallet:    wallet,
		sessions:  sessions,
		tokenizer: tokenizer,
		metrics:   m,
	}
}

// SignIn proves wallet ownership to the backend and refreshes the session.
// It returns false without side effects when the wallet is disconnected or cannot sign
// messages. A failing step aborts the rest and leaves the cached session untouched.
func (a *Authenticator) SignIn(ctx context.Context) (bool, error) {
	pk, ok := a.wallet.PublicKey()
	signer, canSign := a.wallet.(ports.MessageSigner)
	if !ok || !a.wallet.Connected() || !canSign {
		a.metrics.SignIns.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return false, nil
	}
	walletAddress := pk.String()

	ok, err := a.signIn(ctx, signer, walletAddress)
	if err != nil {
		a.metrics.SignIns.WithLabelValues(metrics.OutcomeFailure).Inc()
		logger.WarnCtx(ctx, "sign-in failed", zap.String("wallet", walletAddress), zap.Error(err))
		return false, err
	}

	outcome := metrics.OutcomeSuccess
	if !ok {
		outcome = metrics.OutcomeFailure
	}
	a.metrics.SignIns.WithLabelValues(outcome).Inc()
	return ok, nil
}

func (a *Authenticator) signIn(ctx context.Context, signer ports.MessageSigner, walletAddress string) (bool, error) {
	challenge, err := a.requestNonce(ctx, walletAddress)
	if err != nil {
		return false, err
	}

	rawSig, err := signer.SignMessage(ctx, []byte(challenge.Message))
	if err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrWalletSigning, err)
	}

	token, err := a.verify(ctx, core.VerifyRequest{
		WalletAddress: walletAddress,
		Nonce:         challenge.Nonce,
		Signature:     base58.Encode(rawSig),
	})
	if err != nil {
		return false, err
	}

	session, err := a.fetchSession(ctx)
	if err != nil {
		return false, err
	}
	a.sessions.Put(withTokenClaims(session, token))

	logger.InfoCtx(ctx, "signed in", zap.String("wallet", walletAddress), zap.Bool("session", session != nil))
	return session != nil, nil
}

func (a *Authenticator) requestNonce(ctx context.Context, walletAddress string) (*core.Challenge, error) {
	done := a.sessions.track()
	defer done()

	challenge, err := a.backend.RequestNonce(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to request nonce: %w", err)
	}
	return challenge, nil
}

// verify submits the signed challenge and returns what can be read from the issued token,
// nil when the backend sent none or it does not parse
func (a *Authenticator) verify(ctx context.Context, req core.VerifyRequest) (*core.SessionToken, error) {
	done := a.sessions.track()
	defer done()

	result, err := a.backend.VerifySignature(ctx, req)
	if err != nil {
		a.sessions.setAuthError(err)
		return nil, fmt.Errorf("failed to verify signature: %w", err)
	}
	a.sessions.setAuthError(nil)

	if result == nil || result.Token == "" || a.tokenizer == nil {
		return nil, nil
	}
	token, err := a.tokenizer.Inspect(result.Token)
	if err != nil {
		logger.DebugCtx(ctx, "session token not readable", zap.Error(err))
		return nil, nil
	}
	return token, nil
}

// withTokenClaims fills the subject and expiry the backend left out of the session from the token
func withTokenClaims(session *core.Session, token *core.SessionToken) *core.Session {
	if session == nil || token == nil {
		return session
	}

	merged := *session
	if merged.Subject == "" {
		merged.Subject = token.Subject
	}
	if merged.ExpiresAt == nil && token.ExpiresAt != nil {
		expiresAt := *token.ExpiresAt
		merged.ExpiresAt = &expiresAt
	}
	return &merged
}

func (a *Authenticator) fetchSession(ctx context.Context) (*core.Session, error) {
	done := a.sessions.track()
	defer done()

	session, err := a.backend.FetchAuthMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return session, nil
}

// EnsureAuthorized returns true when a session is cached, otherwise attempts a sign-in
func (a *Authenticator) EnsureAuthorized(ctx context.Context) (bool, error) {
	if a.sessions.Session() != nil {
		return true, nil
	}
	return a.SignIn(ctx)
}

// CheckSessionAlive refetches the session and reports whether one exists
func (a *Authenticator) CheckSessionAlive(ctx context.Context) (bool, error) {
	session, err := a.sessions.Refresh(ctx)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}
