package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/pkg/logger"
)

type stubProber struct {
	err    error
	calls  int
	secret string
}

func (s *stubProber) Probe(_ context.Context, secret string) error {
	s.calls++
	s.secret = secret
	return s.err
}

func newRegistry(t *testing.T, probe *stubProber) (*Registry, *time.Time) {
	t.Helper()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(NewMemoryStore(), logger.Nop()).WithClock(func() time.Time { return now })
	r.Register("openai", true, probe)
	r.Register("heuristic", false, nil)
	return r, &now
}

func TestRegistry_Availability(t *testing.T) {
	r, _ := newRegistry(t, &stubProber{})

	assert.True(t, r.IsAvailable("heuristic"), "secretless providers are always usable")
	assert.False(t, r.IsAvailable("openai"), "no secret yet")
	assert.False(t, r.IsAvailable("unknown"))

	require.NoError(t, r.SetCredential("openai", "sk-test-1234"))
	assert.True(t, r.IsAvailable("openai"))

	require.NoError(t, r.SetCredential("openai", ""))
	assert.False(t, r.IsAvailable("openai"))

	assert.ErrorIs(t, r.SetCredential("nope", "x"), domain.ErrUnknownProvider)
}

func TestRegistry_ValidateOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		probeErr   error
		wantValid  bool
		wantReason string
	}{
		{name: "accepted", wantValid: true, wantReason: domain.ReasonOK},
		{name: "unauthorized", probeErr: &domain.ProviderError{ProviderID: "openai", Kind: domain.ErrorKindAuth, HTTPStatus: 401}, wantReason: domain.ReasonUnauthorized},
		{name: "network", probeErr: &domain.ProviderError{ProviderID: "openai", Kind: domain.ErrorKindNetwork}, wantReason: domain.ReasonNetwork},
		{name: "deadline", probeErr: context.DeadlineExceeded, wantReason: domain.ReasonNetwork},
		{name: "quota", probeErr: &domain.ProviderError{ProviderID: "openai", Kind: domain.ErrorKindQuotaExhausted}, wantReason: string(domain.ErrorKindQuotaExhausted)},
		{name: "opaque", probeErr: errors.New("weird"), wantReason: domain.ReasonRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &stubProber{err: tt.probeErr}
			r, now := newRegistry(t, probe)
			require.NoError(t, r.SetCredential("openai", "sk-secret"))

			got := r.Validate(context.Background(), "openai")
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, "sk-secret", probe.secret)

			cred, err := r.Credential("openai")
			require.NoError(t, err)
			assert.True(t, cred.LastCheckedAt.Equal(*now), "lastCheckedAt is updated regardless of outcome")
			if tt.wantValid {
				assert.Equal(t, domain.ValidityValid, cred.Validity)
				assert.True(t, r.IsAvailable("openai"))
			} else {
				assert.Equal(t, domain.ValidityInvalid, cred.Validity)
				assert.False(t, r.IsAvailable("openai"))
			}
		})
	}
}

func TestRegistry_ValidateMissingSecret(t *testing.T) {
	probe := &stubProber{}
	r, _ := newRegistry(t, probe)

	got := r.Validate(context.Background(), "openai")
	assert.Equal(t, domain.ValidationResult{Valid: false, Reason: domain.ReasonMissingSecret}, got)
	assert.Zero(t, probe.calls)

	cred, err := r.Credential("openai")
	require.NoError(t, err)
	assert.False(t, cred.LastCheckedAt.IsZero())
}

func TestRegistry_OptionalSecretIsProbedWhenPresent(t *testing.T) {
	probe := &stubProber{err: &domain.ProviderError{ProviderID: "osrm", Kind: domain.ErrorKindAuth, HTTPStatus: 403}}
	r, _ := newRegistry(t, &stubProber{})
	r.Register("osrm", false, probe)

	got := r.Validate(context.Background(), "osrm")
	assert.True(t, got.Valid, "no secret stored, nothing to probe")
	assert.Zero(t, probe.calls)

	require.NoError(t, r.SetCredential("osrm", "maps-key"))
	got = r.Validate(context.Background(), "osrm")
	assert.Equal(t, domain.ReasonUnauthorized, got.Reason)
	assert.Equal(t, 1, probe.calls)
	assert.True(t, r.IsAvailable("osrm"), "keyless access still works")
}

func TestRegistry_ValidateWithoutProberLeavesValidityUnknown(t *testing.T) {
	r, _ := newRegistry(t, &stubProber{})
	r.Register("legacy", true, nil)
	require.NoError(t, r.SetCredential("legacy", "token"))

	got := r.Validate(context.Background(), "legacy")
	assert.Equal(t, domain.ValidationResult{Valid: false, Reason: domain.ReasonUnverifiable}, got)

	cred, err := r.Credential("legacy")
	require.NoError(t, err)
	assert.Equal(t, domain.ValidityUnknown, cred.Validity)
	assert.False(t, cred.LastCheckedAt.IsZero())
	assert.True(t, r.IsAvailable("legacy"), "an unverified secret is still usable")
}

func TestRegistry_EditResetsValidity(t *testing.T) {
	r, _ := newRegistry(t, &stubProber{err: &domain.ProviderError{Kind: domain.ErrorKindAuth}})
	require.NoError(t, r.SetCredential("openai", "bad"))
	r.Validate(context.Background(), "openai")
	require.False(t, r.IsAvailable("openai"))

	require.NoError(t, r.SetCredential("openai", "better"))
	cred, err := r.Credential("openai")
	require.NoError(t, err)
	assert.Equal(t, domain.ValidityUnknown, cred.Validity)
	assert.True(t, r.IsAvailable("openai"))
}

func TestRegistry_StatusMasksSecrets(t *testing.T) {
	r, _ := newRegistry(t, &stubProber{})
	require.NoError(t, r.SetCredential("openai", "sk-abcdefgh"))

	status := r.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "heuristic", status[0].ProviderID)
	assert.False(t, status[0].Required)
	assert.Equal(t, "openai", status[1].ProviderID)
	assert.Equal(t, "****efgh", status[1].Masked)
	assert.True(t, status[1].HasSecret)
}

func TestRegistry_SeedFromEnv(t *testing.T) {
	r, _ := newRegistry(t, &stubProber{})
	env := map[string]string{"OPENAI_API_KEY": "sk-env"}
	lookup := func(k string) string { return env[k] }

	assert.True(t, r.SeedFromEnv("openai", "OPENAI_API_KEY", lookup))
	secret, err := r.Secret("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", secret)

	env["OPENAI_API_KEY"] = "sk-other"
	assert.False(t, r.SeedFromEnv("openai", "OPENAI_API_KEY", lookup), "existing secret wins")
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("")

	_, err := store.Get("openai")
	assert.ErrorIs(t, err, domain.ErrMissingCredential)

	require.NoError(t, store.Set("openai", "sk-keyring"))
	got, err := store.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-keyring", got)

	require.NoError(t, store.Delete("openai"))
	require.NoError(t, store.Delete("openai"), "deleting twice is fine")
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(domain.BackendKeyring, "svc")
	require.NoError(t, err)
	assert.IsType(t, &KeyringStore{}, s)

	_, err = NewStore("vault", "")
	assert.Error(t, err)
}
