package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rosilesmarcos01/bbms-sub000/internal/audit"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/engine"
	"github.com/rosilesmarcos01/bbms-sub000/internal/issuers"
	"github.com/rosilesmarcos01/bbms-sub000/internal/providers/stub"
	"github.com/rosilesmarcos01/bbms-sub000/internal/store"
)

type fixture struct {
	svc        *SessionService
	provider   *stub.Provider
	registry   *store.InMemoryOperationRegistry
	identities *store.StaticIdentityStore
	issuer     *issuers.TokenIssuer
	auditor    *audit.InMemoryAuditor

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{now: time.Now()}

	f.provider = stub.New("stub")
	f.provider.SetClock(f.clock)
	f.registry = store.NewInMemoryOperationRegistry(time.Minute)
	f.registry.SetClock(f.clock)
	f.identities = store.NewStaticIdentityStore([]core.Identity{
		{Ref: "enrolled", Email: "enrolled@example.com", Role: "operator", AccessLevel: 2, Active: true, Enrolled: true},
		{Ref: "fresh", Email: "fresh@example.com", Role: "operator", AccessLevel: 1, Active: true},
		{Ref: "inactive", Email: "gone@example.com", Role: "operator", Enrolled: true},
	})

	var err error
	f.issuer, err = issuers.NewTokenIssuer(issuers.Config{
		Issuer:     "bbms-test",
		Audience:   "bbms-test-app",
		SigningKey: []byte(strings.Repeat("s", issuers.MinSigningKeyLength)),
	})
	require.NoError(t, err)

	f.auditor = audit.NewInMemoryAuditor()
	f.svc = NewSessionService(
		f.provider,
		f.registry,
		f.identities,
		engine.NewManager(core.DefaultPolicy()),
		f.issuer,
		f.auditor,
		nil,
		5*time.Minute,
	)
	f.svc.SetClock(f.clock)
	return f
}

func (f *fixture) initiate(t *testing.T, ref string, purpose core.Purpose) string {
	t.Helper()
	resp, err := f.svc.Initiate(context.Background(), InitiateRequest{IdentityRef: ref, Purpose: purpose})
	require.NoError(t, err)
	require.NotEmpty(t, resp.OperationID)
	require.NotEmpty(t, resp.HandoffURL)
	return resp.OperationID
}

func (f *fixture) poll(t *testing.T, id string) *PollResult {
	t.Helper()
	res, err := f.svc.Poll(context.Background(), id)
	require.NoError(t, err)
	return res
}

func bestProof() *core.ProofPayload {
	return &core.ProofPayload{
		IsLive:             true,
		InjectionDetected:  false,
		PresentationAttack: core.AttackPass,
		FaceMatchScore:     0.95,
		ConfidenceScore:    0.97,
	}
}

func requireHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	var herr *HTTPError
	require.True(t, errors.As(err, &herr), "expected HTTPError, got %v", err)
	require.Equal(t, status, herr.StatusCode)
}

func containsFold(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), sub) {
			return true
		}
	}
	return false
}

func TestPoll_AcceptedProofIssuesSession(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)

	res := f.poll(t, id)
	require.Equal(t, PollPending, res.Status)
	require.Nil(t, res.Tokens)

	require.NoError(t, f.provider.Complete(id, bestProof()))

	res = f.poll(t, id)
	require.Equal(t, PollCompleted, res.Status)
	require.NotNil(t, res.Tokens)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)
	require.Equal(t, "enrolled", res.Identity.Ref)

	claims, err := f.issuer.Verify(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "enrolled", claims.SubjectID)
	require.Equal(t, 2, claims.AccessLevel)

	// one-time use
	res = f.poll(t, id)
	require.Equal(t, PollConsumed, res.Status)
	require.Nil(t, res.Tokens)

	entries, err := f.auditor.Find(func(e core.AuditEntry) bool { return e.Success && e.Action == "biometric.poll" }, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, id, entries[0].OperationID)
	require.NotEmpty(t, entries[0].TokenFingerprint)
}

func TestPoll_LivenessFailureRejects(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)

	proof := bestProof()
	proof.IsLive = false
	require.NoError(t, f.provider.Complete(id, proof))

	res := f.poll(t, id)
	require.Equal(t, PollFailed, res.Status)
	require.Nil(t, res.Tokens)
	require.True(t, containsFold(res.Reasons, "liveness"), "reasons: %v", res.Reasons)

	res = f.poll(t, id)
	require.Equal(t, PollConsumed, res.Status)
}

func TestPoll_LowFaceMatchNeedsManualReview(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)

	proof := bestProof()
	proof.FaceMatchScore = 0.70
	require.NoError(t, f.provider.Complete(id, proof))

	res := f.poll(t, id)
	require.Equal(t, PollManualReview, res.Status)
	require.Nil(t, res.Tokens)
	require.True(t, containsFold(res.Reasons, "face match"), "reasons: %v", res.Reasons)

	res = f.poll(t, id)
	require.Equal(t, PollConsumed, res.Status)
}

func TestPoll_UnknownOperationIsNotFound(t *testing.T) {
	f := newFixture(t)
	res := f.poll(t, "never-created")
	require.Equal(t, PollNotFound, res.Status)
	require.Nil(t, res.Tokens)
}

func TestPoll_ConcurrentPollersIssueOnce(t *testing.T) {
	f := newFixture(t)
	requireSingleIssuance(t, f.svc, f.provider, f.initiate(t, "enrolled", core.PurposeAuthentication))
}

func TestPoll_ConcurrentPollersIssueOnceWithRedisRegistry(t *testing.T) {
	f := newFixture(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewSessionService(
		f.provider,
		store.NewRedisOperationRegistryWithClient(client, "test", time.Minute),
		f.identities,
		engine.NewManager(core.DefaultPolicy()),
		f.issuer,
		f.auditor,
		nil,
		5*time.Minute,
	)
	resp, err := svc.Initiate(context.Background(), InitiateRequest{IdentityRef: "enrolled", Purpose: core.PurposeAuthentication})
	require.NoError(t, err)

	requireSingleIssuance(t, svc, f.provider, resp.OperationID)
}

// requireSingleIssuance completes the operation and polls it from several goroutines at once.
// Exactly one poller gets tokens, the others see the operation as consumed.
func requireSingleIssuance(t *testing.T, svc *SessionService, provider *stub.Provider, id string) {
	t.Helper()
	require.NoError(t, provider.Complete(id, bestProof()))

	const pollers = 8
	results := make([]*PollResult, pollers)
	errs := make([]error, pollers)
	var wg sync.WaitGroup
	wg.Add(pollers)
	for i := range pollers {
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Poll(context.Background(), id)
		}()
	}
	wg.Wait()

	var completed, consumed int
	for i, res := range results {
		require.NoError(t, errs[i])
		require.NotNil(t, res)
		switch res.Status {
		case PollCompleted:
			completed++
			require.NotNil(t, res.Tokens)
		case PollConsumed:
			consumed++
			require.Nil(t, res.Tokens)
		default:
			t.Fatalf("unexpected status %s", res.Status)
		}
	}
	require.Equal(t, 1, completed)
	require.Equal(t, pollers-1, consumed)

	res, err := svc.Poll(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, PollConsumed, res.Status)
}

func TestPoll_CompletionWithoutMarkerStaysPending(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)
	require.NoError(t, f.provider.CompleteWithoutMarker(id, bestProof()))

	res := f.poll(t, id)
	require.Equal(t, PollPending, res.Status)
	require.Nil(t, res.Tokens)
}

func TestPoll_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)
	require.NoError(t, f.provider.Fail(id))

	res := f.poll(t, id)
	require.Equal(t, PollFailed, res.Status)
	require.Equal(t, []string{reasonProviderFailure}, res.ReasonCodes)

	res = f.poll(t, id)
	require.Equal(t, PollConsumed, res.Status)
}

func TestPoll_ProviderExpired(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)
	require.NoError(t, f.provider.Expire(id))

	res := f.poll(t, id)
	require.Equal(t, PollExpired, res.Status)
}

func TestPoll_TTLExpiry(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)

	f.advance(5*time.Minute + time.Second)

	// the sweep reclaims the entry without it ever being polled
	evicted, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, evicted)

	_, err = f.registry.Get(context.Background(), id)
	require.ErrorIs(t, err, core.ErrOperationNotFound)

	// completion after expiry never issues tokens
	require.NoError(t, f.provider.Complete(id, bestProof()))
	res := f.poll(t, id)
	require.Equal(t, PollNotFound, res.Status)
	require.Nil(t, res.Tokens)
}

func TestPoll_ExpiredBeforeSweep(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)
	require.NoError(t, f.provider.Complete(id, bestProof()))

	f.advance(6 * time.Minute)

	res := f.poll(t, id)
	require.Equal(t, PollExpired, res.Status)
	require.Nil(t, res.Tokens)
}

func TestPoll_ProviderUnavailable(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)

	f.provider.FailNext(core.ErrProviderUnavailable)
	_, err := f.svc.Poll(context.Background(), id)
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
	requireHTTPStatus(t, err, http.StatusServiceUnavailable)

	// the operation survives and can still complete
	require.NoError(t, f.provider.Complete(id, bestProof()))
	res := f.poll(t, id)
	require.Equal(t, PollCompleted, res.Status)
}

func TestPoll_ProofFetchTransientFailureRestoresOperation(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)
	require.NoError(t, f.provider.Complete(id, bestProof()))

	// status succeeds, proof fetch fails transiently
	f.provider.FailNext(nil, core.ErrProviderUnavailable)
	_, err := f.svc.Poll(context.Background(), id)
	require.ErrorIs(t, err, core.ErrProviderUnavailable)

	res := f.poll(t, id)
	require.Equal(t, PollCompleted, res.Status)
	require.NotNil(t, res.Tokens)
}

func TestPoll_ProofUnavailableFails(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)
	require.NoError(t, f.provider.Complete(id, nil))

	res := f.poll(t, id)
	require.Equal(t, PollFailed, res.Status)
	require.Equal(t, []string{string(core.CodeProofUnavailable)}, res.ReasonCodes)

	res = f.poll(t, id)
	require.Equal(t, PollConsumed, res.Status)
}

func TestInitiate_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		purpose core.Purpose
		want    *core.Error
		status  int
	}{
		{"unknown identity", "nobody", core.PurposeAuthentication, core.ErrIdentityNotFound, http.StatusNotFound},
		{"inactive identity", "inactive", core.PurposeAuthentication, core.ErrIdentityInactive, http.StatusForbidden},
		{"not enrolled", "fresh", core.PurposeAuthentication, core.ErrNotEnrolled, http.StatusBadRequest},
		{"not enrolled by default purpose", "fresh", "", core.ErrNotEnrolled, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Initiate(context.Background(), InitiateRequest{IdentityRef: tt.ref, Purpose: tt.purpose})
			require.ErrorIs(t, err, tt.want)
			requireHTTPStatus(t, err, tt.status)
			require.Zero(t, f.registry.Len())
		})
	}
}

func TestInitiate_InvalidPurpose(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initiate(context.Background(), InitiateRequest{IdentityRef: "enrolled", Purpose: "bogus"})
	requireHTTPStatus(t, err, http.StatusBadRequest)
}

func TestInitiate_ProviderErrors(t *testing.T) {
	f := newFixture(t)

	f.provider.FailNext(core.ErrProviderUnavailable, core.ErrProviderRejected.Withf("already enrolled"))

	_, err := f.svc.Initiate(context.Background(), InitiateRequest{IdentityRef: "enrolled"})
	requireHTTPStatus(t, err, http.StatusServiceUnavailable)

	_, err = f.svc.Initiate(context.Background(), InitiateRequest{IdentityRef: "enrolled", Purpose: core.PurposeEnrollment})
	requireHTTPStatus(t, err, http.StatusBadGateway)

	require.Zero(t, f.registry.Len())
}

func TestEnrollmentThenAuthentication(t *testing.T) {
	f := newFixture(t)

	id := f.initiate(t, "fresh", core.PurposeEnrollment)
	require.NoError(t, f.provider.Complete(id, bestProof()))

	res := f.poll(t, id)
	require.Equal(t, PollCompleted, res.Status)

	identity, err := f.identities.Get(context.Background(), "fresh")
	require.NoError(t, err)
	require.True(t, identity.Enrolled)

	// authentication is now allowed
	f.initiate(t, "fresh", core.PurposeAuthentication)
}

func TestEnrollmentRejectedDoesNotEnroll(t *testing.T) {
	f := newFixture(t)

	id := f.initiate(t, "fresh", core.PurposeEnrollment)
	proof := bestProof()
	proof.InjectionDetected = true
	require.NoError(t, f.provider.Complete(id, proof))

	res := f.poll(t, id)
	require.Equal(t, PollFailed, res.Status)

	identity, err := f.identities.Get(context.Background(), "fresh")
	require.NoError(t, err)
	require.False(t, identity.Enrolled)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	id := f.initiate(t, "enrolled", core.PurposeAuthentication)
	require.NoError(t, f.provider.Complete(id, bestProof()))
	res := f.poll(t, id)
	require.Equal(t, PollCompleted, res.Status)

	tokens, err := f.svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)

	_, err = f.svc.Refresh(context.Background(), res.Tokens.AccessToken)
	require.ErrorIs(t, err, core.ErrTokenInvalid)
	requireHTTPStatus(t, err, http.StatusUnauthorized)

	_, err = f.svc.Refresh(context.Background(), "garbage")
	requireHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestRefresh_InactiveIdentity(t *testing.T) {
	f := newFixture(t)
	tokens, err := f.issuer.Issue(&core.Identity{Ref: "inactive", Email: "gone@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), tokens.RefreshToken)
	require.ErrorIs(t, err, core.ErrIdentityInactive)

	tokens, err = f.issuer.Issue(&core.Identity{Ref: "deleted"})
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), tokens.RefreshToken)
	require.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	tokens, err := f.issuer.Issue(&core.Identity{Ref: "enrolled", Role: "operator"})
	require.NoError(t, err)
	claims, err := f.issuer.Verify(tokens.AccessToken)
	require.NoError(t, err)

	me, err := f.svc.Me(context.Background(), claims)
	require.NoError(t, err)
	require.Equal(t, "enrolled@example.com", me.Identity.Email)
	require.True(t, me.Identity.Enrolled)
}
