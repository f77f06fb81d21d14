package loginflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpath/cert-portal/pkg/checkout"
	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

func fastWatchService(f *flowFixture) *Service {
	cfg := config.FlowConfig{
		WatchInterval:  5 * time.Millisecond,
		WatchMaxChecks: 20,
		WatchWindow:    "PT1S",
	}
	return NewService(f.provider, f.session, cfg)
}

func markLoggedIn(store *sessionstore.Store) {
	store.SetUserInfo(sessionstore.UserInfo{
		SSOID:    "sso-watch",
		TicketID: "t-watch",
		IsLogged: true,
	})
}

func TestWatchLoginDetectsOutOfBandLogin(t *testing.T) {
	f := newFlowFixture(t)
	svc := fastWatchService(f)
	svc.Open(f.visitor, nil)

	detected := make(chan struct{}, 1)
	svc.WatchLogin(context.Background(), f.visitor, func() {
		detected <- struct{}{}
	})

	time.Sleep(15 * time.Millisecond)
	markLoggedIn(f.visitor.Store)

	select {
	case <-detected:
	case <-time.After(time.Second):
		t.Fatal("watcher never noticed the login")
	}
	assert.Equal(t, ScreenSuccess, StateFor(f.visitor.Store).CurrentScreen())
}

func TestWatchLoginFiresAtMostOnce(t *testing.T) {
	f := newFlowFixture(t)
	svc := fastWatchService(f)
	svc.Open(f.visitor, nil)
	markLoggedIn(f.visitor.Store)

	fired := make(chan struct{}, 4)
	svc.WatchLogin(context.Background(), f.visitor, func() { fired <- struct{}{} })
	svc.WatchLogin(context.Background(), f.visitor, func() { fired <- struct{}{} })

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, fired, 1, "resumption guard must be one-shot")
}

func TestWatchLoginNeverFiresWithPlansQueued(t *testing.T) {
	f := newFlowFixture(t)
	svc := fastWatchService(f)
	svc.Open(f.visitor, []checkout.PaymentPlan{{PlanCode: "YEARLY", FinalPlanPrice: 2499}})
	markLoggedIn(f.visitor.Store)

	fired := make(chan struct{}, 1)
	svc.WatchLogin(context.Background(), f.visitor, func() { fired <- struct{}{} })

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fired, "plan path owns the continuation")
}

func TestWatchLoginResetsStaleForm(t *testing.T) {
	f := newFlowFixture(t)
	svc := fastWatchService(f)
	st := svc.Open(f.visitor, nil)
	st.SetField(FieldIdentifier, "someone@example.com")
	st.SetField(FieldPassword, "secret1!")
	st.SetOtpDigit(0, "9")

	detected := make(chan struct{}, 1)
	svc.WatchLogin(context.Background(), f.visitor, func() { detected <- struct{}{} })
	markLoggedIn(f.visitor.Store)

	select {
	case <-detected:
	case <-time.After(time.Second):
		t.Fatal("watcher never noticed the login")
	}

	snap := StateFor(f.visitor.Store).Snapshot()
	assert.Equal(t, ScreenSuccess, snap.Screen)
	assert.Empty(t, snap.Identifier, "detection must not leave stale form data")

	got := StateFor(f.visitor.Store)
	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Empty(t, got.Password)
	assert.Equal(t, [OtpLength]string{}, got.Otp)
	assert.Equal(t, OtpContextNone, got.OtpCtx)
}

func TestWatchLoginNeedsResolvedIdentity(t *testing.T) {
	f := newFlowFixture(t)
	svc := fastWatchService(f)
	svc.Open(f.visitor, nil)

	// login flag up but no ssoid resolved yet, the watcher must hold off
	f.visitor.Store.SetUserInfo(sessionstore.UserInfo{IsLogged: true})

	fired := make(chan struct{}, 1)
	svc.WatchLogin(context.Background(), f.visitor, func() { fired <- struct{}{} })

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fired)
}

type fixedVisitor struct {
	v *ssosession.Visitor
}

func (p fixedVisitor) Visitor(http.ResponseWriter, *http.Request) *ssosession.Visitor {
	return p.v
}

func TestOpenEndpointStartsLoginWatch(t *testing.T) {
	f := newFlowFixture(t)
	svc := fastWatchService(f)
	h := NewHandle(svc, fixedVisitor{f.visitor})

	r := chi.NewRouter()
	r.Route("/flow", h.Routes)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/flow/open", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	markLoggedIn(f.visitor.Store)

	require.Eventually(t, func() bool {
		return StateFor(f.visitor.Store).CurrentScreen() == ScreenSuccess
	}, time.Second, 5*time.Millisecond, "opening the dialog must arm the out-of-band watcher")
}

func TestWatchLoginBoundedWithoutLogin(t *testing.T) {
	f := newFlowFixture(t)
	svc := fastWatchService(f)
	svc.Open(f.visitor, nil)

	fired := make(chan struct{}, 1)
	svc.WatchLogin(context.Background(), f.visitor, func() { fired <- struct{}{} })

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, fired)
	assert.True(t, StateFor(f.visitor.Store).ConsumeResume(),
		"guard stays unconsumed when nothing was detected")
}
