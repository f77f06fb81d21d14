package sessionstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetUserInfoDerivesLoginFlag(t *testing.T) {
	s := New()
	assert.False(t, s.IsLogin())

	s.SetUserInfo(UserInfo{SSOID: "sso-1", TicketID: "t-1", IsLogged: true})

	assert.True(t, s.IsLogin())
	assert.Equal(t, "t-1", s.TicketID())

	info, ok := s.UserInfo()
	assert.True(t, ok)
	assert.Equal(t, "sso-1", info.SSOID)
}

func TestClearAuthWipesEverything(t *testing.T) {
	s := New()
	s.SetUserInfo(UserInfo{SSOID: "sso-1", IsLogged: true})
	s.SetTicketID("t-1")
	s.SetUserToken("tok")
	s.SetEntitlements([]string{"subscribed"}, []string{"epaper"}, UserTypePaid, nil)
	s.SetGroupUser(true)
	s.SetPendingResume(true)

	s.ClearAuth()

	assert.False(t, s.IsLogin())
	assert.Empty(t, s.TicketID())
	assert.Empty(t, s.UserToken())
	assert.Empty(t, s.Permissions())
	assert.Equal(t, UserTypeNew, s.UserType())
	assert.False(t, s.IsGroupUser())
	_, ok := s.UserInfo()
	assert.False(t, ok)

	// the continuation marker belongs to the payment flow, a failed login
	// resolution must not eat it
	assert.True(t, s.PendingResume())
}

func TestConsumePendingResumeIsOneShot(t *testing.T) {
	s := New()
	assert.False(t, s.ConsumePendingResume())

	s.SetPendingResume(true)
	grabbed := 0
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ConsumePendingResume() {
				mu.Lock()
				grabbed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, grabbed)
	assert.False(t, s.PendingResume())
}

func TestAfterLoginFlushExactlyOnce(t *testing.T) {
	s := New()
	var mu sync.Mutex
	fired := 0
	cb := func() {
		mu.Lock()
		fired++
		mu.Unlock()
	}

	s.AfterLoginCall(cb)
	s.AfterLoginCall(cb)
	assert.Equal(t, 0, fired, "callbacks must not run before the flush")

	s.FinishLoginProcessing()
	assert.Equal(t, 2, fired)

	// a second flush must not replay the stack
	s.FinishLoginProcessing()
	assert.Equal(t, 2, fired)

	// after the flush, callbacks run immediately
	s.AfterLoginCall(cb)
	assert.Equal(t, 3, fired)
}

func TestResetLoginProcessingRearmsQueue(t *testing.T) {
	s := New()
	fired := 0
	s.FinishLoginProcessing()
	s.ResetLoginProcessing()

	s.AfterLoginCall(func() { fired++ })
	assert.Equal(t, 0, fired)
	s.FinishLoginProcessing()
	assert.Equal(t, 1, fired)
}

func TestNotifyLoginCheck(t *testing.T) {
	s := New()
	var got UserInfo
	s.OnLoginCheck(func(info UserInfo) { got = info })

	s.SetUserInfo(UserInfo{SSOID: "sso-9", IsLogged: true})
	s.NotifyLoginCheck()

	assert.Equal(t, "sso-9", got.SSOID)
}

func TestEntitlementCopiesAreIsolated(t *testing.T) {
	s := New()
	perms := []string{"subscribed"}
	s.SetEntitlements(perms, nil, UserTypePaid, nil)
	perms[0] = "mutated"

	assert.Equal(t, []string{"subscribed"}, s.Permissions())

	out := s.Permissions()
	out[0] = "mutated"
	assert.Equal(t, []string{"subscribed"}, s.Permissions())
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager()
	a := m.GetOrCreate("sid-1")
	b := m.GetOrCreate("sid-1")
	assert.Same(t, a, b)

	c := m.GetOrCreate("sid-2")
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, m.Len())

	m.Delete("sid-1")
	_, ok := m.Get("sid-1")
	assert.False(t, ok)
}

func TestManagerPurgeIdle(t *testing.T) {
	m := NewManager()
	m.GetOrCreate("old")
	m.entries["old"].lastSeen = time.Now().Add(-time.Hour)
	m.GetOrCreate("fresh")

	n := m.PurgeIdle(30 * time.Minute)
	assert.Equal(t, 1, n)
	_, ok := m.Get("old")
	assert.False(t, ok)
	_, ok = m.Get("fresh")
	assert.True(t, ok)
}

func TestConcurrentCounters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncrCounter("loginAttempts")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Counters()["loginAttempts"])
}
