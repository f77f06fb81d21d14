package sessionbridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpath/cert-portal/pkg/config"
)

func newRedisRepo(t *testing.T) *RedisRepository {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRepository(client, time.Hour)
}

func runBridgeSuite(t *testing.T, repo Repository) {
	ctx := context.Background()
	b := NewBridge(repo)
	sid := "visitor-1"

	t.Run("selected plan round trip", func(t *testing.T) {
		_, ok, err := b.SelectedPlan(ctx, sid)
		require.NoError(t, err)
		assert.False(t, ok)

		plan := SelectedPlan{PlanCode: "ETPR-1Y", DealCode: "FLAT20", GeoRegion: "IN"}
		require.NoError(t, b.SetSelectedPlan(ctx, sid, plan))

		got, ok, err := b.SelectedPlan(ctx, sid)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, plan, got)

		require.NoError(t, b.ClearSelectedPlan(ctx, sid))
		_, ok, err = b.SelectedPlan(ctx, sid)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("analytics merge keeps earlier keys", func(t *testing.T) {
		require.NoError(t, b.MergeGAEvents(ctx, sid, GAEvents{"flowName": "signup"}))
		require.NoError(t, b.MergeGAEvents(ctx, sid, GAEvents{"step": "otp"}))

		got, err := b.GAEvents(ctx, sid)
		require.NoError(t, err)
		assert.Equal(t, GAEvents{"flowName": "signup", "step": "otp"}, got)

		// later writes override only the keys they carry
		require.NoError(t, b.MergeGAEvents(ctx, sid, GAEvents{"step": "done"}))
		got, err = b.GAEvents(ctx, sid)
		require.NoError(t, err)
		assert.Equal(t, "signup", got["flowName"])
		assert.Equal(t, "done", got["step"])
	})

	t.Run("tracking merge", func(t *testing.T) {
		require.NoError(t, b.MergeCSEvents(ctx, sid, CSEvents{"loginStatus": "success"}))
		require.NoError(t, b.MergeCSEvents(ctx, sid, CSEvents{"paymentStatus": "pending"}))

		got, err := b.CSEvents(ctx, sid)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("acquisition record", func(t *testing.T) {
		acq := AcqSources{Source: "newsletter", Campaign: "aug-sale"}
		require.NoError(t, b.SetAcqSources(ctx, sid, acq))

		got, ok, err := b.AcqSources(ctx, sid)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, acq, got)
	})

	t.Run("clear drops every record", func(t *testing.T) {
		require.NoError(t, b.Clear(ctx, sid))
		_, ok, err := b.AcqSources(ctx, sid)
		require.NoError(t, err)
		assert.False(t, ok)
		got, err := b.GAEvents(ctx, sid)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestBridgeInMem(t *testing.T) {
	runBridgeSuite(t, NewInMemRepository())
}

func TestBridgeRedis(t *testing.T) {
	runBridgeSuite(t, newRedisRepo(t))
}

func TestBridgeSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := NewBridge(NewInMemRepository())

	require.NoError(t, b.SetSelectedPlan(ctx, "a", SelectedPlan{PlanCode: "ETPR-1M"}))
	_, ok, err := b.SelectedPlan(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCookieCodecSkipsUnchangedWrites(t *testing.T) {
	codec := NewCookieCodec(config.CookieConfig{Domain: ".example.com", Secure: true, HTTPOnly: true})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: config.CookieTicketID, Value: "t-1"})

	w := httptest.NewRecorder()
	assert.False(t, codec.Write(w, r, config.CookieTicketID, "t-1"))
	assert.Empty(t, w.Result().Cookies())

	w = httptest.NewRecorder()
	assert.True(t, codec.Write(w, r, config.CookieTicketID, "t-2"))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "t-2", cookies[0].Value)
	assert.Equal(t, "example.com", cookies[0].Domain)
	assert.True(t, cookies[0].HttpOnly)
}

func TestCookieCodecClearSession(t *testing.T) {
	codec := NewCookieCodec(config.DefaultCookieConfig())
	w := httptest.NewRecorder()
	codec.ClearSession(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 4)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge)
	}
}
