package loginflow

import (
	"context"
	"time"

	"github.com/learnpath/cert-portal/pkg/ssosession"
)

// WatchLogin polls for a login that completes outside this flow, typically
// in a second tab sharing the session. Detection needs both signals: a
// resolved identity carrying an ssoid (the login request writes the ssoid
// cookie alongside it) and the store's login flag up. The poll is bounded
// three ways: a fixed interval, a check count cap, and a wall-clock window;
// whichever runs out first ends the watch. On detection the form is reset
// and lands on the success panel; onDetect fires at most once, and never
// while the visitor is picking a plan or has plans queued, the plan path
// owns the continuation there.
func (s *Service) WatchLogin(ctx context.Context, v *ssosession.Visitor, onDetect func()) {
	window, err := s.cfg.ParseWatchWindow()
	if err != nil {
		s.logger.Warn("invalid watch window, watcher disabled", "window", s.cfg.WatchWindow, "err", err)
		return
	}
	interval := s.cfg.WatchInterval
	if interval <= 0 {
		return
	}

	go func() {
		watchCtx, cancel := context.WithTimeout(ctx, window)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for checks := 0; checks < s.cfg.WatchMaxChecks; checks++ {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
			}

			info, ok := v.Store.UserInfo()
			if !v.Store.IsLogin() || !ok || info.SSOID == "" {
				continue
			}

			st := StateFor(v.Store)
			if st.CurrentScreen() == ScreenPlanSelection || st.HasPlans() {
				return
			}
			if !st.ConsumeResume() {
				return
			}
			st.resetToSuccess()
			s.logger.Info("out-of-band login detected", "sid", v.SID)
			if onDetect != nil {
				onDetect()
			}
			return
		}
	}()
}
