package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/sessionbridge"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

// Error kinds appended to the error route as the errorType query parameter.
// One kind per recognized failure shape so a failure is attributable from
// the URL alone.
const (
	ErrorTypeHTTP400         = "http400"
	ErrorTypeInvalidDealCode = "invalidDealCode"
	ErrorTypeGeneric         = "generic"
	ErrorTypeTimeout         = "timeout"
	ErrorTypeContactRequired = "contactRequired"
)

const defaultGeoRegion = "IN"

// Outcome tells the caller where to send the visitor next. Payment handoff
// and failures are both full navigations, never in-band errors.
type Outcome struct {
	RedirectURL string `json:"redirectUrl"`
	ErrorType   string `json:"errorType,omitempty"`
	// LoginRequired marks the redirect as an authentication detour, the
	// selection was parked and will resume on return.
	LoginRequired bool `json:"loginRequired,omitempty"`
}

// Service bridges a plan selection across the authentication redirect and
// hands the visitor off to the payment gateway. It never returns errors to
// the caller, every failure resolves to an error-route redirect.
type Service struct {
	bridge     *sessionbridge.Bridge
	channel    config.ChannelConfig
	ssoCfg     config.SSOConfig
	cfg        config.CheckoutConfig
	policy     config.MerchantPolicy
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for initiate-transaction calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithCheckoutLogger sets the logger.
func WithCheckoutLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates the checkout service.
func NewService(
	bridge *sessionbridge.Bridge,
	channel config.ChannelConfig,
	ssoCfg config.SSOConfig,
	cfg config.CheckoutConfig,
	policy config.MerchantPolicy,
	opts ...Option,
) *Service {
	s := &Service{
		bridge:     bridge,
		channel:    channel,
		ssoCfg:     ssoCfg,
		cfg:        cfg,
		policy:     policy,
		httpClient: &http.Client{Timeout: cfg.InitiateTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ContinueToPay carries a plan selection toward payment. The plan is
// persisted first, merged over any parked record so markers set earlier
// survive. An unauthenticated visitor is parked and redirected to the login
// host; an authenticated one goes straight to transaction initiation, with
// the standard path waiting a short fixed pause first.
func (s *Service) ContinueToPay(ctx context.Context, v *ssosession.Visitor, plan PaymentPlan) *Outcome {
	if !plan.Valid() {
		s.logger.Warn("rejecting invalid plan", "planCode", plan.PlanCode)
		return s.errorOutcome(ErrorTypeGeneric)
	}

	if err := s.persistPlan(ctx, v.SID, plan); err != nil {
		s.logger.Warn("failed to persist selected plan", "err", err)
	}

	info, ok := v.Store.UserInfo()
	if !v.Store.IsLogin() || !ok {
		return s.parkAndRedirect(ctx, v, plan)
	}

	if !plan.Direct {
		select {
		case <-time.After(s.cfg.StandardDelay):
		case <-ctx.Done():
			return s.errorOutcome(ErrorTypeTimeout)
		}
	}

	return s.initiateTransaction(ctx, v, plan, info)
}

// Resume re-invokes the continuation for a persisted plan after the visitor
// returns logged in. Each path consumes its guard atomically so the
// resumption fires at most once: a plan parked behind the login detour needs
// the pending flag set at init, a fresh plan trips the per-selection guard.
func (s *Service) Resume(ctx context.Context, v *ssosession.Visitor) *Outcome {
	record, ok, err := s.bridge.SelectedPlan(ctx, v.SID)
	if err != nil {
		s.logger.Warn("failed to read parked plan", "err", err)
		return nil
	}
	if !ok {
		return nil
	}

	if record.CheckReferer != "" {
		if !v.Store.ConsumePendingResume() {
			return nil
		}
		record.CheckReferer = ""
		if err := s.bridge.SetSelectedPlan(ctx, v.SID, record); err != nil {
			s.logger.Warn("failed to clear resume marker", "err", err)
		}
		return s.ContinueToPay(ctx, v, planFromRecord(record))
	}

	if !v.Store.ConsumeResumeOnce() {
		return nil
	}
	return s.ContinueToPay(ctx, v, planFromRecord(record))
}

// persistPlan merges the selection over the stored record. A parked marker
// on the stored record survives unless the incoming plan carries its own.
func (s *Service) persistPlan(ctx context.Context, sid string, plan PaymentPlan) error {
	record := sessionbridge.SelectedPlan{
		PlanCode:     plan.PlanCode,
		PlanID:       plan.PlanID,
		DealCode:     plan.DealCode,
		GeoRegion:    plan.GeoRegion,
		Price:        strconv.FormatFloat(plan.FinalPlanPrice, 'f', -1, 64),
		Currency:     plan.Currency,
		Recurring:    plan.Recurring,
		Upgrade:      plan.IsUpgrade,
		CheckReferer: plan.CheckReferer,
	}
	if record.CheckReferer == "" {
		if existing, ok, err := s.bridge.SelectedPlan(ctx, sid); err == nil && ok {
			record.CheckReferer = existing.CheckReferer
		}
	}
	return s.bridge.SetSelectedPlan(ctx, sid, record)
}

func (s *Service) parkAndRedirect(ctx context.Context, v *ssosession.Visitor, plan PaymentPlan) *Outcome {
	plan.CheckReferer = s.ssoCfg.LoginHost
	if err := s.persistPlan(ctx, v.SID, plan); err != nil {
		s.logger.Warn("failed to park plan before login redirect", "err", err)
	}

	target, err := url.Parse(s.ssoCfg.LoginHost)
	if err != nil {
		s.logger.Error("invalid login host", "host", s.ssoCfg.LoginHost, "err", err)
		return s.errorOutcome(ErrorTypeGeneric)
	}
	q := target.Query()
	q.Set("channel", s.channel.Merchant)
	target.RawQuery = q.Encode()

	return &Outcome{RedirectURL: target.String(), LoginRequired: true}
}

type initiateResponse struct {
	ResultURL    string `json:"resultUrl"`
	Code         int    `json:"code"`
	ErrorCode    string `json:"errorCode"`
	InvalidValue string `json:"invalidValue"`
	Message      string `json:"message"`
}

func (s *Service) initiateTransaction(ctx context.Context, v *ssosession.Visitor, plan PaymentPlan, info sessionstore.UserInfo) *Outcome {
	contact, verified := pickContact(info)
	if s.policy.RequiresVerifiedContact(s.channel.Merchant) && !verified {
		s.logger.Warn("no verified contact for transaction", "merchant", s.channel.Merchant, "ssoid", info.SSOID)
		return s.errorOutcome(ErrorTypeContactRequired)
	}

	geo := plan.GeoRegion
	if geo == "" {
		geo = defaultGeoRegion
	}

	acq, _, err := s.bridge.AcqSources(ctx, v.SID)
	if err != nil {
		s.logger.Warn("failed to read acquisition sources", "err", err)
	}

	body := map[string]interface{}{
		"planCode":     plan.PlanCode,
		"planId":       plan.PlanID,
		"planName":     plan.PlanName,
		"price":        plan.FinalPlanPrice,
		"currency":     plan.Currency,
		"planPeriod":   plan.PlanPeriod,
		"periodUnit":   plan.PeriodUnit,
		"recurring":    plan.Recurring,
		"flatDiscount": plan.FlatDiscount,
		"dealCode":     plan.DealCode,
		"autoRenew":    plan.AutoRenew,
		"siConsent":    plan.SIConsent,
		"isExtend":     plan.IsExtend,
		"isRenew":      plan.IsRenew,
		"isUpgrade":    plan.IsUpgrade,
		"abTestKey":    plan.ABTestKey,
		"udf6":         plan.UDF6,
		"udf7":         plan.UDF7,
		"udf8":         plan.UDF8,
		"geoRegion":    geo,
		"ssoId":        info.SSOID,
		"identifier":   contact,
		"acqSource":    acq.Source,
		"acqMedium":    acq.Medium,
		"acqCampaign":  acq.Campaign,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("failed to encode initiate body", "err", err)
		return s.errorOutcome(ErrorTypeGeneric)
	}

	endpoint := fmt.Sprintf("%s/subscription/merchant/%s/product/%s/plan/%s/geoRegion/%s/initiateTransaction",
		s.cfg.SubsHost, s.channel.Merchant, s.channel.ProductCode, plan.PlanCode, geo)

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.InitiateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("failed to build initiate request", "err", err)
		return s.errorOutcome(ErrorTypeGeneric)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			s.logger.Warn("initiate transaction timed out", "planCode", plan.PlanCode)
			return s.errorOutcome(ErrorTypeTimeout)
		}
		s.logger.Warn("initiate transaction failed", "err", err)
		return s.errorOutcome(ErrorTypeGeneric)
	}
	defer resp.Body.Close()

	var result initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.logger.Warn("initiate transaction returned malformed body", "status", resp.StatusCode, "err", err)
		return s.errorOutcome(ErrorTypeGeneric)
	}

	if resp.StatusCode == http.StatusOK && result.ResultURL != "" {
		if err := s.bridge.ClearSelectedPlan(ctx, v.SID); err != nil {
			s.logger.Warn("failed to clear plan after handoff", "err", err)
		}
		return &Outcome{RedirectURL: result.ResultURL}
	}

	switch {
	case isDealCodeError(result):
		s.logger.Info("deal code rejected", "dealCode", plan.DealCode, "message", result.Message)
		return s.errorOutcome(ErrorTypeInvalidDealCode)
	case resp.StatusCode == http.StatusBadRequest:
		s.logger.Warn("initiate transaction rejected", "status", resp.StatusCode, "message", result.Message)
		return s.errorOutcome(ErrorTypeHTTP400)
	default:
		s.logger.Warn("initiate transaction failed", "status", resp.StatusCode, "errorCode", result.ErrorCode)
		return s.errorOutcome(ErrorTypeGeneric)
	}
}

func isDealCodeError(r initiateResponse) bool {
	code := strings.ToUpper(r.ErrorCode)
	return strings.Contains(code, "DEAL") ||
		strings.Contains(strings.ToLower(r.InvalidValue), "dealcode")
}

func (s *Service) errorOutcome(kind string) *Outcome {
	return &Outcome{
		RedirectURL: s.cfg.ErrorPath + "?errorType=" + kind,
		ErrorType:   kind,
	}
}

// pickContact chooses the identity field for the transaction body: a
// verified email wins, then a verified mobile, then the primary email
// unverified.
func pickContact(info sessionstore.UserInfo) (string, bool) {
	for email, state := range info.EmailList {
		if state == "Verified" {
			return email, true
		}
	}
	for mobile, state := range info.MobileList {
		if state == "Verified" {
			return mobile, true
		}
	}
	if info.PrimaryEmail != "" {
		return info.PrimaryEmail, false
	}
	return info.Identifier, false
}

func planFromRecord(r sessionbridge.SelectedPlan) PaymentPlan {
	price, _ := strconv.ParseFloat(r.Price, 64)
	return PaymentPlan{
		PlanCode:       r.PlanCode,
		PlanID:         r.PlanID,
		DealCode:       r.DealCode,
		GeoRegion:      r.GeoRegion,
		FinalPlanPrice: price,
		Currency:       r.Currency,
		Recurring:      r.Recurring,
		IsUpgrade:      r.Upgrade,
		CheckReferer:   r.CheckReferer,
	}
}
