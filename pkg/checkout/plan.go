package checkout

// PaymentPlan is the unit a visitor carries from plan selection into payment
// initiation. It travels as a whole, a new selection always replaces the
// previous one.
type PaymentPlan struct {
	PlanCode       string  `json:"planCode"`
	PlanID         string  `json:"planId,omitempty"`
	PlanName       string  `json:"planName,omitempty"`
	FinalPlanPrice float64 `json:"finalPlanPrice"`
	Currency       string  `json:"currency,omitempty"`
	PlanPeriod     int     `json:"planPeriod,omitempty"`
	PeriodUnit     string  `json:"periodUnit,omitempty"`
	Recurring      bool    `json:"recurring"`
	FlatDiscount   float64 `json:"flatDiscount,omitempty"`
	DealCode       string  `json:"dealCode,omitempty"`
	GeoRegion      string  `json:"geoRegion,omitempty"`

	// Direct skips the interstitial pause and goes straight to initiation.
	Direct    bool `json:"direct,omitempty"`
	IsExtend  bool `json:"isExtend,omitempty"`
	IsRenew   bool `json:"isRenew,omitempty"`
	IsUpgrade bool `json:"isUpgrade,omitempty"`
	AutoRenew bool `json:"autoRenew,omitempty"`
	SIConsent bool `json:"siConsent,omitempty"`

	ABTestKey string `json:"abTestKey,omitempty"`
	UDF6      string `json:"udf6,omitempty"`
	UDF7      string `json:"udf7,omitempty"`
	UDF8      string `json:"udf8,omitempty"`

	// CheckReferer carries the host the visitor was sent to for
	// authentication. A non-empty value marks the selection as parked,
	// waiting for the visitor to come back logged in.
	CheckReferer string `json:"checkReferer,omitempty"`
}

// Valid reports whether the plan carries the minimum needed to initiate a
// transaction.
func (p PaymentPlan) Valid() bool {
	return p.PlanCode != "" && p.FinalPlanPrice >= 0
}
