package sessionbridge

// Keys under which typed records are persisted in the bridge.
const (
	KeySelectedPlan = "et_plans_selectedPlan"
	KeyGAEvents     = "updateGAEvents"
	KeyCSEvents     = "updateCSEvents"
	KeyAcqSources   = "acqSourcesData"
)

// SelectedPlan is the plan snapshot carried across the login redirect so a
// payment flow can resume where it left off.
type SelectedPlan struct {
	PlanCode     string `json:"planCode"`
	PlanID       string `json:"planId,omitempty"`
	DealCode     string `json:"dealCode,omitempty"`
	GeoRegion    string `json:"geoRegion,omitempty"`
	Price        string `json:"price,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Recurring    bool   `json:"recurring,omitempty"`
	Upgrade      bool   `json:"upgrade,omitempty"`
	CheckReferer string `json:"checkReferer,omitempty"`
}

// GAEvents accumulates analytics dimensions across steps of a flow. Writes
// merge into the stored record; a step never erases what an earlier step
// recorded.
type GAEvents map[string]string

// Merge folds src into g, overwriting only the keys src carries.
func (g GAEvents) Merge(src GAEvents) GAEvents {
	if g == nil {
		g = make(GAEvents, len(src))
	}
	for k, v := range src {
		g[k] = v
	}
	return g
}

// CSEvents accumulates customer-success tracking fields with the same
// merge-not-replace contract as GAEvents.
type CSEvents map[string]string

// Merge folds src into c, overwriting only the keys src carries.
func (c CSEvents) Merge(src CSEvents) CSEvents {
	if c == nil {
		c = make(CSEvents, len(src))
	}
	for k, v := range src {
		c[k] = v
	}
	return c
}

// AcqSources records where the visitor came from when a flow started.
type AcqSources struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Referer  string `json:"referer,omitempty"`
	LandedAt string `json:"landedAt,omitempty"`
}
