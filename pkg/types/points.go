package types

// PointsHistoryType classifies a ledger entry.
type PointsHistoryType string

const (
	PointsHistoryTypeSubscription      PointsHistoryType = "SUBSCRIPTION"
	PointsHistoryTypePurchase          PointsHistoryType = "PURCHASE"
	PointsHistoryTypePurchasePack      PointsHistoryType = "PURCHASE_PACK"
	PointsHistoryTypeRollover          PointsHistoryType = "ROLLOVER"
	PointsHistoryTypeMonthlyAllocation PointsHistoryType = "MONTHLY_ALLOCATION"
	PointsHistoryTypeDownload          PointsHistoryType = "DOWNLOAD"
	PointsHistoryTypeRefund            PointsHistoryType = "REFUND"
	PointsHistoryTypeBonus             PointsHistoryType = "BONUS"
	PointsHistoryTypeAdminAdjustment   PointsHistoryType = "ADMIN_ADJUSTMENT"
)

var pointsHistoryTypes = map[PointsHistoryType]struct{}{
	PointsHistoryTypeSubscription:      {},
	PointsHistoryTypePurchase:          {},
	PointsHistoryTypePurchasePack:      {},
	PointsHistoryTypeRollover:          {},
	PointsHistoryTypeMonthlyAllocation: {},
	PointsHistoryTypeDownload:          {},
	PointsHistoryTypeRefund:            {},
	PointsHistoryTypeBonus:             {},
	PointsHistoryTypeAdminAdjustment:   {},
}

// Valid reports whether t is a recognized history type.
func (t PointsHistoryType) Valid() bool {
	_, ok := pointsHistoryTypes[t]
	return ok
}

// SubscriptionPlan is read-only reference data loaded from configuration.
type SubscriptionPlan struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	// Points granted every billing period.
	Points int64 `json:"points" mapstructure:"points"`
	// Price in minor currency units.
	Price    int64  `json:"price" mapstructure:"price"`
	Currency string `json:"currency" mapstructure:"currency"`
	// RolloverLimit is the percentage (0-100) of Points eligible to roll over.
	RolloverLimit int64  `json:"rollover_limit" mapstructure:"rollover_limit"`
	StripePriceID string `json:"stripe_price_id" mapstructure:"stripe_price_id"`
}

// MaxRolloverPoints is floor(Points * RolloverLimit / 100). Out-of-range
// limits are clamped to [0, 100].
func (p *SubscriptionPlan) MaxRolloverPoints() int64 {
	if p == nil || p.Points <= 0 {
		return 0
	}
	limit := min(max(p.RolloverLimit, 0), 100)
	return p.Points * limit / 100
}

// PointPack is a one-time purchasable bundle of points.
type PointPack struct {
	ID            string `json:"id" mapstructure:"id"`
	Name          string `json:"name" mapstructure:"name"`
	Points        int64  `json:"points" mapstructure:"points"`
	Price         int64  `json:"price" mapstructure:"price"`
	Currency      string `json:"currency" mapstructure:"currency"`
	StripePriceID string `json:"stripe_price_id" mapstructure:"stripe_price_id"`
}
