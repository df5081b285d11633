package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
)

// SubscriptionStatusFromStripe maps a Stripe subscription status. Only
// "active" keeps the subscription alive; everything else is treated as canceled.
func SubscriptionStatusFromStripe(status string) SubscriptionStatus {
	if status == "active" {
		return SubscriptionStatusActive
	}
	return SubscriptionStatusCanceled
}

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCheckout      SubscriptionChangeReason = "checkout"
	SubscriptionChangeReasonStripeUpdate  SubscriptionChangeReason = "stripe_update"
	SubscriptionChangeReasonStripeDelete  SubscriptionChangeReason = "stripe_delete"
	SubscriptionChangeReasonRenewal       SubscriptionChangeReason = "renewal"
	SubscriptionChangeReasonPaymentFailed SubscriptionChangeReason = "payment_failed"
	SubscriptionChangeReasonRollover      SubscriptionChangeReason = "rollover"
)
