package payment_event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metadata keys set by the web application when it creates a checkout session.
const (
	metadataUserID       = "userId"
	metadataPackID       = "packId"
	metadataPointsAmount = "pointsAmount"
	metadataPlanID       = "planId"
)

const billingReasonSubscriptionCreate = "subscription_create"

// checkoutSession is the subset of a Stripe checkout.session we read.
type checkoutSession struct {
	ID              string            `json:"id"`
	Mode            string            `json:"mode"`
	Customer        string            `json:"customer"`
	Subscription    string            `json:"subscription"`
	CustomerEmail   string            `json:"customer_email"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

func (s *checkoutSession) meta(key string) string {
	return strings.TrimSpace(s.Metadata[key])
}

// pointsAmount parses the pointsAmount metadata. ok is false when absent.
func (s *checkoutSession) pointsAmount() (amount int64, ok bool, err error) {
	raw := s.meta(metadataPointsAmount)
	if raw == "" {
		return 0, false, nil
	}
	amount, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid pointsAmount %q: %w", raw, err)
	}
	return amount, true, nil
}

func (s *checkoutSession) email() string {
	if s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

// stripeSubscription is the subset of a Stripe subscription we mirror. Newer
// API versions moved the period bounds onto the subscription items.
type stripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
	EndedAt            int64  `json:"ended_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

func (s *stripeSubscription) period() (start, end time.Time) {
	startUnix, endUnix := s.CurrentPeriodStart, s.CurrentPeriodEnd
	if len(s.Items.Data) > 0 {
		if startUnix == 0 {
			startUnix = s.Items.Data[0].CurrentPeriodStart
		}
		if endUnix == 0 {
			endUnix = s.Items.Data[0].CurrentPeriodEnd
		}
	}
	return unixTime(startUnix), unixTime(endUnix)
}

func (s *stripeSubscription) canceledAt(fallback time.Time) time.Time {
	if t := unixTime(s.CanceledAt); !t.IsZero() {
		return t
	}
	if t := unixTime(s.EndedAt); !t.IsZero() {
		return t
	}
	return fallback
}

// stripeInvoice is the subset of a Stripe invoice we read.
type stripeInvoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
	PeriodStart   int64  `json:"period_start"`
	PeriodEnd     int64  `json:"period_end"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	Lines struct {
		Data []struct {
			Period struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

func (i *stripeInvoice) subscriptionID() string {
	if i.Subscription != "" {
		return i.Subscription
	}
	return i.Parent.SubscriptionDetails.Subscription
}

// period prefers the first line item, which covers the subscription period
// being paid for; the invoice-level bounds trail it by one cycle.
func (i *stripeInvoice) period() (start, end time.Time) {
	if len(i.Lines.Data) > 0 && i.Lines.Data[0].Period.End > 0 {
		return unixTime(i.Lines.Data[0].Period.Start), unixTime(i.Lines.Data[0].Period.End)
	}
	return unixTime(i.PeriodStart), unixTime(i.PeriodEnd)
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
