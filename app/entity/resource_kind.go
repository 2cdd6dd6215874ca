package entity

// ResourceKind enumerates the provider resources a webhook event can describe.
type ResourceKind int

const (
	ResourceUnknown ResourceKind = iota
	ResourcePayment
	ResourceSubscription
	ResourceMandate
	ResourceRefund
)

func ParseResourceKind(resourceType string) ResourceKind {
	switch resourceType {
	case "payments":
		return ResourcePayment
	case "subscriptions":
		return ResourceSubscription
	case "mandates":
		return ResourceMandate
	case "refunds":
		return ResourceRefund
	default:
		return ResourceUnknown
	}
}

// LinkKey is the key the resource id is stored under in event links.
func (k ResourceKind) LinkKey() string {
	switch k {
	case ResourcePayment:
		return "payment"
	case ResourceSubscription:
		return "subscription"
	case ResourceMandate:
		return "mandate"
	case ResourceRefund:
		return "refund"
	default:
		return ""
	}
}

func (k ResourceKind) String() string {
	if key := k.LinkKey(); key != "" {
		return key
	}
	return "unknown"
}
