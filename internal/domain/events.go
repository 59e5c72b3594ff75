package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
)

const (
	EventAffiliateLinkCreated             = "affiliate.link.created"
	EventAffiliateClickRecorded           = "affiliate.click.recorded"
	EventAffiliateConversionRecorded      = "affiliate.conversion.recorded"
	EventAffiliateConversionStatusChanged = "affiliate.conversion.status_changed"
	EventAffiliateProgramChanged          = "affiliate.program.changed"

	// EventCommerceOrderCompleted is consumed from the storefront.
	EventCommerceOrderCompleted = "commerce.order.completed"
)

func IsCanonicalInputEvent(eventType string) bool {
	return eventType == EventCommerceOrderCompleted
}

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventAffiliateLinkCreated, EventAffiliateClickRecorded, EventAffiliateConversionRecorded,
		EventAffiliateConversionStatusChanged, EventAffiliateProgramChanged:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventAffiliateClickRecorded:
		return CanonicalEventClassAnalyticsOnly
	case EventAffiliateLinkCreated, EventAffiliateConversionRecorded, EventAffiliateConversionStatusChanged, EventAffiliateProgramChanged:
		return CanonicalEventClassDomain
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventAffiliateProgramChanged:
		return "data.program_id"
	case EventAffiliateLinkCreated, EventAffiliateClickRecorded, EventAffiliateConversionRecorded, EventAffiliateConversionStatusChanged:
		return "data.link_id"
	default:
		return ""
	}
}
