package models

// ProviderStatusResponse is returned by the order provider-status query.
type ProviderStatusResponse struct {
	Status             BookingStatus    `json:"status"`
	AssignedProviderID string           `json:"assigned_provider_id,omitempty"`
	Provider           *ProviderSummary `json:"provider,omitempty"`
	PendingOffers      int              `json:"pending_offers"`
}
