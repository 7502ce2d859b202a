package shared

// Asynq task type names shared between the API (producer) and the worker.
const (
	TypeTransferProductMedia = "catalog:transfer_media"
	TypeRefreshMetadata      = "catalog:refresh_metadata"
)

// MediaTransferPayload carries one product's source image URLs to the
// media transfer worker.
type MediaTransferPayload struct {
	EntityID  int64    `json:"entityId"`
	SKU       string   `json:"sku"`
	ImageURLs []string `json:"imageUrls"`
}
