package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MProviderRequests        MetricKey = "provider_requests_total"
	MProviderRequestDuration MetricKey = "provider_request_duration_seconds"
	MWebhookEvents           MetricKey = "webhook_events_total"
	MInventoryDecrements     MetricKey = "inventory_decrements_total"
	MOrderEvents             MetricKey = "order_events_total"
)
