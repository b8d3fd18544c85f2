package cel

// ConditionExamples are sample routing conditions, used in docs and tests.
var ConditionExamples = map[string]string{
	"simple_equals":       `context['status'] == 'active'`,
	"bare_key":            `customerTier == 'premium'`,
	"legacy_prefix":       `#context['customerTier'] == 'premium'`,
	"numeric_comparison":  `orderTotal > 100.0`,
	"null_check":          `context['couponCode'] != null`,
	"event_type":          `type == 'OrderCreated'`,
	"combined_conditions": `customerTier == 'premium' && orderTotal >= 500.0`,
	"either_or":           `region == 'eu' || region == 'uk'`,
	"metadata_lookup":     `metadata['source'] == 'svc-a'`,
}
