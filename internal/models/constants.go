package models

const (
	PolicyHighestRating = "highest_rating"
	PolicyLatest        = "latest"

	OutcomeChosen   = "chosen"
	OutcomeDeclined = "declined"
	OutcomeNoChoice = "no_choice"

	BiasNone         = ""
	BiasOverPositive = "over_positive"
	BiasStale        = "stale"

	StreamFormatConsole = "console"
	StreamFormatJSON    = "json"
	StreamFormatKafka   = "kafka"
	StreamFormatParquet = "parquet"
)

// ValidPolicies lists every review-sort policy a restaurant may be configured with.
var ValidPolicies = map[string]bool{
	PolicyHighestRating: true,
	PolicyLatest:        true,
}
