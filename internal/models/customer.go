package models

// Customer is a synthetic diner generated once per arrival. Immutable
// after creation; referenced by exactly one decision event.
type Customer struct {
	ID                 string `json:"id"`
	Day                int    `json:"day"`
	Name               string `json:"name"`
	Income             string `json:"income"`
	Taste              string `json:"taste"`
	Health             string `json:"health"`
	DietaryRestriction string `json:"dietary_restriction"`
	Personality        string `json:"personality"`
	Profile            string `json:"profile,omitempty"`
	Fallback           bool   `json:"fallback,omitempty"`
}
