package model

// Rule names shared by the constraint encoders and the validator checks.
// Listed in evaluation order.
const (
	RuleAvailability    = "Availability"
	RuleHourBounds      = "HourBounds"
	RuleCoverage        = "Coverage"
	RuleConsecutiveDays = "ConsecutiveDays"
	RuleRestPeriod      = "RestPeriod"
	RuleLaborBudget     = "LaborBudget"
)

// RuleOrder lists every rule in evaluation order
var RuleOrder = []string{
	RuleAvailability,
	RuleHourBounds,
	RuleCoverage,
	RuleConsecutiveDays,
	RuleRestPeriod,
	RuleLaborBudget,
}
