package domain

import "strings"

const (
	RPTypeRF = "RF"
	RPTypeND = "ND"

	TargetTypeHK  = "HK"
	TargetTypeMO  = "MO"
	TargetTypeALL = "ALL"

	DefaultDepotSite = "D001"

	InvalidSupplySource = "Invalid Source"
	NoCorrectionsNote   = "No data corrections needed"

	NoPromotionTargetNote = "No matching promotion target"
	NoShopTargetNote      = "No matching shop target"
)

// Dispatch routing categories.
const (
	DispatchTypeDepot        = "D001"
	DispatchTypeND           = "ND"
	DispatchTypeBuyerOrder   = "Buyer Order Required"
	DispatchTypeDNRequired   = "DN Required"
	DispatchTypeUnclassified = ""
)

// Out-of-stock warning levels, highest priority first.
const (
	WarningDepotInsufficient = "Depot Insufficient"
	WarningBranchShortage    = "Y"
	WarningNone              = "N"
)

// NormalizeTargetType upper-cases and trims a target type code.
func NormalizeTargetType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
