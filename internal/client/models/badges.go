package models

import "time"

type Badge string

const (
	BadgeFiveYears    Badge = "FIVE_YEARS"
	BadgeTwoYears     Badge = "TWO_YEARS"
	BadgeOneYear      Badge = "ONE_YEAR"
	BadgeEarlyAdopter Badge = "EARLY_ADOPTER"
	BadgeStaff        Badge = "STAFF"
	BadgeOwner        Badge = "OWNER"
	BadgeBeta         Badge = "BETA"
	BadgePremium      Badge = "PREMIUM"
)

const year = 365 * 24 * time.Hour

// Badges returns the badges u has earned at now: at most one membership
// badge followed by one badge per role flag.
func Badges(u User, now time.Time) []Badge {
	var out []Badge
	if !u.CreatedAt.IsZero() {
		age := now.Sub(u.CreatedAt)
		switch {
		case age >= 5*year:
			out = append(out, BadgeFiveYears)
		case age >= 2*year:
			out = append(out, BadgeTwoYears)
		case age >= year:
			out = append(out, BadgeOneYear)
		case age <= year/10:
			out = append(out, BadgeEarlyAdopter)
		}
	}
	if u.IsAdmin {
		out = append(out, BadgeStaff)
	}
	if u.IsOwner {
		out = append(out, BadgeOwner)
	}
	if u.IsBetaTester {
		out = append(out, BadgeBeta)
	}
	if u.IsPremium {
		out = append(out, BadgePremium)
	}
	return out
}
