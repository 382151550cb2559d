package entity

import "time"

// License is the authorization record returned by the license service.
// Validity is always recomputed at read time; the stored status flag alone
// is never trusted once the end date has passed.
type License struct {
	LicenseKey     string `json:"licenseKey"`
	AccountID      string `json:"accountID"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	LicenseStatus  string `json:"licenseStatus"` // "Active" | "Inactive"
	UsageLimit     int    `json:"usageLimit"`
	DurationLimit  int    `json:"durationLimit"`
	ExpiredLicense bool   `json:"expiredLicense"`
	APIKey         string `json:"apiKey"`
	ModelID        string `json:"modelId"`
}

// EffectiveActive computes validity defensively: the expired flag, a past
// end date, or an inactive status each independently disable the license.
func (l *License) EffectiveActive(now time.Time) bool {
	if l.ExpiredLicense {
		return false
	}
	if l.LicenseStatus != "Active" {
		return false
	}
	if l.EndDate != "" {
		if end, err := time.Parse("2006-01-02", l.EndDate); err == nil {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			if end.Before(today) {
				return false
			}
		}
	}
	return true
}
