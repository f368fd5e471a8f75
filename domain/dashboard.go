package domain

import "time"

// ExpiryWarningDays is how far ahead a medicine counts as expiring soon.
const ExpiryWarningDays = 30

// Dashboard holds the headline counters of the pharmacy overview.
type Dashboard struct {
	TotalMedicines      int `json:"total_medicines"`
	LowStock            int `json:"low_stock"`
	ExpiringSoon        int `json:"expiring_soon"`
	TodaysPrescriptions int `json:"todays_prescriptions"`
	OpenAlerts          int `json:"open_alerts"`
}

// Summarize derives the dashboard counters from the three collections.
func Summarize(medicines []Medicine, alerts []Alert, prescriptions []Prescription, now time.Time) Dashboard {
	d := Dashboard{TotalMedicines: len(medicines)}
	for _, m := range medicines {
		if m.LowStock() {
			d.LowStock++
		}
		if m.ExpiresWithin(now, ExpiryWarningDays) {
			d.ExpiringSoon++
		}
	}
	for _, a := range alerts {
		if a.Actionable() {
			d.OpenAlerts++
		}
	}
	y, mo, day := now.Date()
	for _, p := range prescriptions {
		py, pmo, pday := p.CreatedAt.In(now.Location()).Date()
		if py == y && pmo == mo && pday == day {
			d.TodaysPrescriptions++
		}
	}
	return d
}
