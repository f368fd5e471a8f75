package domain

import (
	"cmp"
	"strings"
)

// MedicineSorters are the sort keys of the medicine list.
func MedicineSorters() map[string]func(a, b Medicine) int {
	return map[string]func(a, b Medicine) int{
		"name":         func(a, b Medicine) int { return compareFold(a.Name, b.Name) },
		"quantity":     func(a, b Medicine) int { return cmp.Compare(a.Quantity, b.Quantity) },
		"price":        func(a, b Medicine) int { return a.Price.Cmp(b.Price) },
		"expiry_date":  func(a, b Medicine) int { return strings.Compare(a.ExpiryDate, b.ExpiryDate) },
		"manufacturer": func(a, b Medicine) int { return compareFold(a.Manufacturer, b.Manufacturer) },
	}
}

// AlertSorters are the sort keys of the alert list.
func AlertSorters() map[string]func(a, b Alert) int {
	return map[string]func(a, b Alert) int{
		"created_at": func(a, b Alert) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"priority":   func(a, b Alert) int { return cmp.Compare(PriorityRank(a.Priority), PriorityRank(b.Priority)) },
		"title":      func(a, b Alert) int { return compareFold(a.Title, b.Title) },
	}
}

// PrescriptionSorters are the sort keys of the prescription list.
func PrescriptionSorters() map[string]func(a, b Prescription) int {
	return map[string]func(a, b Prescription) int{
		"created_at":   func(a, b Prescription) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"patient_name": func(a, b Prescription) int { return compareFold(a.PatientName, b.PatientName) },
		"patient_age":  func(a, b Prescription) int { return cmp.Compare(a.PatientAge, b.PatientAge) },
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
