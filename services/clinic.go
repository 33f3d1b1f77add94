package services

// ClinicInfo is the contact information quoted in responses.
type ClinicInfo struct {
	Name           string
	Address        string
	Phone          string
	EmergencyPhone string
	Hours          string
	Services       string
}

func DefaultClinicInfo() ClinicInfo {
	return ClinicInfo{
		Name:           "HealthCare Clinic",
		Address:        "123 Medical Center, Downtown",
		Phone:          "+1-234-567-8900",
		EmergencyPhone: "911",
		Hours:          "Mon-Fri: 9AM-6PM, Sat: 9AM-2PM",
		Services:       "General Medicine, Pediatrics, Cardiology, Dermatology",
	}
}
