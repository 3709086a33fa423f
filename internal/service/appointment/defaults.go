package appointment

import (
	"time"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
)

// DateLayout is the short date form bookings and defaults carry.
const DateLayout = "1/2/2006"

// Defaults are shown to doctors while the store holds nothing. Their
// date is always the current day.
func Defaults(now time.Time) []model.Appointment {
	today := now.Format(DateLayout)
	return []model.Appointment{
		{
			ID:             "default-1",
			PatientName:    "Priya Sharma",
			PatientNameHi:  "प्रिया शर्मा",
			Date:           today,
			Time:           "10:00 AM",
			Type:           model.ConsultationVideo,
			Status:         model.AppointmentStatusPending,
			Symptoms:       "Fever and headache",
			SymptomsHi:     "बुखार और सिरदर्द",
			Documents:      []model.Document{},
			NeedAshaWorker: false,
			PaymentStatus:  model.PaymentStatusPaid,
			Fee:            199,
		},
		{
			ID:             "default-2",
			PatientName:    "Rajesh Kumar",
			PatientNameHi:  "राजेश कुमार",
			Date:           today,
			Time:           "11:30 AM",
			Type:           model.ConsultationVideo,
			Status:         model.AppointmentStatusConfirmed,
			Symptoms:       "Stomach pain",
			SymptomsHi:     "पेट दर्द",
			Documents:      []model.Document{},
			NeedAshaWorker: true,
			PaymentStatus:  model.PaymentStatusPaid,
			Fee:            199,
		},
	}
}

// Stats counts the view for the doctor dashboard cards. Cancelled
// appointments earn nothing.
func Stats(list []model.Appointment, now time.Time) model.DoctorStats {
	today := now.Format(DateLayout)
	var stats model.DoctorStats
	for _, a := range list {
		if a.Date == today {
			stats.Today++
		}
		switch a.Status {
		case model.AppointmentStatusPending:
			stats.Pending++
		case model.AppointmentStatusConfirmed:
			stats.Confirmed++
		case model.AppointmentStatusCompleted:
			stats.Completed++
		}
		if a.PaymentStatus == model.PaymentStatusPaid && a.Status != model.AppointmentStatusCancelled {
			stats.Earnings += a.Fee
		}
	}
	return stats
}
