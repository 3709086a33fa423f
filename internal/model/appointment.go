package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodWallet     PaymentMethod = "wallet"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodWallet, PaymentMethodNetBanking:
		return true
	}
	return false
}

// PaymentStatusPaid is the only settlement state a booking records.
const PaymentStatusPaid = "paid"

type ConsultationType string

const (
	ConsultationVideo ConsultationType = "video"
	ConsultationChat  ConsultationType = "chat"
)

// Document is attachment metadata. File content is never stored.
type Document struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Type string `json:"type"`
}

// Appointment is the only durable record. Field names follow the
// persisted blob layout.
type Appointment struct {
	ID              string            `json:"id"`
	DoctorID        int               `json:"doctorId,omitempty"`
	DoctorName      string            `json:"doctorName,omitempty"`
	DoctorSpecialty string            `json:"doctorSpecialty,omitempty"`
	PatientName     string            `json:"patientName,omitempty"`
	PatientNameHi   string            `json:"patientNameHi,omitempty"`
	PatientEmail    string            `json:"patientEmail,omitempty"`
	PatientPhone    string            `json:"patientPhone,omitempty"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	Type            ConsultationType  `json:"type,omitempty"`
	Symptoms        string            `json:"symptoms,omitempty"`
	SymptomsHi      string            `json:"symptomsHi,omitempty"`
	Fee             float64           `json:"fee"`
	Documents       []Document        `json:"documents"`
	Message         string            `json:"message"`
	NeedAshaWorker  bool              `json:"needAshaWorker"`
	PaymentMethod   PaymentMethod     `json:"paymentMethod,omitempty"`
	PaymentStatus   string            `json:"paymentStatus"`
	PaymentRef      string            `json:"paymentRef,omitempty"`
	Status          AppointmentStatus `json:"status"`
	CreatedAt       string            `json:"createdAt,omitempty"`
}

// Clone returns a deep copy.
func (a Appointment) Clone() Appointment {
	if a.Documents != nil {
		docs := make([]Document, len(a.Documents))
		copy(docs, a.Documents)
		a.Documents = docs
	}
	return a
}

// CloneAppointments deep-copies a list.
func CloneAppointments(list []Appointment) []Appointment {
	out := make([]Appointment, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}

type AppointmentEventType string

const (
	AppointmentCreated       AppointmentEventType = "appointment.created"
	AppointmentStatusChanged AppointmentEventType = "appointment.status_changed"
	AppointmentsReplaced     AppointmentEventType = "appointment.replaced"
)

// AppointmentEvent is published after every successful store write.
type AppointmentEvent struct {
	Type        AppointmentEventType `json:"type"`
	Appointment *Appointment         `json:"appointment,omitempty"`
	Revision    int64                `json:"revision"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// DoctorStats summarises the doctor view.
type DoctorStats struct {
	Today     int     `json:"today"`
	Pending   int     `json:"pending"`
	Confirmed int     `json:"confirmed"`
	Completed int     `json:"completed"`
	Earnings  float64 `json:"earnings"`
}
