package model

import (
	"time"
)

type BookingState string

const (
	BookingSelectingDoctor       BookingState = "selecting_doctor"
	BookingSelectingDateTime     BookingState = "selecting_date_time"
	BookingAttachingDocuments    BookingState = "attaching_documents"
	BookingAwaitingPaymentMethod BookingState = "awaiting_payment_method"
	BookingCompleted             BookingState = "completed"
)

// DoctorSnapshot is the copy of catalog fields taken at selection time.
type DoctorSnapshot struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Specialty string  `json:"specialty"`
	Fee       float64 `json:"fee"`
}

// BookingFlow is flow-local state for one session.
type BookingFlow struct {
	SessionID      string          `json:"session_id"`
	State          BookingState    `json:"state"`
	Doctor         *DoctorSnapshot `json:"doctor,omitempty"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Documents      []Document      `json:"documents"`
	Message        string          `json:"message"`
	NeedAshaWorker bool            `json:"need_asha_worker"`
	PaymentMethod  PaymentMethod   `json:"payment_method,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FileMeta describes an attachment as received from the client.
type FileMeta struct {
	Name     string `json:"name" validate:"required"`
	Size     int64  `json:"size" validate:"min=0"`
	MIMEType string `json:"mime_type"`
}

type SelectDoctorRequest struct {
	DoctorID int `json:"doctor_id" validate:"required"`
}

type ScheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type AttachDocumentsRequest struct {
	Files []FileMeta `json:"files" validate:"required,dive"`
}

type MessageRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

type AssistanceRequest struct {
	NeedAshaWorker bool `json:"need_asha_worker"`
}

type PaymentMethodRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// BookingConfirmation is returned by a completed booking.
type BookingConfirmation struct {
	Appointment *Appointment `json:"appointment"`
	State       BookingState `json:"state"`
	Message     string       `json:"message"`
	Description string       `json:"description"`
}
