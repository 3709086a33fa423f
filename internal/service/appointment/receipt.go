package appointment

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
)

// Receipt renders a PDF receipt for a paid appointment.
func (s *Service) Receipt(ctx context.Context, id string) ([]byte, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PaymentStatus != model.PaymentStatusPaid {
		return nil, fmt.Errorf("%s: %w", id, ErrNotPaid)
	}
	return RenderReceipt(*a)
}

// RenderReceipt lays out one appointment as an A4 page. The core fonts
// cannot draw the rupee sign or Devanagari, so amounts use "INR" and only
// the Latin names are printed.
func RenderReceipt(a model.Appointment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(44, 125, 160)
	pdf.CellFormat(0, 10, "SehatSathi - Consultation Receipt", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, "Healthcare for rural India", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Appointment", "1", 1, "C", false, 0, "")
	addDetail(pdf, "Appointment ID", a.ID, true)
	addDetail(pdf, "Doctor", orDash(a.DoctorName), false)
	addDetail(pdf, "Specialty", orDash(a.DoctorSpecialty), false)
	addDetail(pdf, "Patient", orDash(a.PatientName), false)
	addDetail(pdf, "Date", a.Date, false)
	addDetail(pdf, "Time", a.Time, false)
	addDetail(pdf, "Consultation", orDash(string(a.Type)), false)
	addDetail(pdf, "Status", string(a.Status), false)
	if len(a.Documents) > 0 {
		names := make([]string, len(a.Documents))
		for i, d := range a.Documents {
			names[i] = d.Name
		}
		addDetail(pdf, "Documents", strings.Join(names, ", "), false)
	}
	if a.NeedAshaWorker {
		addDetail(pdf, "Assistance", "ASHA Worker requested", false)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Payment", "1", 1, "C", false, 0, "")
	addDetail(pdf, "Method", orDash(string(a.PaymentMethod)), false)
	addDetail(pdf, "Reference", orDash(a.PaymentRef), false)
	pdf.SetTextColor(82, 183, 136)
	addDetail(pdf, "Amount Paid", fmt.Sprintf("INR %.2f", a.Fee), true)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated receipt", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func addDetail(pdf *gofpdf.Fpdf, label, value string, isHeader bool) {
	if isHeader {
		pdf.SetFont("Arial", "B", 12)
	} else {
		pdf.SetFont("Arial", "", 10)
	}
	pdf.CellFormat(45, 10, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
