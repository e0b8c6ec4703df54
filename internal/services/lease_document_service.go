package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
)

const leaseContentType = "application/pdf"

// LeaseDocumentService renders a residential lease to PDF and stores it.
type LeaseDocumentService struct {
	uploader ObjectUploader
}

func NewLeaseDocumentService(uploader ObjectUploader) *LeaseDocumentService {
	return &LeaseDocumentService{uploader: uploader}
}

// LeaseObjectKey is stable per application.
func LeaseObjectKey(f LeaseFields) string {
	return path.Join(constants.LeaseObjectPrefix, f.ApplicationID.String()+".pdf")
}

func (s *LeaseDocumentService) RenderLease(ctx context.Context, f LeaseFields) (string, error) {
	var buf bytes.Buffer
	if err := writeLeasePDF(&buf, f); err != nil {
		return "", fmt.Errorf("render lease: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	url, err := s.uploader.Upload(ctx, LeaseObjectKey(f), &buf, leaseContentType)
	if err != nil {
		return "", fmt.Errorf("upload lease: %w", err)
	}
	return url, nil
}

func writeLeasePDF(buf *bytes.Buffer, f LeaseFields) error {
	const (
		margin = 20.0
		width  = 170.0
		line   = 6.0
	)
	date := func(d time.Time) string { return d.Format(dateLayout) }

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetTitle("Residential Lease Agreement", false)
	pdf.SetAuthor(f.LandlordName, false)
	pdf.AddPage()

	heading := func(s string) {
		pdf.Ln(line)
		pdf.SetFont("Times", "B", 12)
		pdf.CellFormat(width, line, s, "", 1, "L", false, 0, "")
		pdf.SetFont("Times", "", 12)
	}
	para := func(format string, args ...any) {
		pdf.MultiCell(width, line, fmt.Sprintf(format, args...), "", "L", false)
	}

	pdf.SetFont("Times", "B", 18)
	pdf.CellFormat(width, 10, "RESIDENTIAL LEASE AGREEMENT", "", 1, "L", false, 0, "")
	pdf.Ln(line)

	pdf.SetFont("Times", "", 12)
	para(`This Residential Lease Agreement ("Agreement") is made on %s between:`, date(f.AgreementDate))
	pdf.Ln(line / 2)
	para(`Landlord: %s ("Landlord")`, f.LandlordName)
	para(`Tenant: %s ("Tenant")`, f.TenantName)

	heading("1. PROPERTY")
	premises := fmt.Sprintf("%s, %s", f.PropertyName, f.PropertyAddress)
	kind := "property"
	if f.IsRoomRental() {
		premises += fmt.Sprintf(" (%s)", f.RoomName)
		kind = "room"
	}
	para("The Landlord agrees to rent to the Tenant the %s located at:", kind)
	para(`    %s ("Premises")`, premises)

	heading("2. TERM")
	para("The term of this Agreement shall be for %d months, beginning on %s and ending on %s.",
		f.StayLength, date(f.StartDate), date(f.EndDate))

	heading("3. RENT")
	para("The Tenant agrees to pay %s per month as rent, payable on the first day of each month.", money(f.RentAmount))

	heading("4. DEPOSIT")
	para("The Tenant shall pay a deposit of %s to be held by the Landlord. This Agreement takes effect once the deposit is received.",
		money(f.DepositAmount))

	pdf.SetXY(margin+100, 250)
	pdf.CellFormat(60, line, "TENANT:", "", 2, "L", false, 0, "")
	pdf.Ln(line * 2)
	pdf.SetX(margin + 100)
	pdf.CellFormat(60, line, "______________________", "", 2, "L", false, 0, "")
	pdf.SetX(margin + 100)
	pdf.CellFormat(60, line, "Date: ________________", "", 2, "L", false, 0, "")

	return pdf.Output(buf)
}
