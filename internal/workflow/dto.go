package workflow

import "time"

type createQuotationRequest struct {
	RequestID  int64              `json:"request_id" validate:"required,gt=0"`
	Selections []selectionPayload `json:"selections" validate:"required,min=1,dive"`
}

type selectionPayload struct {
	WorksheetID int64 `json:"worksheet_id" validate:"required,gt=0"`
	EntryID     int   `json:"entry_id" validate:"required,gt=0"`
}

type toggleClosedRequest struct {
	Closed bool `json:"closed"`
}

type approvalRequest struct {
	Status ApprovalStatus `json:"status" validate:"required"`
}

type invoiceRequest struct {
	Date time.Time `json:"date" validate:"required"`
}

type trackingRequest struct {
	Status    TrackingStatus `json:"status" validate:"required"`
	Location  string         `json:"location" validate:"max=255"`
	Note      string         `json:"note" validate:"max=2000"`
	FilePaths []string       `json:"file_paths" validate:"max=10,dive,max=500"`
}

// QuotationDetail bundles a quotation with its entry links for responses.
type QuotationDetail struct {
	Quotation Quotation       `json:"quotation"`
	Links     []QuotationLink `json:"links"`
	Backlog   int             `json:"backlog_weeks"`
}
