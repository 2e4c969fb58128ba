package domain

import "time"

type WorkorderStatus string

const (
	WorkorderStatusOpen       WorkorderStatus = "open"
	WorkorderStatusInProgress WorkorderStatus = "in_progress"
	WorkorderStatusClosed     WorkorderStatus = "closed"
)

// Workorder is a unit of work identified by a printed QR code.
type Workorder struct {
	ID        int64
	QRCode    string
	Title     string
	Detail    string
	Priority  int
	Status    WorkorderStatus
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkorderPatch carries the optional fields of an edit. Nil fields are left untouched.
type WorkorderPatch struct {
	QRCode   *string
	Title    *string
	Detail   *string
	Priority *int
	Status   *WorkorderStatus
}

// Comment is a note attached to a workorder, optionally with a photo.
type Comment struct {
	ID          int64
	Text        string
	Image       string
	WorkorderID int64
	UserID      int64
	CreatedAt   time.Time
}
