package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"preferio/models"
	"preferio/report"
	"preferio/reports"
)

// Default document values used when the backend has no report yet.
// They reproduce the original paper report's header.
const (
	DefaultReportID       = "P7922"
	DefaultTitle          = "TPI POLENE POWER PUBLIC COMPANY LIMITED LANDFILL REPORT"
	DefaultCompany        = "บจก. พรีเฟอริโอ้ เทรด"
	DefaultPeriod         = "1-15/09/2025"
	DefaultQuotaWeight    = 1700
	DefaultReference      = "00W1W23100/5"
	DefaultReportBy       = "A/C Saraburi"
	DefaultPriceReference = "H265794"
	DefaultAdjustment     = "700-527/W2000"
)

// ErrCanceled is returned when the user cancels a destructive view
// switch at the unsaved-changes prompt.
var ErrCanceled = errors.New("canceled by user")

// errNoReport guards operations that need a loaded document.
var errNoReport = errors.New("no report loaded")

// Decision is the user's answer to the unsaved-changes prompt.
type Decision int

const (
	// DecisionCancel aborts the switch; local state is untouched.
	DecisionCancel Decision = iota
	// DecisionSave saves first, then proceeds.
	DecisionSave
	// DecisionDiscard proceeds without saving.
	DecisionDiscard
)

// ConfirmFunc asks the user what to do with unsaved changes before a
// destructive switch.
type ConfirmFunc func(ctx context.Context) Decision

// Controller owns the local report state the way the entry screen
// does: it mirrors backend documents, tracks unsaved edits and applies
// server responses only when they are not stale.
type Controller struct {
	api     *Client
	userID  string
	confirm ConfirmFunc

	mu          sync.Mutex
	doc         *report.Document
	attachments []models.Attachment
	unsaved     bool
	editing     bool

	// Monotonic issue counter. A fetch that started before the last
	// applied one is dropped rather than clobbering newer state.
	nextIssue    uint64
	appliedIssue uint64
}

// NewController builds a Controller for one user. confirm may be nil,
// in which case unsaved changes are always kept (switches cancel).
func NewController(api *Client, userID string, confirm ConfirmFunc) *Controller {
	return &Controller{api: api, userID: userID, confirm: confirm}
}

// Document returns a copy of the loaded document, or nil. The row and
// audit slices are copied too, so editing the result cannot change
// controller state behind MarkDirty's back.
func (c *Controller) Document() *report.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return nil
	}
	cp := *c.doc
	if c.doc.DataRows != nil {
		cp.DataRows = append([]models.ReportRow(nil), c.doc.DataRows...)
	}
	if c.doc.AuditTrail != nil {
		cp.AuditTrail = append([]models.AuditLog(nil), c.doc.AuditTrail...)
	}
	return &cp
}

// Attachments returns a copy of the attachment metadata loaded with
// the report.
func (c *Controller) Attachments() []models.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attachments == nil {
		return nil
	}
	return append([]models.Attachment(nil), c.attachments...)
}

// HasUnsavedChanges reports whether local edits have not been saved.
func (c *Controller) HasUnsavedChanges() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsaved
}

// MarkDirty records a local edit. Only a successful save clears it.
func (c *Controller) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsaved = true
}

// BeginEditing marks a field as actively edited, which suppresses
// refresh overwrites of in-progress input.
func (c *Controller) BeginEditing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = true
}

// EndEditing releases the editing mark.
func (c *Controller) EndEditing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = false
}

// DefaultDocument is the document created when the backend is empty.
func DefaultDocument() report.IncomingDocument {
	return report.IncomingDocument{
		ID: DefaultReportID,
		ReportInfo: report.ReportInfo{
			ReportID:       DefaultReportID,
			Title:          DefaultTitle,
			Company:        DefaultCompany,
			Period:         DefaultPeriod,
			QuotaWeight:    DefaultQuotaWeight,
			Reference:      DefaultReference,
			ReportBy:       DefaultReportBy,
			PriceReference: DefaultPriceReference,
			Adjustment:     DefaultAdjustment,
		},
		DataRows: []report.RowPayload{},
	}
}

func (c *Controller) issue() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextIssue++
	return c.nextIssue
}

// apply installs a fetched document unless a later operation already
// landed. It reports whether the response was applied.
func (c *Controller) apply(issue uint64, doc *report.Document, atts []models.Attachment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if issue <= c.appliedIssue {
		return false
	}
	c.appliedIssue = issue
	c.doc = doc
	c.attachments = atts
	return true
}

// applyState installs the revision state a mutating call returned,
// under the same ordering guard as apply. A fetch issued before the
// mutation can no longer overwrite its result.
func (c *Controller) applyState(issue uint64, reportID string, state reports.RevisionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if issue <= c.appliedIssue {
		return false
	}
	c.appliedIssue = issue
	if c.doc != nil && c.doc.ID == reportID {
		c.doc.Version = state.Version
		c.doc.Status = state.Status
		c.doc.LockedBy = state.LockedBy
		c.doc.LockedAt = state.LockedAt
	}
	return true
}

// Fetch loads the current report. When the backend has none it creates
// the default document first, then loads the document and its
// attachments concurrently. Missing fields are defaulted so the caller
// always sees a complete document.
func (c *Controller) Fetch(ctx context.Context) (*report.Document, error) {
	doc, err := c.api.FetchCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		if err := c.api.CreateCurrent(ctx, DefaultDocument()); err != nil {
			return nil, fmt.Errorf("create default report: %w", err)
		}
		doc, err = c.api.FetchCurrent(ctx)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, errors.New("backend still empty after creating default report")
		}
	}
	return c.fetchInto(ctx, doc.ID)
}

// fetchInto loads one report's document and attachments concurrently.
func (c *Controller) fetchInto(ctx context.Context, reportID string) (*report.Document, error) {
	issue := c.issue()

	var doc *report.Document
	var atts []models.Attachment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = c.api.FetchByID(gctx, reportID)
		return err
	})
	g.Go(func() error {
		var err error
		atts, err = c.api.FetchAttachments(gctx, reportID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	applyDefaults(doc)

	if !c.apply(issue, doc, atts) {
		return c.Document(), nil
	}
	return doc, nil
}

// applyDefaults fills fields older documents may lack.
func applyDefaults(doc *report.Document) {
	if doc.ReportInfo.Title == "" {
		doc.ReportInfo.Title = DefaultTitle
	}
	if doc.ReportInfo.QuotaWeight == 0 {
		doc.ReportInfo.QuotaWeight = DefaultQuotaWeight
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.Status == "" {
		doc.Status = models.StatusDraft
	}
	if doc.DataRows == nil {
		doc.DataRows = []models.ReportRow{}
	}
}

// StatusNew marks a report skeleton created locally whose first save
// has not happened yet. It never comes from the server.
const StatusNew = "new"

// CreateNew registers a new report skeleton (empty rows) after the
// unsaved-changes guard. On success the local state shows the
// uncommitted report; the first save assigns its real version.
func (c *Controller) CreateNew(ctx context.Context, info report.ReportInfo) error {
	if !report.ValidReportID(info.ReportID) {
		return fmt.Errorf("invalid report id %q: want P followed by 4 digits", info.ReportID)
	}
	if err := c.guardUnsaved(ctx); err != nil {
		return err
	}

	issue := c.issue()
	id, err := c.api.CreateReport(ctx, report.IncomingDocument{
		ID:         info.ReportID,
		ReportInfo: info,
		DataRows:   []report.RowPayload{},
	})
	if err != nil {
		return err
	}

	c.apply(issue, &report.Document{
		ID:         id,
		ReportInfo: info,
		DataRows:   []models.ReportRow{},
		Version:    0,
		Status:     StatusNew,
	}, nil)
	return nil
}

// Lock takes the edit lock for this controller's user. The draft and
// lock preconditions are checked locally first; the server stays
// authoritative. Local state changes only on a successful response.
func (c *Controller) Lock(ctx context.Context) error {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc == nil {
		return errNoReport
	}
	if doc.LockedBy != nil && *doc.LockedBy != c.userID {
		return &APIError{StatusCode: 409, Message: fmt.Sprintf("report is locked by %s", *doc.LockedBy)}
	}
	if doc.LockedBy == nil && doc.Status != models.StatusDraft {
		return &APIError{StatusCode: 409, Message: fmt.Sprintf("report is %s and cannot be locked", doc.Status)}
	}

	issue := c.issue()
	state, err := c.api.Lock(ctx, doc.ID, c.userID)
	if err != nil {
		return err
	}
	c.applyState(issue, doc.ID, state)
	return nil
}

// Unlock releases the edit lock. Only the holder may release it.
func (c *Controller) Unlock(ctx context.Context) error {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc == nil {
		return errNoReport
	}
	if doc.LockedBy != nil && *doc.LockedBy != c.userID {
		return &APIError{StatusCode: 409, Message: fmt.Sprintf("report is locked by %s", *doc.LockedBy)}
	}

	issue := c.issue()
	state, err := c.api.Unlock(ctx, doc.ID, c.userID)
	if err != nil {
		return err
	}
	c.applyState(issue, doc.ID, state)
	return nil
}

// SaveWithVersion persists the local document as the next revision.
// The server assigns the version; whatever it returns is adopted
// verbatim. Only a successful save clears the unsaved flag.
func (c *Controller) SaveWithVersion(ctx context.Context) error {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc == nil {
		return errNoReport
	}
	if doc.LockedBy != nil && *doc.LockedBy != c.userID {
		return &APIError{StatusCode: 409, Message: fmt.Sprintf("report is locked by %s", *doc.LockedBy)}
	}

	issue := c.issue()
	state, err := c.api.Save(ctx, doc.ID, outgoing(doc), c.userID)
	if err != nil {
		return err
	}

	c.applyState(issue, doc.ID, state)
	// The server accepted the revision even if a later response already
	// superseded its state locally.
	c.mu.Lock()
	c.unsaved = false
	c.mu.Unlock()
	return nil
}

// outgoing converts the local document back into the submit shape.
func outgoing(doc *report.Document) report.IncomingDocument {
	rows := make([]report.RowPayload, 0, len(doc.DataRows))
	for _, row := range doc.DataRows {
		r := row
		id := r.ID
		rows = append(rows, report.RowPayload{
			ID:          &id,
			ReceiveTon:  r.ReceiveTon,
			Ton:         &r.Ton,
			TotalTon:    &r.TotalTon,
			PricingType: r.PricingType,
			GCV:         r.GCV,
			Multi:       r.Multi,
			Price:       r.Price,
			BahtPerTon:  &r.BahtPerTon,
			Amount:      &r.Amount,
			VAT:         &r.VAT,
			Total:       &r.Total,
			Remark:      r.Remark,
			Source:      r.Source,
		})
	}
	return report.IncomingDocument{
		ID:             doc.ID,
		ReportInfo:     doc.ReportInfo,
		DataRows:       rows,
		AdditionalInfo: doc.AdditionalInfo,
	}
}

// guardUnsaved runs the three-way prompt before a destructive switch.
// It returns ErrCanceled when the user keeps their changes.
func (c *Controller) guardUnsaved(ctx context.Context) error {
	c.mu.Lock()
	unsaved := c.unsaved
	c.mu.Unlock()
	if !unsaved {
		return nil
	}
	if c.confirm == nil {
		return ErrCanceled
	}
	switch c.confirm(ctx) {
	case DecisionSave:
		return c.SaveWithVersion(ctx)
	case DecisionDiscard:
		c.mu.Lock()
		c.unsaved = false
		c.mu.Unlock()
		return nil
	default:
		return ErrCanceled
	}
}

// SwitchCompany changes the header company after the unsaved-changes
// guard, persisting the header through the current-report endpoint.
func (c *Controller) SwitchCompany(ctx context.Context, company string) error {
	return c.switchHeader(ctx, func(doc *report.Document) {
		doc.ReportInfo.Company = company
	})
}

// SwitchPeriod changes the header period after the guard.
func (c *Controller) SwitchPeriod(ctx context.Context, period string) error {
	return c.switchHeader(ctx, func(doc *report.Document) {
		doc.ReportInfo.Period = period
	})
}

func (c *Controller) switchHeader(ctx context.Context, mutate func(*report.Document)) error {
	if err := c.guardUnsaved(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return errNoReport
	}
	updated := *c.doc
	mutate(&updated)
	c.mu.Unlock()

	issue := c.issue()
	if err := c.api.CreateCurrent(ctx, outgoing(&updated)); err != nil {
		return err
	}

	c.mu.Lock()
	if issue > c.appliedIssue {
		c.appliedIssue = issue
		c.doc = &updated
	}
	c.mu.Unlock()
	return nil
}

// SwitchReport loads a different report after the guard.
func (c *Controller) SwitchReport(ctx context.Context, reportID string) error {
	if err := c.guardUnsaved(ctx); err != nil {
		return err
	}
	_, err := c.fetchInto(ctx, reportID)
	return err
}

// ClearView drops the local state after the guard.
func (c *Controller) ClearView(ctx context.Context) error {
	if err := c.guardUnsaved(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = nil
	c.attachments = nil
	return nil
}
