package http

import (
	"preferio/attachments"
	"preferio/exports"
	"preferio/report"
	"preferio/reports"
	"preferio/viewstate"
)

// RegisterReportRoutes wires the REST surface the entry SPA talks to.
func (s *Server) RegisterReportRoutes() {
	// Current report document.
	s.router.Get("/landfill-report", report.GetReportHandler(s.DB))
	s.router.Post("/landfill-report", report.CreateReportHandler(s.DB, s.Audit))
	s.router.Put("/landfill-report", report.UpdateHeaderHandler(s.DB, s.Audit))
	s.router.Post("/landfill-report/row", report.AddRowHandler(s.DB, s.Audit))
	s.router.Put("/landfill-report/row/{id}", report.UpdateRowHandler(s.DB, s.Audit))
	s.router.Delete("/landfill-report/row/{id}", report.DeleteRowHandler(s.DB, s.Audit))

	// Report registry and the revision workflow.
	s.router.Get("/all-reports", reports.ListHandler(s.DB))
	s.router.Delete("/all-reports/{id}", reports.DeleteHandler(s.DB))
	s.router.Post("/landfill-reports", reports.CreateHandler(s.DB, s.Audit))
	s.router.Get("/landfill-reports/{id}", reports.GetHandler(s.DB))
	s.router.Post("/landfill-reports/{id}/select", reports.SetCurrentHandler(s.DB))
	s.router.Get("/landfill-reports/{id}/audit", reports.AuditTrailHandler(s.DB))
	s.router.Post("/landfill-reports/{id}/lock", reports.LockHandler(s.DB, s.Audit))
	s.router.Post("/landfill-reports/{id}/unlock", reports.UnlockHandler(s.DB, s.Audit))
	s.router.Post("/landfill-reports/{id}/save", reports.SaveHandler(s.DB, s.Audit))

	// Attachments.
	s.router.Get("/landfill-reports/{id}/attachments", attachments.ListHandler(s.DB))
	s.router.Post("/landfill-reports/{id}/attachments", attachments.UploadHandler(s.DB, s.Audit, s.Cfg.AttachmentDir))
	s.router.Get("/attachments/{id}/{saved}", attachments.DownloadHandler(s.DB, s.Cfg.AttachmentDir))

	// Exports.
	s.router.Get("/landfill-report/export", exports.JSONHandler(s.DB))
	s.router.Get("/landfill-report/export.xlsx", exports.ExcelHandler(s.DB))
	s.router.Get("/landfill-report/export.pdf", exports.PDFHandler(s.DB))

	// View state.
	s.router.Get("/landfill-report/view-state", viewstate.GetHandler(s.DB))
	s.router.Put("/landfill-report/view-state", viewstate.PutHandler(s.DB))
}
