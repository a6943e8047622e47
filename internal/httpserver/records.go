package httpserver

import (
	"net/http"
	"strconv"

	"csp-portal/internal/repo"
	"csp-portal/internal/validation"

	"go.uber.org/zap"
)

const defaultListLimit = 10

// -- Transactions --

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in repo.NewTransaction
	if err := validation.Decode(r.Body, &in); err != nil {
		s.fail(w, r, "create transaction", err)
		return
	}
	tx, err := s.store.CreateTransaction(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get transaction", err)
		return
	}
	writeFound(w, tx, "Transaction not found")
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	cspID, ok := pathID(w, r, "cspId")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, defaultListLimit)
	if !ok {
		return
	}
	list, err := s.store.ListTransactionsByCSP(r.Context(), cspID, limit)
	if err != nil {
		s.fail(w, r, "get transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// -- Alerts --

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var in repo.NewAlert
	if err := validation.Decode(r.Body, &in); err != nil {
		s.fail(w, r, "create alert", err)
		return
	}
	alert, err := s.store.CreateAlert(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create alert", err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, defaultListLimit)
	if !ok {
		return
	}
	filter := repo.AlertFilter{
		Status:   queryString(r, "status"),
		Severity: queryString(r, "severity"),
	}
	if raw := r.URL.Query().Get("cspId"); raw != "" {
		cspID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || cspID <= 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid cspId")
			return
		}
		filter.CSPID = &cspID
	}
	list, err := s.store.ListAlerts(r.Context(), filter, limit)
	if err != nil {
		s.fail(w, r, "list alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	alert, err := s.store.GetAlert(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get alert", err)
		return
	}
	writeFound(w, alert, "Alert not found")
}

func (s *Server) handleListAlertsByCSP(w http.ResponseWriter, r *http.Request) {
	cspID, ok := pathID(w, r, "cspId")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, repo.NoLimit)
	if !ok {
		return
	}
	list, err := s.store.ListAlertsByCSP(r.Context(), cspID, limit)
	if err != nil {
		s.fail(w, r, "get alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleUpdateAlert stamps resolvedAt when an alert is resolved without one.
func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch repo.AlertPatch
	if err := validation.Decode(r.Body, &patch); err != nil {
		s.fail(w, r, "update alert", err)
		return
	}
	if patch.Status != nil && *patch.Status == "resolved" && !patch.ResolvedAt.Set {
		patch.ResolvedAt = repo.Some(s.now())
	}
	alert, err := s.store.UpdateAlert(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, "update alert", err)
		return
	}
	writeFound(w, alert, "Alert not found")
}

// -- Audits --

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var in repo.NewAudit
	if err := validation.Decode(r.Body, &in); err != nil {
		s.fail(w, r, "create audit", err)
		return
	}
	audit, err := s.store.CreateAudit(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create audit", err)
		return
	}
	writeJSON(w, http.StatusCreated, audit)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	audit, err := s.store.GetAudit(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get audit", err)
		return
	}
	writeFound(w, audit, "Audit not found")
}

func (s *Server) handleListAuditsByCSP(w http.ResponseWriter, r *http.Request) {
	cspID, ok := pathID(w, r, "cspId")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, repo.NoLimit)
	if !ok {
		return
	}
	list, err := s.store.ListAuditsByCSP(r.Context(), cspID, limit)
	if err != nil {
		s.fail(w, r, "get audits", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListAuditsByAuditor(w http.ResponseWriter, r *http.Request) {
	auditorID, ok := pathID(w, r, "auditorId")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, repo.NoLimit)
	if !ok {
		return
	}
	list, err := s.store.ListAuditsByAuditor(r.Context(), auditorID, limit)
	if err != nil {
		s.fail(w, r, "get audits", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleUpdateAudit stamps completedDate when an audit is completed without
// one, then records the completion on the CSP. The two writes are separate.
func (s *Server) handleUpdateAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch repo.AuditPatch
	if err := validation.Decode(r.Body, &patch); err != nil {
		s.fail(w, r, "update audit", err)
		return
	}
	if patch.Status != nil && *patch.Status == "completed" && !patch.CompletedDate.Set {
		patch.CompletedDate = repo.Some(s.now())
	}
	audit, err := s.store.UpdateAudit(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, "update audit", err)
		return
	}
	if audit == nil {
		writeMessage(w, http.StatusNotFound, "Audit not found")
		return
	}

	if audit.Status == "completed" && audit.CompletedDate != nil {
		_, err := s.store.UpdateCSP(r.Context(), audit.CSPID, repo.CSPPatch{LastAudit: repo.Some(*audit.CompletedDate)})
		if err != nil {
			s.logger.Error("record audit on csp", zap.Int64("audit_id", audit.ID), zap.Int64("csp_id", audit.CSPID), zap.Error(err))
			s.metrics.IncError("http")
		}
	}
	writeJSON(w, http.StatusOK, audit)
}

// -- Complaints --

func (s *Server) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var in repo.NewComplaint
	if err := validation.Decode(r.Body, &in); err != nil {
		s.fail(w, r, "create complaint", err)
		return
	}
	complaint, err := s.store.CreateComplaint(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create complaint", err)
		return
	}
	writeJSON(w, http.StatusCreated, complaint)
}

func (s *Server) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	complaint, err := s.store.GetComplaint(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get complaint", err)
		return
	}
	writeFound(w, complaint, "Complaint not found")
}

func (s *Server) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	cspID, ok := pathID(w, r, "cspId")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, repo.NoLimit)
	if !ok {
		return
	}
	list, err := s.store.ListComplaintsByCSP(r.Context(), cspID, limit)
	if err != nil {
		s.fail(w, r, "get complaints", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch repo.ComplaintPatch
	if err := validation.Decode(r.Body, &patch); err != nil {
		s.fail(w, r, "update complaint", err)
		return
	}
	if patch.Status != nil && *patch.Status == "resolved" && !patch.ResolvedAt.Set {
		patch.ResolvedAt = repo.Some(s.now())
	}
	complaint, err := s.store.UpdateComplaint(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, "update complaint", err)
		return
	}
	writeFound(w, complaint, "Complaint not found")
}

// -- Check-ins --

// handleCreateCheckIn records the check-in, then copies its timestamp onto
// the CSP. A failure of the second write is logged, not reported.
func (s *Server) handleCreateCheckIn(w http.ResponseWriter, r *http.Request) {
	var in repo.NewCheckIn
	if err := validation.Decode(r.Body, &in); err != nil {
		s.fail(w, r, "create check-in", err)
		return
	}
	checkIn, err := s.store.CreateCheckIn(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create check-in", err)
		return
	}
	if _, err := s.store.UpdateCSP(r.Context(), checkIn.CSPID, repo.CSPPatch{LastCheckIn: repo.Some(checkIn.Timestamp)}); err != nil {
		s.logger.Error("record check-in on csp", zap.Int64("check_in_id", checkIn.ID), zap.Int64("csp_id", checkIn.CSPID), zap.Error(err))
		s.metrics.IncError("http")
	}
	writeJSON(w, http.StatusCreated, checkIn)
}

func (s *Server) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	cspID, ok := pathID(w, r, "cspId")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, defaultListLimit)
	if !ok {
		return
	}
	list, err := s.store.ListCheckInsByCSP(r.Context(), cspID, limit)
	if err != nil {
		s.fail(w, r, "get check-ins", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleLatestCheckIn(w http.ResponseWriter, r *http.Request) {
	cspID, ok := pathID(w, r, "cspId")
	if !ok {
		return
	}
	checkIn, err := s.store.GetLatestCheckInByCSP(r.Context(), cspID)
	if err != nil {
		s.fail(w, r, "get latest check-in", err)
		return
	}
	writeFound(w, checkIn, "No check-ins found for this CSP")
}
