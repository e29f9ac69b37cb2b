package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/contextkeys"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

type staffHandler struct {
	deps Deps
}

func newStaffHandler(deps Deps) *staffHandler {
	return &staffHandler{deps: deps}
}

func (h *staffHandler) RegisterRoutes(r *mux.Router) {
	res := h.deps.Resolver

	pinv := h.deps.Cacher.AutoInvalidate("staffProfiles")
	profileOwner := permissions.RequireOwnership(res, permissions.ScopeBranch, branchOwnership(h.deps.Staff.GetProfileBranchID))

	r.Handle("/staffProfiles/create",
		wrap(h.createProfile, permissions.RequirePermission(res, "CREATE-STAFF-PROFILES", true), pinv)).Methods("POST")
	r.Handle("/staffProfiles/getAll",
		wrap(h.getAllProfiles, permissions.RequirePermission(res, "VIEW-STAFF-PROFILES", true))).Methods("GET")
	r.Handle("/staffProfiles/getById/{id}",
		wrap(h.getProfileByID, permissions.RequirePermission(res, "VIEW-STAFF-PROFILES", false), h.deps.Cacher.CacheByID("staffProfiles"))).Methods("GET")
	r.Handle("/staffProfiles/update/{id}",
		wrap(h.updateProfile, permissions.RequirePermission(res, "UPDATE-STAFF-PROFILES", false), profileOwner, pinv)).Methods("PUT")
	r.Handle("/staffProfiles/deleteById/{id}",
		wrap(h.deleteProfileByID, permissions.RequirePermission(res, "DELETE-STAFF-PROFILES", false), profileOwner, pinv)).Methods("DELETE")

	winv := h.deps.Cacher.AutoInvalidate("payrolls")
	payrollOwner := permissions.RequireOwnership(res, permissions.ScopeBranch, branchOwnership(h.deps.Staff.GetPayrollBranchID))

	r.Handle("/payrolls/create",
		wrap(h.createPayroll, permissions.RequirePermission(res, "CREATE-PAYROLLS", true), winv)).Methods("POST")
	r.Handle("/payrolls/getAll",
		wrap(h.getAllPayrolls, permissions.RequirePermission(res, "VIEW-PAYROLLS", true))).Methods("GET")
	r.Handle("/payrolls/getById/{id}",
		wrap(h.getPayrollByID, permissions.RequirePermission(res, "VIEW-PAYROLLS", false), h.deps.Cacher.CacheByID("payrolls"))).Methods("GET")
	r.Handle("/payrolls/update/{id}",
		wrap(h.updatePayroll, permissions.RequirePermission(res, "UPDATE-PAYROLLS", false), payrollOwner, winv)).Methods("PUT")
	r.Handle("/payrolls/deleteById/{id}",
		wrap(h.deletePayrollByID, permissions.RequirePermission(res, "DELETE-PAYROLLS", false), payrollOwner, winv)).Methods("DELETE")

	rinv := h.deps.Cacher.AutoInvalidate("pricingRules")
	ruleOwner := permissions.RequireOwnership(res, permissions.ScopeBranch, branchOwnership(h.deps.Staff.GetPricingRuleBranchID))

	r.Handle("/pricingRules/create",
		wrap(h.createPricingRule, permissions.RequirePermission(res, "CREATE-PRICING-RULES", true), rinv)).Methods("POST")
	r.Handle("/pricingRules/getAll",
		wrap(h.getAllPricingRules, permissions.RequirePermission(res, "VIEW-PRICING-RULES", true))).Methods("GET")
	r.Handle("/pricingRules/getById/{id}",
		wrap(h.getPricingRuleByID, permissions.RequirePermission(res, "VIEW-PRICING-RULES", false), h.deps.Cacher.CacheByID("pricingRules"))).Methods("GET")
	r.Handle("/pricingRules/update/{id}",
		wrap(h.updatePricingRule, permissions.RequirePermission(res, "UPDATE-PRICING-RULES", false), ruleOwner, rinv)).Methods("PUT")
	r.Handle("/pricingRules/deleteById/{id}",
		wrap(h.deletePricingRuleByID, permissions.RequirePermission(res, "DELETE-PRICING-RULES", false), ruleOwner, rinv)).Methods("DELETE")
}

type staffProfileRequest struct {
	UserID   string     `json:"userId"`
	BranchID string     `json:"branchId"`
	Position string     `json:"position"`
	Salary   float64    `json:"salary"`
	HireDate *time.Time `json:"hireDate"`
}

func (h *staffHandler) createProfile(w http.ResponseWriter, r *http.Request) {
	var req staffProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "userId is required")
		return
	}

	sp := &storage.StaffProfile{
		UserID:   req.UserID,
		BranchID: contextkeys.GetBranchID(r.Context()),
		Position: req.Position,
		Salary:   req.Salary,
	}
	if req.HireDate != nil {
		sp.HireDate = *req.HireDate
	} else {
		sp.HireDate = time.Now().UTC()
	}
	if err := h.deps.Staff.CreateProfile(r.Context(), sp); err != nil {
		writeStoreError(w, err, "Staff profile not found", "User already has a profile at this branch")
		return
	}
	httputil.WriteCreated(w, sp)
}

func (h *staffHandler) getAllProfiles(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	profiles, total, err := h.deps.Staff.ListProfiles(r.Context(), contextkeys.GetBranchID(r.Context()), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if profiles == nil {
		profiles = []storage.StaffProfile{}
	}
	httputil.WriteList(w, profiles, p.Meta(total))
}

func (h *staffHandler) getProfileByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	sp, err := h.deps.Staff.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Staff profile not found", "")
		return
	}
	httputil.WriteData(w, sp)
}

func (h *staffHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	sp, err := h.deps.Staff.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Staff profile not found", "")
		return
	}

	var req staffProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Position != "" {
		sp.Position = req.Position
	}
	if req.Salary > 0 {
		sp.Salary = req.Salary
	}
	if req.HireDate != nil {
		sp.HireDate = *req.HireDate
	}

	if err := h.deps.Staff.UpdateProfile(r.Context(), sp); err != nil {
		writeStoreError(w, err, "Staff profile not found", "")
		return
	}
	httputil.WriteData(w, sp)
}

func (h *staffHandler) deleteProfileByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Staff.DeleteProfile(r.Context(), id); err != nil {
		writeStoreError(w, err, "Staff profile not found", "")
		return
	}
	httputil.WriteMessage(w, "Staff profile deleted successfully")
}

type payrollRequest struct {
	StaffProfileID string     `json:"staffProfileId"`
	BranchID       string     `json:"branchId"`
	Amount         float64    `json:"amount"`
	PeriodStart    *time.Time `json:"periodStart"`
	PeriodEnd      *time.Time `json:"periodEnd"`
	Status         string     `json:"status"`
}

func (h *staffHandler) createPayroll(w http.ResponseWriter, r *http.Request) {
	var req payrollRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.StaffProfileID == "" || req.PeriodStart == nil || req.PeriodEnd == nil {
		httputil.WriteBadRequest(w, "staffProfileId, periodStart and periodEnd are required")
		return
	}
	if !req.PeriodEnd.After(*req.PeriodStart) {
		httputil.WriteBadRequest(w, "periodEnd must be after periodStart")
		return
	}

	pr := &storage.Payroll{
		StaffProfileID: req.StaffProfileID,
		BranchID:       contextkeys.GetBranchID(r.Context()),
		Amount:         req.Amount,
		PeriodStart:    *req.PeriodStart,
		PeriodEnd:      *req.PeriodEnd,
		Status:         req.Status,
	}
	if err := h.deps.Staff.CreatePayroll(r.Context(), pr); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, pr)
}

func (h *staffHandler) getAllPayrolls(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	payrolls, total, err := h.deps.Staff.ListPayrolls(r.Context(), contextkeys.GetBranchID(r.Context()), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if payrolls == nil {
		payrolls = []storage.Payroll{}
	}
	httputil.WriteList(w, payrolls, p.Meta(total))
}

func (h *staffHandler) getPayrollByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	pr, err := h.deps.Staff.GetPayroll(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Payroll not found", "")
		return
	}
	httputil.WriteData(w, pr)
}

func (h *staffHandler) updatePayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	pr, err := h.deps.Staff.GetPayroll(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Payroll not found", "")
		return
	}

	var req payrollRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Amount > 0 {
		pr.Amount = req.Amount
	}
	if req.PeriodStart != nil {
		pr.PeriodStart = *req.PeriodStart
	}
	if req.PeriodEnd != nil {
		pr.PeriodEnd = *req.PeriodEnd
	}
	if req.Status != "" {
		pr.Status = req.Status
	}
	if !pr.PeriodEnd.After(pr.PeriodStart) {
		httputil.WriteBadRequest(w, "periodEnd must be after periodStart")
		return
	}

	if err := h.deps.Staff.UpdatePayroll(r.Context(), pr); err != nil {
		writeStoreError(w, err, "Payroll not found", "")
		return
	}
	httputil.WriteData(w, pr)
}

func (h *staffHandler) deletePayrollByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Staff.DeletePayroll(r.Context(), id); err != nil {
		writeStoreError(w, err, "Payroll not found", "")
		return
	}
	httputil.WriteMessage(w, "Payroll deleted successfully")
}

type pricingRuleRequest struct {
	BranchID string     `json:"branchId"`
	SpaceID  string     `json:"spaceId"`
	Name     string     `json:"name"`
	RateType string     `json:"rateType"`
	Rate     float64    `json:"rate"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
}

func (h *staffHandler) createPricingRule(w http.ResponseWriter, r *http.Request) {
	var req pricingRuleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" || req.Rate <= 0 {
		httputil.WriteBadRequest(w, "name and a positive rate are required")
		return
	}

	rule := &storage.PricingRule{
		BranchID: contextkeys.GetBranchID(r.Context()),
		SpaceID:  req.SpaceID,
		Name:     req.Name,
		RateType: req.RateType,
		Rate:     req.Rate,
	}
	if req.StartsAt != nil {
		rule.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		rule.EndsAt = *req.EndsAt
	}
	if err := h.deps.Staff.CreatePricingRule(r.Context(), rule); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, rule)
}

func (h *staffHandler) getAllPricingRules(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	rules, total, err := h.deps.Staff.ListPricingRules(r.Context(), contextkeys.GetBranchID(r.Context()), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if rules == nil {
		rules = []storage.PricingRule{}
	}
	httputil.WriteList(w, rules, p.Meta(total))
}

func (h *staffHandler) getPricingRuleByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	rule, err := h.deps.Staff.GetPricingRule(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Pricing rule not found", "")
		return
	}
	httputil.WriteData(w, rule)
}

func (h *staffHandler) updatePricingRule(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	rule, err := h.deps.Staff.GetPricingRule(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Pricing rule not found", "")
		return
	}

	var req pricingRuleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.RateType != "" {
		rule.RateType = req.RateType
	}
	if req.Rate > 0 {
		rule.Rate = req.Rate
	}
	if req.StartsAt != nil {
		rule.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		rule.EndsAt = *req.EndsAt
	}

	if err := h.deps.Staff.UpdatePricingRule(r.Context(), rule); err != nil {
		writeStoreError(w, err, "Pricing rule not found", "")
		return
	}
	httputil.WriteData(w, rule)
}

func (h *staffHandler) deletePricingRuleByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Staff.DeletePricingRule(r.Context(), id); err != nil {
		writeStoreError(w, err, "Pricing rule not found", "")
		return
	}
	httputil.WriteMessage(w, "Pricing rule deleted successfully")
}
