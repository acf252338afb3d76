package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/surmed/surmed/internal/db"
	"github.com/surmed/surmed/internal/eligibility"
	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)

	ctx := context.Background()
	if err := store.SeedDefaults(ctx, database); err != nil {
		t.Fatalf("seeding defaults: %v", err)
	}

	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin)

	return server, login(t, server, "admin", "password")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

func createUserAndLogin(t *testing.T, server *httptest.Server, adminToken, username, role string) string {
	t.Helper()
	req, _ := authRequest("POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": username,
		"password": "password123",
		"role":     role,
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("creating %s user: %d", role, resp.StatusCode)
	}
	return login(t, server, username, "password123")
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func submitSupply(t *testing.T, server *httptest.Server, token string, override map[string]any) model.Supply {
	t.Helper()
	body := map[string]any{
		"item_name":          "N95 Respirator Masks",
		"category":           model.CategoryPPE,
		"quantity":           100,
		"unit":               "boxes",
		"expiry_date":        "2027-06-01",
		"batch_number":       "LOT-4411",
		"packaging_status":   model.PackagingSealed,
		"storage_conditions": model.StorageControlled,
	}
	for k, v := range override {
		body[k] = v
	}

	req, _ := authRequest("POST", server.URL+"/api/supplies", token, body)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("submit supply: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for supply submission, got %d", resp.StatusCode)
	}

	var supply model.Supply
	json.NewDecoder(resp.Body).Decode(&supply)
	return supply
}

func uploadPhoto(t *testing.T, server *httptest.Server, token string, supplyID int64) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			img.Set(x, y, color.RGBA{200, 30, 30, 255})
		}
	}
	var photo bytes.Buffer
	jpeg.Encode(&photo, img, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("evidence_type", model.EvidencePhotoPackaging)
	mw.WriteField("description", "front of box")
	fw, _ := mw.CreateFormFile("file", "box.jpg")
	fw.Write(photo.Bytes())
	mw.Close()

	url := fmt.Sprintf("%s/api/supplies/%d/evidence", server.URL, supplyID)
	req, _ := http.NewRequest("POST", url, &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload evidence: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for evidence upload, got %d", resp.StatusCode)
	}
}

func reasonCodeID(t *testing.T, server *httptest.Server, token, code string) int64 {
	t.Helper()
	req, _ := authRequest("GET", server.URL+"/api/reason-codes", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list reason codes: %v", err)
	}
	defer resp.Body.Close()

	var codes []model.ReasonCode
	json.NewDecoder(resp.Body).Decode(&codes)
	for _, rc := range codes {
		if rc.Code == code {
			return rc.ID
		}
	}
	t.Fatalf("reason code %s not found", code)
	return 0
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/supplies")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}

	req, _ = authRequest("GET", server.URL+"/api/supplies", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", resp.StatusCode)
	}
}

func TestSupplySubmissionValidation(t *testing.T) {
	server, token := setupTestServer(t)

	cases := []map[string]any{
		{"item_name": ""},
		{"category": "DRUGS"},
		{"quantity": 0},
		{"unit": "pallets"},
		{"expiry_date": ""},
		{"expiry_date": "June 2027"},
		{"packaging_status": "CRUSHED"},
		{"storage_conditions": "FROZEN"},
	}

	for _, override := range cases {
		body := map[string]any{
			"item_name":          "Gloves",
			"category":           model.CategoryPPE,
			"quantity":           10,
			"unit":               "boxes",
			"expiry_date":        "2027-06-01",
			"packaging_status":   model.PackagingSealed,
			"storage_conditions": model.StorageControlled,
		}
		for k, v := range override {
			body[k] = v
		}

		req, _ := authRequest("POST", server.URL+"/api/supplies", token, body)
		resp, _ := http.DefaultClient.Do(req)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("override %v: expected 400, got %d", override, resp.StatusCode)
		}
	}
}

func TestSupplyWorkflow(t *testing.T) {
	server, token := setupTestServer(t)

	supply := submitSupply(t, server, token, nil)
	if !strings.HasPrefix(supply.SupplyRef, "SUP-") {
		t.Errorf("unexpected supply ref %q", supply.SupplyRef)
	}
	if supply.DecisionStatus != model.StatusPendingInitial {
		t.Errorf("expected pending status, got %s", supply.DecisionStatus)
	}

	uploadPhoto(t, server, token, supply.ID)

	// Fresh eligibility: all seeded checks should pass.
	url := fmt.Sprintf("%s/api/supplies/%d/eligibility", server.URL, supply.ID)
	req, _ := authRequest("GET", url, token, nil)
	resp, _ := http.DefaultClient.Do(req)
	var snapshot eligibility.Snapshot
	json.NewDecoder(resp.Body).Decode(&snapshot)
	resp.Body.Close()

	if !snapshot.IsEligible {
		t.Fatalf("expected eligible supply, got %+v", snapshot)
	}
	if len(snapshot.Checks) != 5 {
		t.Errorf("expected 5 checks from seeded rules, got %d", len(snapshot.Checks))
	}

	// Decide: admin decides at FINAL level.
	decisionReq := map[string]any{
		"supply_id":      supply.ID,
		"decision":       model.DecisionAccepted,
		"reason_code_id": reasonCodeID(t, server, token, "ACC-001"),
		"justification":  "Meets all criteria",
	}
	req, _ = authRequest("POST", server.URL+"/api/decisions", token, decisionReq)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for decision, got %d", resp.StatusCode)
	}
	var decision model.Decision
	json.NewDecoder(resp.Body).Decode(&decision)
	resp.Body.Close()

	if decision.Level != model.LevelFinal {
		t.Errorf("admin decisions should be FINAL, got %s", decision.Level)
	}
	if !decision.EligibilityPassed {
		t.Error("expected frozen eligibility to be passing")
	}
	if decision.DecisionHash == "" {
		t.Error("expected decision hash")
	}

	// Supply detail reflects the new status and the decision history.
	req, _ = authRequest("GET", fmt.Sprintf("%s/api/supplies/%d", server.URL, supply.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var detail struct {
		Supply      model.Supply         `json:"supply"`
		Evidence    []model.Evidence     `json:"evidence"`
		Decisions   []model.Decision     `json:"decisions"`
		Eligibility eligibility.Snapshot `json:"eligibility"`
	}
	json.NewDecoder(resp.Body).Decode(&detail)
	resp.Body.Close()

	if detail.Supply.DecisionStatus != model.StatusAccepted {
		t.Errorf("expected ACCEPTED supply, got %s", detail.Supply.DecisionStatus)
	}
	if len(detail.Evidence) != 1 {
		t.Errorf("expected 1 evidence item, got %d", len(detail.Evidence))
	}
	if len(detail.Decisions) != 1 {
		t.Errorf("expected 1 decision, got %d", len(detail.Decisions))
	}
}

func TestIneligibleSupplyStillDecidable(t *testing.T) {
	server, token := setupTestServer(t)

	// Expired supply fails the seeded shelf-life rule.
	supply := submitSupply(t, server, token, map[string]any{"expiry_date": "2020-01-01"})

	req, _ := authRequest("GET", fmt.Sprintf("%s/api/supplies/%d/eligibility", server.URL, supply.ID), token, nil)
	resp, _ := http.DefaultClient.Do(req)
	var snapshot eligibility.Snapshot
	json.NewDecoder(resp.Body).Decode(&snapshot)
	resp.Body.Close()

	if snapshot.IsEligible {
		t.Fatal("expected expired supply to be ineligible")
	}

	// The reviewer can still reject it; the verdict is advisory.
	decisionReq := map[string]any{
		"supply_id":      supply.ID,
		"decision":       model.DecisionRejected,
		"reason_code_id": reasonCodeID(t, server, token, "REJ-001"),
		"justification":  "Expired stock",
	}
	req, _ = authRequest("POST", server.URL+"/api/decisions", token, decisionReq)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for rejection, got %d", resp.StatusCode)
	}
}

func TestDecisionReasonCodeMustMatch(t *testing.T) {
	server, token := setupTestServer(t)
	supply := submitSupply(t, server, token, nil)

	// A rejection reason on an acceptance is refused.
	decisionReq := map[string]any{
		"supply_id":      supply.ID,
		"decision":       model.DecisionAccepted,
		"reason_code_id": reasonCodeID(t, server, token, "REJ-001"),
		"justification":  "x",
	}
	req, _ := authRequest("POST", server.URL+"/api/decisions", token, decisionReq)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for mismatched reason code, got %d", resp.StatusCode)
	}
}

func TestRoleEnforcement(t *testing.T) {
	server, adminToken := setupTestServer(t)

	submitterToken := createUserAndLogin(t, server, adminToken, "clerk", model.RoleSubmitter)
	reviewerToken := createUserAndLogin(t, server, adminToken, "checker", model.RoleReviewer)

	supply := submitSupply(t, server, submitterToken, nil)

	// Submitters cannot decide.
	decisionReq := map[string]any{
		"supply_id":      supply.ID,
		"decision":       model.DecisionAccepted,
		"reason_code_id": reasonCodeID(t, server, adminToken, "ACC-001"),
		"justification":  "x",
	}
	req, _ := authRequest("POST", server.URL+"/api/decisions", submitterToken, decisionReq)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for submitter decision, got %d", resp.StatusCode)
	}

	// Reviewers decide at INITIAL level.
	req, _ = authRequest("POST", server.URL+"/api/decisions", reviewerToken, decisionReq)
	resp, _ = http.DefaultClient.Do(req)
	var decision model.Decision
	json.NewDecoder(resp.Body).Decode(&decision)
	resp.Body.Close()
	if decision.Level != model.LevelInitial {
		t.Errorf("reviewer decisions should be INITIAL, got %s", decision.Level)
	}

	// Reviewers cannot manage rules.
	req, _ = authRequest("POST", server.URL+"/api/rules", reviewerToken, map[string]any{
		"name": "X", "rule_type": "QUANTITY",
	})
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for reviewer rule creation, got %d", resp.StatusCode)
	}

	// Submitters cannot see the audit log.
	req, _ = authRequest("GET", server.URL+"/api/audit", submitterToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for submitter audit access, got %d", resp.StatusCode)
	}
}

func TestRuleManagementAffectsEligibility(t *testing.T) {
	server, token := setupTestServer(t)

	// Quantity of 3 passes the seeded minimum of 1.
	supply := submitSupply(t, server, token, map[string]any{"quantity": 3})

	// Tighten the quantity rule.
	req, _ := authRequest("GET", server.URL+"/api/rules", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	var rules []model.EligibilityRule
	json.NewDecoder(resp.Body).Decode(&rules)
	resp.Body.Close()

	var quantityRule *model.EligibilityRule
	for i := range rules {
		if rules[i].Type == model.RuleQuantity {
			quantityRule = &rules[i]
		}
	}
	if quantityRule == nil {
		t.Fatal("seeded quantity rule not found")
	}

	update := map[string]any{
		"name":         quantityRule.Name,
		"rule_type":    "QUANTITY",
		"is_blocking":  true,
		"min_quantity": 10,
	}
	req, _ = authRequest("PUT", fmt.Sprintf("%s/api/rules/%d", server.URL, quantityRule.ID), token, update)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for rule update, got %d", resp.StatusCode)
	}

	// The same supply is now ineligible.
	req, _ = authRequest("GET", fmt.Sprintf("%s/api/supplies/%d/eligibility", server.URL, supply.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var snapshot eligibility.Snapshot
	json.NewDecoder(resp.Body).Decode(&snapshot)
	resp.Body.Close()

	if snapshot.IsEligible {
		t.Error("expected supply to fail the tightened quantity rule")
	}
}

func TestDecisionExportCSV(t *testing.T) {
	server, token := setupTestServer(t)

	supply := submitSupply(t, server, token, nil)
	decisionReq := map[string]any{
		"supply_id":      supply.ID,
		"decision":       model.DecisionAccepted,
		"reason_code_id": reasonCodeID(t, server, token, "ACC-001"),
		"justification":  "Meets all criteria",
	}
	req, _ := authRequest("POST", server.URL+"/api/decisions", token, decisionReq)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/export/decisions", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for export, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "audit_export_") {
		t.Errorf("unexpected content disposition: %s", cd)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	if records[0][0] != "Decision Date" || records[0][3] != "Decision" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][1] != supply.SupplyRef || records[1][3] != model.DecisionAccepted {
		t.Errorf("unexpected row: %v", records[1])
	}
	// Eligibility is exported as Yes/No, not a boolean literal.
	if records[1][7] != "Yes" {
		t.Errorf("expected eligibility column 'Yes', got %q", records[1][7])
	}
}

func TestDashboard(t *testing.T) {
	server, token := setupTestServer(t)

	submitSupply(t, server, token, nil)
	supply := submitSupply(t, server, token, nil)
	decisionReq := map[string]any{
		"supply_id":      supply.ID,
		"decision":       model.DecisionReview,
		"reason_code_id": reasonCodeID(t, server, token, "REV-001"),
		"justification":  "Needs inspection",
	}
	req, _ := authRequest("POST", server.URL+"/api/decisions", token, decisionReq)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/dashboard", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var dashboard struct {
		StatusCounts    map[string]int   `json:"status_counts"`
		PendingSupplies []model.Supply   `json:"pending_supplies"`
		RecentDecisions []model.Decision `json:"recent_decisions"`
	}
	json.NewDecoder(resp.Body).Decode(&dashboard)

	if dashboard.StatusCounts[model.StatusPendingInitial] != 1 {
		t.Errorf("unexpected status counts: %v", dashboard.StatusCounts)
	}
	if dashboard.StatusCounts[model.StatusNeedsReview] != 1 {
		t.Errorf("unexpected status counts: %v", dashboard.StatusCounts)
	}
	// NEEDS_REVIEW supplies stay in the pending queue alongside fresh ones.
	if len(dashboard.PendingSupplies) != 2 {
		t.Errorf("expected 2 pending supplies, got %d", len(dashboard.PendingSupplies))
	}
	if len(dashboard.RecentDecisions) != 1 {
		t.Errorf("expected 1 recent decision, got %d", len(dashboard.RecentDecisions))
	}
}

func TestAuditTrailRecordsWorkflow(t *testing.T) {
	server, token := setupTestServer(t)

	supply := submitSupply(t, server, token, nil)
	uploadPhoto(t, server, token, supply.ID)
	decisionReq := map[string]any{
		"supply_id":      supply.ID,
		"decision":       model.DecisionAccepted,
		"reason_code_id": reasonCodeID(t, server, token, "ACC-001"),
		"justification":  "Meets all criteria",
	}
	req, _ := authRequest("POST", server.URL+"/api/decisions", token, decisionReq)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/audit", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var entries []model.AuditEntry
	json.NewDecoder(resp.Body).Decode(&entries)

	actions := make(map[string]int)
	for _, e := range entries {
		actions[e.Action]++
	}
	for _, action := range []string{model.ActionSupplySubmitted, model.ActionEvidenceUploaded, model.ActionDecisionMade} {
		if actions[action] != 1 {
			t.Errorf("expected 1 %s entry, got %d", action, actions[action])
		}
	}
}
