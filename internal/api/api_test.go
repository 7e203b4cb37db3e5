package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ateliergpr/gpr/internal/auth"
	"github.com/ateliergpr/gpr/internal/db"
	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/qr"
	"github.com/ateliergpr/gpr/internal/store"
)

const testSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	qrDir  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)

	qrDir := t.TempDir()
	renderer := &qr.Renderer{Dir: qrDir, BaseURL: "http://localhost:8080"}

	server := httptest.NewServer(NewRouter(database, testSecret, renderer))
	t.Cleanup(server.Close)

	// Seed one account per operational role.
	ctx := context.Background()
	for _, u := range []struct {
		name string
		role model.Role
	}{
		{"main", model.RoleMaintenance},
		{"log", model.RoleLogistics},
		{"achat", model.RolePurchasing},
		{"inge", model.RoleEngineering},
	} {
		hash, err := auth.HashPassword(u.name + "123")
		if err != nil {
			t.Fatalf("hashing password: %v", err)
		}
		if _, err := store.CreateUser(ctx, database, u.name, hash, u.role); err != nil {
			t.Fatalf("seeding user %s: %v", u.name, err)
		}
	}

	return &testEnv{server: server, db: database, qrDir: qrDir}
}

// login returns a client whose cookie jar carries the user's session.
func (e *testEnv) login(t *testing.T, username string) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}

	body, _ := json.Marshal(map[string]string{"username": username, "password": username + "123"})
	resp, err := client.Post(e.server.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login as %s failed: %d", username, resp.StatusCode)
	}
	return client
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func createPiece(t *testing.T, e *testEnv, client *http.Client, body map[string]any) string {
	t.Helper()
	resp := postJSON(t, client, e.server.URL+"/api/piece", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating piece, got %d", resp.StatusCode)
	}
	var created map[string]any
	decodeBody(t, resp, &created)
	identifiant, _ := created["identifiant"].(string)
	if identifiant == "" {
		t.Fatal("expected identifiant in creation response")
	}
	return identifiant
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}

func countPieces(t *testing.T, database *sql.DB) int {
	t.Helper()
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM piece`).Scan(&n); err != nil {
		t.Fatalf("counting pieces: %v", err)
	}
	return n
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := setupTestEnv(t)

	// Unknown user and wrong password must be indistinguishable.
	var bodies []string
	for _, creds := range []map[string]string{
		{"username": "nobody", "password": "whatever"},
		{"username": "main", "password": "wrong"},
	} {
		data, _ := json.Marshal(creds)
		resp, err := http.Post(e.server.URL+"/api/login", "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("login request: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		resp.Body.Close()
		bodies = append(bodies, buf.String())
	}
	if bodies[0] != bodies[1] {
		t.Errorf("unknown-user and wrong-password responses differ: %q vs %q", bodies[0], bodies[1])
	}
}

func TestMeAndLogout(t *testing.T) {
	e := setupTestEnv(t)
	client := e.login(t, "log")

	resp, err := client.Get(e.server.URL + "/api/me")
	if err != nil {
		t.Fatalf("GET /api/me: %v", err)
	}
	var me map[string]any
	decodeBody(t, resp, &me)
	if me["username"] != "log" || me["role"] != "LOG" {
		t.Errorf("unexpected identity: %v", me)
	}

	resp, err = client.Get(e.server.URL + "/api/logout")
	if err != nil {
		t.Fatalf("GET /api/logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", resp.StatusCode)
	}

	// Session is gone server-side.
	resp, err = client.Get(e.server.URL + "/api/me")
	if err != nil {
		t.Fatalf("GET /api/me after logout: %v", err)
	}
	decodeBody(t, resp, &me)
	if me["username"] != nil || me["role"] != nil {
		t.Errorf("expected anonymous identity after logout, got %v", me)
	}

	// Logout is idempotent.
	resp, err = client.Get(e.server.URL + "/api/logout")
	if err != nil {
		t.Fatalf("second logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 on repeated logout, got %d", resp.StatusCode)
	}
}

func TestCreatePieceFlow(t *testing.T) {
	e := setupTestEnv(t)
	client := e.login(t, "main")

	identifiant := createPiece(t, e, client, map[string]any{
		"type_piece":         "pump",
		"statut":             "reparable",
		"date_entree":        "2024-01-01",
		"origine":            "siteA",
		"taux_endommagement": 30,
		"commentaire":        "ok",
	})

	// Round trip: all fields unchanged.
	resp, err := http.Get(e.server.URL + "/api/piece/" + identifiant)
	if err != nil {
		t.Fatalf("GET piece: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var piece model.Piece
	decodeBody(t, resp, &piece)
	if piece.TypePiece != "pump" || piece.Statut != model.StatutReparable ||
		piece.DateEntree != "2024-01-01" || piece.Origine != "siteA" ||
		piece.TauxEndommagement != 30 || piece.Commentaire != "ok" {
		t.Errorf("fields changed in round trip: %+v", piece)
	}

	// Exactly one CREATION history entry.
	resp, err = http.Get(e.server.URL + "/api/historique/" + idStr(piece.ID))
	if err != nil {
		t.Fatalf("GET historique: %v", err)
	}
	var history []model.HistoryEntry
	decodeBody(t, resp, &history)
	if len(history) != 1 || history[0].Action != model.ActionCreation {
		t.Fatalf("expected one CREATION entry, got %+v", history)
	}

	// QR label written under its stable name.
	if _, err := os.Stat(filepath.Join(e.qrDir, identifiant+".png")); err != nil {
		t.Errorf("expected QR label file: %v", err)
	}
}

func TestCreatePieceRoleGate(t *testing.T) {
	e := setupTestEnv(t)

	body := map[string]any{"type_piece": "pump", "statut": "reparable"}

	// Anonymous: 401, nothing written.
	data, _ := json.Marshal(body)
	resp, err := http.Post(e.server.URL+"/api/piece", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("anonymous create: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous, got %d", resp.StatusCode)
	}

	// Wrong roles: 403, nothing written.
	for _, username := range []string{"log", "achat", "inge"} {
		client := e.login(t, username)
		resp := postJSON(t, client, e.server.URL+"/api/piece", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 for %s, got %d", username, resp.StatusCode)
		}
	}

	if n := countPieces(t, e.db); n != 0 {
		t.Errorf("expected piece table untouched, got %d rows", n)
	}
}

func TestCreatePieceValidation(t *testing.T) {
	e := setupTestEnv(t)
	client := e.login(t, "main")

	for name, body := range map[string]map[string]any{
		"missing type":   {"statut": "reparable"},
		"missing statut": {"type_piece": "pump"},
		"bad statut":     {"type_piece": "pump", "statut": "detruit"},
		"bad taux":       {"type_piece": "pump", "statut": "reparable", "taux_endommagement": 150},
	} {
		resp := postJSON(t, client, e.server.URL+"/api/piece", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, resp.StatusCode)
		}
	}

	if n := countPieces(t, e.db); n != 0 {
		t.Errorf("expected no rows after rejected creations, got %d", n)
	}
}

func TestUpdateLocalisationFlow(t *testing.T) {
	e := setupTestEnv(t)
	maint := e.login(t, "main")
	logi := e.login(t, "log")

	identifiant := createPiece(t, e, maint, map[string]any{
		"type_piece": "vanne", "statut": "reparable",
	})

	var piece model.Piece
	resp, _ := http.Get(e.server.URL + "/api/piece/" + identifiant)
	decodeBody(t, resp, &piece)

	resp = postJSON(t, logi, e.server.URL+"/api/piece/"+idStr(piece.ID)+"/localisation", map[string]string{
		"localisation": "Warehouse B",
		"commentaire":  "moved",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 moving piece, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(e.server.URL + "/api/piece/" + identifiant)
	decodeBody(t, resp, &piece)
	if piece.Localisation == nil || *piece.Localisation != "Warehouse B" {
		t.Errorf("expected localisation 'Warehouse B', got %v", piece.Localisation)
	}

	resp, _ = http.Get(e.server.URL + "/api/historique/" + idStr(piece.ID))
	var history []model.HistoryEntry
	decodeBody(t, resp, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Action != model.ActionLocalisation {
		t.Errorf("expected LOCALISATION entry first, got %q", history[0].Action)
	}
	if !strings.Contains(history[0].Commentaire, "-> Warehouse B") {
		t.Errorf("expected old -> new transition in commentaire, got %q", history[0].Commentaire)
	}
}

func TestUpdateLocalisationErrors(t *testing.T) {
	e := setupTestEnv(t)
	maint := e.login(t, "main")
	logi := e.login(t, "log")

	identifiant := createPiece(t, e, maint, map[string]any{
		"type_piece": "vanne", "statut": "reparable",
	})
	var piece model.Piece
	resp, _ := http.Get(e.server.URL + "/api/piece/" + identifiant)
	decodeBody(t, resp, &piece)

	// Empty localisation rejected before any write.
	resp = postJSON(t, logi, e.server.URL+"/api/piece/"+idStr(piece.ID)+"/localisation", map[string]string{
		"localisation": "",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty localisation, got %d", resp.StatusCode)
	}

	// Nonexistent piece: 404 and zero audit entries.
	resp = postJSON(t, logi, e.server.URL+"/api/piece/999/localisation", map[string]string{
		"localisation": "Warehouse B",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown piece, got %d", resp.StatusCode)
	}
	resp, _ = http.Get(e.server.URL + "/api/historique/999")
	var history []model.HistoryEntry
	decodeBody(t, resp, &history)
	if len(history) != 0 {
		t.Errorf("expected zero history entries for phantom piece, got %d", len(history))
	}

	// Maintenance cannot move pieces.
	resp = postJSON(t, maint, e.server.URL+"/api/piece/"+idStr(piece.ID)+"/localisation", map[string]string{
		"localisation": "Warehouse C",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for maintenance moving piece, got %d", resp.StatusCode)
	}
}

func TestUpdateStatutFlow(t *testing.T) {
	e := setupTestEnv(t)
	maint := e.login(t, "main")

	identifiant := createPiece(t, e, maint, map[string]any{
		"type_piece": "moteur", "statut": "reparable",
	})
	var piece model.Piece
	resp, _ := http.Get(e.server.URL + "/api/piece/" + identifiant)
	decodeBody(t, resp, &piece)

	resp = postJSON(t, maint, e.server.URL+"/api/piece/"+idStr(piece.ID)+"/statut", map[string]any{
		"statut":             "cannibalisable",
		"taux_endommagement": 90,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 updating statut, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(e.server.URL + "/api/piece/" + identifiant)
	decodeBody(t, resp, &piece)
	if piece.Statut != model.StatutCannibalisable || piece.TauxEndommagement != 90 {
		t.Errorf("unexpected piece after statut update: %+v", piece)
	}

	// Logistics may not assess status.
	logi := e.login(t, "log")
	resp = postJSON(t, logi, e.server.URL+"/api/piece/"+idStr(piece.ID)+"/statut", map[string]any{
		"statut": "reparable",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for logistics assessing statut, got %d", resp.StatusCode)
	}
}

func TestListPiecesNewestFirstAndFilter(t *testing.T) {
	e := setupTestEnv(t)
	maint := e.login(t, "main")

	createPiece(t, e, maint, map[string]any{"type_piece": "a", "statut": "reparable"})
	createPiece(t, e, maint, map[string]any{"type_piece": "b", "statut": "non_reparable"})
	last := createPiece(t, e, maint, map[string]any{"type_piece": "c", "statut": "reparable"})

	resp, err := http.Get(e.server.URL + "/api/pieces")
	if err != nil {
		t.Fatalf("GET /api/pieces: %v", err)
	}
	var pieces []model.Piece
	decodeBody(t, resp, &pieces)
	if len(pieces) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(pieces))
	}
	if pieces[0].Identifiant != last {
		t.Errorf("expected newest piece first, got %q", pieces[0].Identifiant)
	}
	for i := 1; i < len(pieces); i++ {
		if pieces[i].ID > pieces[i-1].ID {
			t.Errorf("list not in descending creation order at index %d", i)
		}
	}

	resp, _ = http.Get(e.server.URL + "/api/pieces?statut=reparable")
	decodeBody(t, resp, &pieces)
	if len(pieces) != 2 {
		t.Errorf("expected 2 reparable pieces, got %d", len(pieces))
	}

	resp, _ = http.Get(e.server.URL + "/api/pieces?statut=bogus")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown statut filter, got %d", resp.StatusCode)
	}
}

func TestGetPieceNotFound(t *testing.T) {
	e := setupTestEnv(t)

	resp, err := http.Get(e.server.URL + "/api/piece/P-DOESNOTX")
	if err != nil {
		t.Fatalf("GET piece: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "not_found" {
		t.Errorf("expected not_found error kind, got %q", body["error"])
	}
}

func TestIndicateurs(t *testing.T) {
	e := setupTestEnv(t)
	maint := e.login(t, "main")

	createPiece(t, e, maint, map[string]any{"type_piece": "a", "statut": "reparable"})
	createPiece(t, e, maint, map[string]any{"type_piece": "b", "statut": "reparable"})
	createPiece(t, e, maint, map[string]any{"type_piece": "c", "statut": "cannibalisable"})

	resp, err := http.Get(e.server.URL + "/api/indicateurs")
	if err != nil {
		t.Fatalf("GET /api/indicateurs: %v", err)
	}
	var kpi map[string]int
	decodeBody(t, resp, &kpi)

	if kpi["total"] != countPieces(t, e.db) {
		t.Errorf("total %d does not match row count %d", kpi["total"], countPieces(t, e.db))
	}
	if kpi["reparable"] != 2 || kpi["cannibalisable"] != 1 || kpi["non_reparable"] != 0 {
		t.Errorf("unexpected indicator values: %v", kpi)
	}
}
