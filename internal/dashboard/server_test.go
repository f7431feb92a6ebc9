package dashboard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ckshop/shopflow/internal/broadcast"
	"github.com/ckshop/shopflow/internal/config"
	"github.com/ckshop/shopflow/internal/db"
	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/reconcile"
)

const (
	ownerID   = "owner@shop"
	advisorID = "advisor@shop"
	foremanID = "foreman@shop"
)

func newTestRouter(t *testing.T) (*gin.Engine, *reconcile.Reconciler) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.SeedBays(gdb); err != nil {
		t.Fatalf("seed bays: %v", err)
	}

	rec := reconcile.New(db.NewStore(gdb))
	if err := rec.Refetch(); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	cfg := &config.Config{
		Roles: map[string]string{
			ownerID:   models.RoleOwner,
			advisorID: models.RoleAdvisor,
			foremanID: models.RoleForeman,
		},
	}
	deps := Deps{
		Rec:  rec,
		Hub:  broadcast.NewHub(),
		Cfg:  cfg,
		Feed: NewChangeFeed(),
	}
	return NewRouter(deps), rec
}

func doJSON(t *testing.T, router *gin.Engine, method, path, identity string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req.Header.Set("X-Shop-Identity", identity)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) OrderView {
	t.Helper()
	var v OrderView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode order: %v (%s)", err, w.Body.String())
	}
	return v
}

func TestCreateOrderEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/orders", foremanID, gin.H{"id": "RO-1"})
	if w.Code != http.StatusForbidden {
		t.Errorf("foreman create: status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/orders", advisorID, gin.H{"id": "RO-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeOrder(t, w)
	if created.ID != "RO-1" || created.Status != models.StatusTodo {
		t.Errorf("created = %+v", created)
	}

	w = doJSON(t, router, http.MethodGet, "/api/orders/RO-1", advisorID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}
	got := decodeOrder(t, w)
	if len(got.Logs) != 1 || got.Logs[0].Text != "Vehicle registered." {
		t.Errorf("logs = %+v", got.Logs)
	}

	// An unknown identity has no role and cannot mutate.
	w = doJSON(t, router, http.MethodPost, "/api/orders", "stranger@shop", gin.H{"id": "RO-2"})
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger create: status = %d", w.Code)
	}
}

func TestStatusAndBoardEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/orders", advisorID, gin.H{"id": "RO-1"})

	w := doJSON(t, router, http.MethodPost, "/api/orders/RO-1/status", foremanID, gin.H{"status": models.StatusInProgress})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status change: %d, %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/board?workType=MECHANIC", foremanID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("board: %d", w.Code)
	}
	var bv BoardView
	if err := json.Unmarshal(w.Body.Bytes(), &bv); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, col := range bv.Columns {
		if col.Status != models.StatusInProgress {
			continue
		}
		if len(col.Slots)%8 != 0 || len(col.Slots) < 8 {
			t.Errorf("column capacity = %d", len(col.Slots))
		}
		for _, slot := range col.Slots {
			if slot != nil && slot.ID == "RO-1" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("RO-1 not on the board: %s", w.Body.String())
	}
}

func TestBayConflictEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/orders", advisorID, gin.H{"id": "RO-A"})
	doJSON(t, router, http.MethodPost, "/api/orders", advisorID, gin.H{"id": "RO-B"})

	w := doJSON(t, router, http.MethodPost, "/api/orders/RO-A/bay", advisorID, gin.H{"bayId": 3})
	if w.Code != http.StatusForbidden {
		t.Errorf("advisor bay move: %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/orders/RO-A/bay", foremanID, gin.H{"bayId": 3})
	if w.Code != http.StatusNoContent {
		t.Fatalf("bay move: %d, %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/api/orders/RO-B/bay", foremanID, gin.H{"bayId": 3})
	if w.Code != http.StatusConflict {
		t.Fatalf("conflict: %d, %s", w.Code, w.Body.String())
	}
	var conflict struct {
		Occupant OrderView `json:"occupant"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &conflict); err != nil {
		t.Fatal(err)
	}
	if conflict.Occupant.ID != "RO-A" {
		t.Errorf("occupant = %+v", conflict.Occupant)
	}

	w = doJSON(t, router, http.MethodPost, "/api/orders/RO-B/bay/resolve", foremanID, gin.H{"bayId": 3, "resolution": models.StatusDone})
	if w.Code != http.StatusNoContent {
		t.Fatalf("resolve: %d, %s", w.Code, w.Body.String())
	}

	a := decodeOrder(t, doJSON(t, router, http.MethodGet, "/api/orders/RO-A", foremanID, nil))
	if a.BayID != nil || a.Status != models.StatusDone {
		t.Errorf("RO-A = %+v", a)
	}
	b := decodeOrder(t, doJSON(t, router, http.MethodGet, "/api/orders/RO-B", foremanID, nil))
	if b.BayID == nil || *b.BayID != 3 || b.Status != models.StatusInProgress {
		t.Errorf("RO-B = %+v", b)
	}
}

func TestBayPanelGate(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/bays", advisorID, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("advisor bays: %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/bays", ownerID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner bays: %d", w.Code)
	}
	var snaps []BaySnapshotView
	if err := json.Unmarshal(w.Body.Bytes(), &snaps); err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 9 {
		t.Errorf("bay count = %d", len(snaps))
	}
}

func TestSettleRestoreHistoryEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/orders", advisorID, gin.H{"id": "RO-1"})

	w := doJSON(t, router, http.MethodPost, "/api/orders/RO-1/settle", ownerID, gin.H{"method": models.PaymentCash, "amount": 300})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("settle before done: %d", w.Code)
	}

	doJSON(t, router, http.MethodPost, "/api/orders/RO-1/status", ownerID, gin.H{"status": models.StatusDone})

	w = doJSON(t, router, http.MethodPost, "/api/orders/RO-1/settle", ownerID, gin.H{"method": "BITCOIN", "amount": 300})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("settle with unknown method: %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/orders/RO-1/settle", ownerID, gin.H{"method": models.PaymentCash, "amount": 300})
	if w.Code != http.StatusNoContent {
		t.Fatalf("settle: %d, %s", w.Code, w.Body.String())
	}

	o := decodeOrder(t, doJSON(t, router, http.MethodGet, "/api/orders/RO-1", ownerID, nil))
	if o.Status != models.StatusArchived {
		t.Errorf("status = %q", o.Status)
	}

	w = doJSON(t, router, http.MethodGet, "/api/history", ownerID, nil)
	var groups []HistoryGroup
	if err := json.Unmarshal(w.Body.Bytes(), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Orders) != 1 || groups[0].Orders[0].ID != "RO-1" {
		t.Errorf("history = %+v", groups)
	}

	w = doJSON(t, router, http.MethodPost, "/api/orders/RO-1/restore", ownerID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("restore: %d", w.Code)
	}
	o = decodeOrder(t, doJSON(t, router, http.MethodGet, "/api/orders/RO-1", ownerID, nil))
	if o.Status != models.StatusTodo {
		t.Errorf("restored status = %q", o.Status)
	}
}

func TestEditOrderEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/orders", advisorID, gin.H{"id": "RO-1"})

	w := doJSON(t, router, http.MethodPatch, "/api/orders/RO-1", advisorID, gin.H{
		"model": "2012 Subaru Outback", "urgent": true, "mileage": 188000,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("edit: %d, %s", w.Code, w.Body.String())
	}
	o := decodeOrder(t, doJSON(t, router, http.MethodGet, "/api/orders/RO-1", advisorID, nil))
	if o.Model != "2012 Subaru Outback" || !o.Urgent || o.Mileage == nil || *o.Mileage != 188000 {
		t.Errorf("order = %+v", o)
	}
	var hasLine bool
	for _, l := range o.Logs {
		if l.Text == "Odometer updated: 188000 km" {
			hasLine = true
		}
	}
	if !hasLine {
		t.Errorf("logs = %+v", o.Logs)
	}
}

func TestColumnEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/columns?workType=MECHANIC", foremanID, nil)
	var resp struct {
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Columns) == 0 || resp.Columns[0] != models.StatusDone {
		t.Errorf("columns = %v", resp.Columns)
	}

	w = doJSON(t, router, http.MethodPost, "/api/columns/reorder", foremanID, gin.H{
		"workType": "MECHANIC", "dragged": models.StatusTodo, "target": models.StatusDone,
	})
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Columns[0] != models.StatusTodo || resp.Columns[1] != models.StatusDone {
		t.Errorf("reordered = %v", resp.Columns)
	}
}

func TestBroadcastEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/broadcast", foremanID, gin.H{"message": "x"})
	if w.Code != http.StatusForbidden {
		t.Errorf("foreman broadcast: %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/broadcast", ownerID, gin.H{"message": "Closing early"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("broadcast: %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/broadcast", foremanID, nil)
	var got struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Message == nil || *got.Message != "Closing early" {
		t.Errorf("message = %v", got.Message)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/broadcast", ownerID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear: %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/broadcast", foremanID, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Message != nil {
		t.Errorf("message after clear = %v", got.Message)
	}
}

func TestCalendarEventEndpointRunsZeroTouch(t *testing.T) {
	router, rec := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/events", advisorID, gin.H{
		"id": "ev-1", "title": "Brake job", "description": "- pads",
		"start": "2026-08-30T10:00:00Z", "end": "2026-08-30T11:00:00Z",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("save event: %d, %s", w.Code, w.Body.String())
	}
	// The order materializes only when the event falls on the current
	// day; saving always leaves the event listed.
	events, err := rec.Events()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Title != "Brake job" {
		t.Errorf("events = %+v", events)
	}
}

func TestMissingOrderIs404(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/orders/RO-404", ownerID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
