package lifecycle

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ckshop/shopflow/internal/models"
)

var t0 = time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC)

func TestChangeStatus(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", WorkType: models.WorkTypeMechanic, Status: models.StatusTodo}
	logs := ChangeStatus(o, models.StatusPending, t0)

	if o.Status != models.StatusPending {
		t.Errorf("status = %q, want PENDING", o.Status)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %v, want exactly one line", logs)
	}
	// The line must carry both role-facing labels.
	if !strings.Contains(logs[0], "To-do") || !strings.Contains(logs[0], "Pending") {
		t.Errorf("log line missing labels: %q", logs[0])
	}
}

func TestChangeStatus_NoOpOnSameStatus(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", Status: models.StatusTodo}
	if logs := ChangeStatus(o, models.StatusTodo, t0); logs != nil {
		t.Errorf("same-status change produced logs: %v", logs)
	}
}

func TestChangeStatus_BodyLabels(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", WorkType: models.WorkTypeBody, Status: models.StatusBodyWork}
	logs := ChangeStatus(o, models.StatusMechanicWork, t0)
	if len(logs) != 1 || !strings.Contains(logs[0], "Bodywork") || !strings.Contains(logs[0], "Mechanic To-do") {
		t.Errorf("body board labels wrong: %v", logs)
	}
}

func TestChangeStatus_RedirectsThroughBayExit(t *testing.T) {
	bay := 3
	entered := t0.Add(-10 * time.Minute)
	o := &models.RepairOrder{
		ID: "RO-1", WorkType: models.WorkTypeMechanic, Status: models.StatusInProgress,
		BayID: &bay, LastEnteredBayAt: &entered, TotalTimeInBay: 1200000,
	}
	logs := ChangeStatus(o, models.StatusDone, t0)

	if o.BayID != nil || o.LastEnteredBayAt != nil {
		t.Error("bay link should clear on status-driven exit")
	}
	if o.Status != models.StatusDone {
		t.Errorf("status = %q, want DONE", o.Status)
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "exited Bay") {
		t.Errorf("expected bay-exit log, got %v", logs)
	}
}

func TestExitBay_Accounting(t *testing.T) {
	// 10-minute session on top of 20 accumulated minutes.
	bay := 3
	entered := t0.Add(-10 * time.Minute)
	o := &models.RepairOrder{
		ID: "X", WorkType: models.WorkTypeMechanic, Status: models.StatusInProgress,
		BayID: &bay, LastEnteredBayAt: &entered, TotalTimeInBay: 1200000,
	}
	logs := ExitBay(o, models.StatusDone, t0)

	if o.Status != models.StatusDone {
		t.Errorf("status = %q, want DONE", o.Status)
	}
	if o.BayID != nil {
		t.Error("BayID should be absent after exit")
	}
	if o.LastEnteredBayAt != nil {
		t.Error("LastEnteredBayAt should be absent after exit")
	}
	if o.TotalTimeInBay != 1800000 {
		t.Errorf("TotalTimeInBay = %d, want 1800000", o.TotalTimeInBay)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %v", logs)
	}
	if !strings.Contains(logs[0], "00:10:00") || !strings.Contains(logs[0], "00:30:00") {
		t.Errorf("exit log missing session/total durations: %q", logs[0])
	}
}

func TestBaySessionAccounting_Cycles(t *testing.T) {
	// N enter/exit cycles: the lifetime total is exactly the sum of the
	// session durations, and the session start is absent at the end.
	bay := models.Bay{ID: 2, Name: "Bay 2", WorkType: models.WorkTypeMechanic}
	o := &models.RepairOrder{ID: "RO-1", WorkType: models.WorkTypeMechanic, Status: models.StatusTodo}

	durations := []time.Duration{90 * time.Second, 45 * time.Minute, 3 * time.Second}
	clock := t0
	var want int64
	for _, d := range durations {
		EnterBay(o, bay, clock)
		clock = clock.Add(d)
		ExitBay(o, models.StatusPending, clock)
		clock = clock.Add(7 * time.Minute) // idle between sessions, must not count
		want += d.Milliseconds()
	}

	if o.TotalTimeInBay != want {
		t.Errorf("TotalTimeInBay = %d, want %d", o.TotalTimeInBay, want)
	}
	if o.LastEnteredBayAt != nil {
		t.Error("LastEnteredBayAt should be absent after final exit")
	}
}

func TestEnterBay(t *testing.T) {
	pos := 4
	bay := models.Bay{ID: 7, Name: "Body Work", WorkType: models.WorkTypeBody, EntryStatus: models.StatusBodyWork}
	o := &models.RepairOrder{ID: "RO-1", WorkType: models.WorkTypeBody, Status: models.StatusTodo, GridPosition: &pos}

	logs := EnterBay(o, bay, t0)

	if o.Status != models.StatusBodyWork {
		t.Errorf("status = %q, want BODY_WORK (bay entry mapping)", o.Status)
	}
	if o.BayID == nil || *o.BayID != 7 {
		t.Errorf("BayID = %v, want 7", o.BayID)
	}
	if o.LastEnteredBayAt == nil || !o.LastEnteredBayAt.Equal(t0) {
		t.Errorf("LastEnteredBayAt = %v, want %v", o.LastEnteredBayAt, t0)
	}
	if o.GridPosition != nil {
		t.Error("a card entering a bay no longer holds a grid slot")
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "Body Work") {
		t.Errorf("logs = %v", logs)
	}
}

func TestEnterBay_FoldsPriorSession(t *testing.T) {
	// Bay-to-bay move: the old session folds into the total before the
	// new one starts.
	oldBay := 1
	entered := t0.Add(-15 * time.Minute)
	o := &models.RepairOrder{
		ID: "RO-1", WorkType: models.WorkTypeMechanic, Status: models.StatusInProgress,
		BayID: &oldBay, LastEnteredBayAt: &entered, TotalTimeInBay: 60000,
	}
	bay := models.Bay{ID: 2, Name: "Bay 2", WorkType: models.WorkTypeMechanic}
	EnterBay(o, bay, t0)

	if o.TotalTimeInBay != 60000+15*60*1000 {
		t.Errorf("TotalTimeInBay = %d, want prior session folded in", o.TotalTimeInBay)
	}
	if o.BayID == nil || *o.BayID != 2 {
		t.Errorf("BayID = %v, want 2", o.BayID)
	}
	if !o.LastEnteredBayAt.Equal(t0) {
		t.Errorf("new session should start at move time, got %v", o.LastEnteredBayAt)
	}
}

func TestSettleAndRestore_RoundTrip(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", WorkType: models.WorkTypeMechanic, Status: models.StatusDone}
	before := *o

	logs, err := Settle(o, models.PaymentCash, 150, t0)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if len(logs) != 1 || logs[0] != "Payment Processed: CASH ($150)" {
		t.Errorf("settle log = %v", logs)
	}
	if !o.Archived() {
		t.Fatal("order should read as archived after settle")
	}
	if o.Status != models.StatusDone {
		t.Errorf("stored status = %q, ARCHIVED must never be stored verbatim", o.Status)
	}

	if _, err := Restore(o, t0.Add(time.Minute)); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if o.Status != models.StatusTodo {
		t.Errorf("status after restore = %q, want TODO", o.Status)
	}
	if o.PaymentMethod != nil || o.PaymentAmount != nil || o.SettledAt != nil {
		t.Error("settlement fields should all be absent after restore")
	}

	// Apart from the status moving back to TODO, the field set matches
	// the pre-settlement order.
	restored := *o
	restored.Status = before.Status
	if !reflect.DeepEqual(restored, before) {
		t.Errorf("restore round trip mutated fields:\n got %+v\nwant %+v", restored, before)
	}
}

func TestSettle_RequiresDone(t *testing.T) {
	for _, status := range []string{models.StatusTodo, models.StatusPending, models.StatusInProgress, models.StatusPainting} {
		o := &models.RepairOrder{ID: "RO-1", Status: status}
		if _, err := Settle(o, models.PaymentCash, 10, t0); err != ErrNotDone {
			t.Errorf("Settle from %s: err = %v, want ErrNotDone", status, err)
		}
		if o.SettledAt != nil {
			t.Errorf("Settle from %s mutated the order", status)
		}
	}
}

func TestSettle_RejectsUnknownMethod(t *testing.T) {
	for _, method := range []string{"BITCOIN", "", "cash"} {
		o := &models.RepairOrder{ID: "RO-1", Status: models.StatusDone}
		if _, err := Settle(o, method, 10, t0); err != ErrBadPayment {
			t.Errorf("Settle with %q: err = %v, want ErrBadPayment", method, err)
		}
		if o.SettledAt != nil || o.PaymentMethod != nil {
			t.Errorf("Settle with %q mutated the order", method)
		}
	}
}

func TestSettle_AlreadySettled(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", Status: models.StatusDone}
	if _, err := Settle(o, models.PaymentCheque, 99, t0); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if _, err := Settle(o, models.PaymentCash, 10, t0); err != ErrNotDone {
		t.Errorf("second settle err = %v, want ErrNotDone", err)
	}
}

func TestVoidNoRepair(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", Status: models.StatusDone}
	logs, err := VoidNoRepair(o, t0)
	if err != nil {
		t.Fatalf("VoidNoRepair: %v", err)
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "NO REPAIR") {
		t.Errorf("logs = %v", logs)
	}
	if o.PaymentMethod == nil || *o.PaymentMethod != models.PaymentAbandoned {
		t.Errorf("PaymentMethod = %v, want ABANDONED", o.PaymentMethod)
	}
	if o.PaymentAmount == nil || *o.PaymentAmount != 0 {
		t.Errorf("PaymentAmount = %v, want 0", o.PaymentAmount)
	}
	if !o.Archived() {
		t.Error("voided order should read as archived")
	}
}

func TestRestore_RequiresArchived(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", Status: models.StatusDone}
	if _, err := Restore(o, t0); err != ErrNotArchived {
		t.Errorf("Restore of unsettled order: err = %v, want ErrNotArchived", err)
	}
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }
func intp(v int) *int       { return &v }

func TestApplyEdits(t *testing.T) {
	o := &models.RepairOrder{
		ID: "RO-1", Model: "2018 BMW M3", VIN: "WBS3B9C5XJK0000",
		CustomerName: "John Doe", Phone: "555-0123", Urgent: false,
	}
	logs := ApplyEdits(o, Edits{
		Model:        strp("2019 BMW M3"),
		VIN:          strp("WBS3B9C5XJK0001"),
		CustomerName: strp("Jane Doe"),
		Phone:        strp("555-9999"),
		Urgent:       boolp(true),
		Mileage:      intp(42500),
	})

	want := []string{
		"Model updated: 2019 BMW M3",
		"VIN updated: WBS3B9C5XJK0001",
		"Customer: Jane Doe",
		"Phone: 555-9999",
		"Priority: URGENT",
		"Odometer updated: 42500 km",
	}
	if len(logs) != len(want) {
		t.Fatalf("logs = %v, want %v", logs, want)
	}
	for i := range want {
		if logs[i] != want[i] {
			t.Errorf("logs[%d] = %q, want %q (fixed field order)", i, logs[i], want[i])
		}
	}
	if o.Model != "2019 BMW M3" || o.CustomerName != "Jane Doe" || !o.Urgent {
		t.Errorf("edits not applied: %+v", o)
	}
}

func TestApplyEdits_UnchangedFieldsSilent(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", Model: "Civic", Phone: "555"}
	logs := ApplyEdits(o, Edits{Model: strp("Civic"), Phone: strp("555"), Info: strp("new notes")})
	if len(logs) != 0 {
		t.Errorf("unchanged fields logged: %v", logs)
	}
	if o.Info != "new notes" {
		t.Error("info edit not applied")
	}
}

func TestApplyEdits_Rename(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1"}
	logs := ApplyEdits(o, Edits{NewID: strp("RO-2")})
	if o.ID != "RO-2" {
		t.Errorf("ID = %q, want RO-2", o.ID)
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "RO-1") || !strings.Contains(logs[0], "RO-2") {
		t.Errorf("rename log = %v", logs)
	}
}

func TestMarkRead(t *testing.T) {
	o := &models.RepairOrder{ID: "RO-1", Info: "brake pads\nrotors"}
	o.SetUnreadRoles([]string{models.RoleAdvisor, models.RoleForeman})

	MarkRead(o, models.RoleForeman)

	if o.UnreadFor(models.RoleForeman) {
		t.Error("FOREMAN still unread")
	}
	if !o.UnreadFor(models.RoleAdvisor) {
		t.Error("ADVISOR unread state lost")
	}
	if o.LastRead()[models.RoleForeman] != "brake pads\nrotors" {
		t.Errorf("last-read snapshot = %q", o.LastRead()[models.RoleForeman])
	}
}

func TestNewOrder(t *testing.T) {
	o, line := NewOrder("RO-500", models.WorkTypeMechanic, 12)
	if o.Status != models.StatusTodo {
		t.Errorf("status = %q, want TODO", o.Status)
	}
	if o.OrderIndex != 12 {
		t.Errorf("OrderIndex = %d, want 12", o.OrderIndex)
	}
	if line != "Vehicle registered." {
		t.Errorf("seed log = %q", line)
	}
}
