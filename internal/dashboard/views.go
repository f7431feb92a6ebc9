package dashboard

import (
	"sort"
	"time"

	"github.com/ckshop/shopflow/internal/ai"
	"github.com/ckshop/shopflow/internal/board"
	"github.com/ckshop/shopflow/internal/lifecycle"
	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/occupancy"
)

// editRequest is the PATCH body for order field edits. Nil fields are
// untouched.
type editRequest struct {
	NewID         *string    `json:"newId"`
	Model         *string    `json:"model"`
	VIN           *string    `json:"vin"`
	CustomerName  *string    `json:"customerName"`
	Phone         *string    `json:"phone"`
	Urgent        *bool      `json:"urgent"`
	Mileage       *int       `json:"mileage"`
	DeliveryDate  *time.Time `json:"deliveryDate"`
	Info          *string    `json:"info"`
	InsuranceCase *bool      `json:"insuranceCase"`
}

func (r editRequest) edits() lifecycle.Edits {
	return lifecycle.Edits{
		NewID:         r.NewID,
		Model:         r.Model,
		VIN:           r.VIN,
		CustomerName:  r.CustomerName,
		Phone:         r.Phone,
		Urgent:        r.Urgent,
		Mileage:       r.Mileage,
		DeliveryDate:  r.DeliveryDate,
		Info:          r.Info,
		InsuranceCase: r.InsuranceCase,
	}
}

// OrderView is the JSON shape of one repair order. Status is the
// display form, so settled DONE orders read as ARCHIVED.
type OrderView struct {
	ID              string               `json:"id"`
	WorkType        string               `json:"workType"`
	Status          string               `json:"status"`
	StatusLabel     string               `json:"statusLabel"`
	Model           string               `json:"model"`
	VIN             string               `json:"vin,omitempty"`
	CustomerName    string               `json:"customerName,omitempty"`
	Phone           string               `json:"phone,omitempty"`
	Info            string               `json:"info,omitempty"`
	Urgent          bool                 `json:"urgent"`
	Mileage         *int                 `json:"mileage,omitempty"`
	DeliveryDate    *time.Time           `json:"deliveryDate,omitempty"`
	OrderIndex      int                  `json:"orderIndex"`
	GridPosition    *int                 `json:"gridPosition,omitempty"`
	BayID           *int                 `json:"bayId,omitempty"`
	TotalTimeInBay  int64                `json:"totalTimeInBay"`
	PaymentMethod   *string              `json:"paymentMethod,omitempty"`
	PaymentAmount   *float64             `json:"paymentAmount,omitempty"`
	SettledAt       *time.Time           `json:"settledAt,omitempty"`
	InsuranceCase   bool                 `json:"insuranceCase"`
	CalendarEventID *string              `json:"calendarEventId,omitempty"`
	UnreadBy        []string             `json:"unreadBy"`
	Decoded         *models.VehicleSpecs `json:"decoded,omitempty"`
	Logs            []LogView            `json:"logs"`
	Attachments     []AttachmentView     `json:"attachments"`
}

// LogView is one timeline entry.
type LogView struct {
	ID        uint      `json:"id"`
	User      string    `json:"user"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	ImageRef  string    `json:"imageRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AttachmentView is one uploaded document or photo.
type AttachmentView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	StorageRef  string `json:"storageRef"`
}

func orderView(o models.RepairOrder) OrderView {
	v := OrderView{
		ID:              o.ID,
		WorkType:        o.WorkType,
		Status:          o.DisplayStatus(),
		StatusLabel:     lifecycle.Label(o.WorkType, o.DisplayStatus()),
		Model:           o.Model,
		VIN:             o.VIN,
		CustomerName:    o.CustomerName,
		Phone:           o.Phone,
		Info:            o.Info,
		Urgent:          o.Urgent,
		Mileage:         o.Mileage,
		DeliveryDate:    o.DeliveryDate,
		OrderIndex:      o.OrderIndex,
		GridPosition:    o.GridPosition,
		BayID:           o.BayID,
		TotalTimeInBay:  o.TotalTimeInBay,
		PaymentMethod:   o.PaymentMethod,
		PaymentAmount:   o.PaymentAmount,
		SettledAt:       o.SettledAt,
		InsuranceCase:   o.InsuranceCase,
		CalendarEventID: o.CalendarEventID,
		UnreadBy:        o.UnreadRoles(),
		Decoded:         o.Decoded(),
		Logs:            []LogView{},
		Attachments:     []AttachmentView{},
	}
	if v.UnreadBy == nil {
		v.UnreadBy = []string{}
	}
	for _, l := range o.Logs {
		v.Logs = append(v.Logs, LogView{
			ID: l.ID, User: l.User, Kind: l.Kind, Category: l.Category,
			Text: l.Text, ImageRef: l.ImageRef, CreatedAt: l.CreatedAt,
		})
	}
	for _, a := range o.Attachments {
		v.Attachments = append(v.Attachments, AttachmentView{
			ID: a.ID, Name: a.Name, ContentType: a.ContentType, StorageRef: a.StorageRef,
		})
	}
	return v
}

func orderViews(orders []models.RepairOrder) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView(o))
	}
	return out
}

// BayView is one bay row.
type BayView struct {
	ID          int    `json:"id"`
	RowKey      string `json:"rowKey"`
	Name        string `json:"name"`
	WorkType    string `json:"workType"`
	EntryStatus string `json:"entryStatus"`
}

func bayView(b models.Bay) BayView {
	return BayView{ID: b.ID, RowKey: b.RowKey, Name: b.Name, WorkType: b.WorkType, EntryStatus: b.EntryStatusOr()}
}

// BaySnapshotView is one bay with its occupant and live timers.
type BaySnapshotView struct {
	Bay            BayView    `json:"bay"`
	Occupant       *OrderView `json:"occupant,omitempty"`
	SessionElapsed int64      `json:"sessionElapsedMs"`
	LifetimeTotal  int64      `json:"lifetimeTotalMs"`
}

func bayPanelView(deps Deps) []BaySnapshotView {
	bays, _ := deps.Rec.Bays()
	orders := deps.Rec.Orders()
	ptrs := make([]*models.RepairOrder, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	snaps := occupancy.Project(bays, ptrs, time.Now())
	out := make([]BaySnapshotView, 0, len(snaps))
	for _, s := range snaps {
		v := BaySnapshotView{
			Bay:            bayView(s.Bay),
			SessionElapsed: s.SessionElapsed.Milliseconds(),
			LifetimeTotal:  s.LifetimeTotal.Milliseconds(),
		}
		if s.Order != nil {
			ov := orderView(*s.Order)
			v.Occupant = &ov
		}
		out = append(out, v)
	}
	return out
}

// ColumnView is one board column with its slot grid. Empty slots are
// null entries, so the grid renders with stable geometry.
type ColumnView struct {
	Status string       `json:"status"`
	Label  string       `json:"label"`
	Slots  []*OrderView `json:"slots"`
}

// BoardView is the full kanban projection for one work type.
type BoardView struct {
	WorkType string       `json:"workType"`
	Columns  []ColumnView `json:"columns"`
}

func boardView(deps Deps, roleName, workType string) BoardView {
	columns := board.VisibleColumns(deps.Rec.Columns(roleName, workType), workType)
	orders := deps.Rec.Orders()

	view := BoardView{WorkType: workType, Columns: []ColumnView{}}
	for _, status := range columns {
		var inColumn []*models.RepairOrder
		for i := range orders {
			o := &orders[i]
			if o.WorkType != workType || o.InBay() || o.DisplayStatus() != status {
				continue
			}
			inColumn = append(inColumn, o)
		}
		slots := board.AssignSlots(inColumn, board.Capacity(len(inColumn)))
		col := ColumnView{
			Status: status,
			Label:  lifecycle.Label(workType, status),
			Slots:  make([]*OrderView, len(slots)),
		}
		for i, o := range slots {
			if o != nil {
				v := orderView(*o)
				col.Slots[i] = &v
			}
		}
		view.Columns = append(view.Columns, col)
	}
	return view
}

// HistoryGroup is the archived orders settled on one calendar day,
// newest day first.
type HistoryGroup struct {
	Date   string      `json:"date"`
	Orders []OrderView `json:"orders"`
}

func historyView(orders []models.RepairOrder) []HistoryGroup {
	byDay := map[string][]OrderView{}
	for _, o := range orders {
		if !o.Archived() {
			continue
		}
		day := o.SettledAt.Format("2006-01-02")
		byDay[day] = append(byDay[day], orderView(o))
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	out := make([]HistoryGroup, 0, len(days))
	for _, day := range days {
		out = append(out, HistoryGroup{Date: day, Orders: byDay[day]})
	}
	return out
}

func buildDiagnosticContext(o models.RepairOrder, message string) ai.DiagnosticContext {
	return ai.BuildContext(o, message)
}
