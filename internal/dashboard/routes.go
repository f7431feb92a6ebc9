package dashboard

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ckshop/shopflow/internal/capability"
	"github.com/ckshop/shopflow/internal/lifecycle"
	"github.com/ckshop/shopflow/internal/models"
	"github.com/ckshop/shopflow/internal/reconcile"
)

// roleKey is the gin context key carrying the resolved shop role.
const roleKey = "shopRole"

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, deps Deps) {
	router.Use(resolveRole(deps))

	api := router.Group("/api")

	api.GET("/orders", handleListOrders(deps))
	api.POST("/orders", handleCreateOrder(deps))
	api.GET("/orders/:id", handleGetOrder(deps))
	api.PATCH("/orders/:id", handleEditOrder(deps))
	api.POST("/orders/:id/status", handleChangeStatus(deps))
	api.POST("/orders/:id/slot", handleMoveToSlot(deps))
	api.POST("/orders/:id/bay", handleMoveToBay(deps))
	api.POST("/orders/:id/bay/resolve", handleResolveBayConflict(deps))
	api.POST("/orders/:id/exit", handleExitBay(deps))
	api.POST("/orders/:id/settle", handleSettle(deps))
	api.POST("/orders/:id/void", handleVoid(deps))
	api.POST("/orders/:id/restore", handleRestore(deps))
	api.POST("/orders/:id/read", handleMarkRead(deps))
	api.POST("/orders/:id/decode-vin", handleDecodeVIN(deps))
	api.POST("/orders/:id/diagnostic", handleDiagnostic(deps))

	api.GET("/board", handleBoard(deps))
	api.GET("/bays", handleBays(deps))
	api.GET("/history", handleHistory(deps))

	api.GET("/columns", handleColumns(deps))
	api.POST("/columns/reorder", handleReorderColumns(deps))

	api.GET("/events", handleListEvents(deps))
	api.POST("/events", handleSaveEvent(deps))

	api.GET("/broadcast", handleGetBroadcast(deps))
	api.POST("/broadcast", handleSetBroadcast(deps))
	api.DELETE("/broadcast", handleClearBroadcast(deps))

	api.GET("/changes", handleChanges(deps))

	router.GET("/ws", handleWS(deps))
}

// resolveRole maps the caller's identity header to a shop role. Unknown
// identities get an empty role, which every capability denies.
func resolveRole(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetHeader("X-Shop-Identity")
		c.Set(roleKey, deps.Cfg.ResolveRole(identity))
		c.Next()
	}
}

func role(c *gin.Context) string {
	return c.GetString(roleKey)
}

// writeMutationError maps reconciler errors to status codes.
func writeMutationError(c *gin.Context, err error) {
	var occupied *reconcile.BayOccupiedError
	switch {
	case errors.Is(err, reconcile.ErrDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &occupied):
		c.JSON(http.StatusConflict, gin.H{
			"error":    occupied.Error(),
			"bay":      bayView(occupied.Bay),
			"occupant": orderView(occupied.Occupant),
		})
	case errors.Is(err, lifecycle.ErrNotDone),
		errors.Is(err, lifecycle.ErrNotArchived),
		errors.Is(err, lifecycle.ErrBadPayment),
		errors.Is(err, reconcile.ErrBadResolution):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func handleListOrders(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders := deps.Rec.Search(c.Query("q"))
		c.JSON(http.StatusOK, orderViews(orders))
	}
}

func handleGetOrder(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, ok := deps.Rec.Order(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusOK, orderView(o))
	}
}

func handleCreateOrder(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ID       string `json:"id" binding:"required"`
			WorkType string `json:"workType"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.WorkType == "" {
			req.WorkType = models.WorkTypeMechanic
		}
		o, err := deps.Rec.CreateOrder(role(c), req.ID, req.WorkType)
		if err != nil {
			writeMutationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, orderView(o))
	}
}

func handleEditOrder(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req editRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.UpdateOrder(role(c), c.Param("id"), req.edits()); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleChangeStatus(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.ChangeStatus(role(c), c.Param("id"), req.Status); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleMoveToSlot(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status       string `json:"status" binding:"required"`
			GridPosition int    `json:"gridPosition"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.MoveToSlot(role(c), c.Param("id"), req.Status, req.GridPosition); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleMoveToBay(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			BayID int `json:"bayId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.MoveToBay(role(c), c.Param("id"), req.BayID); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleResolveBayConflict(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			BayID      int    `json:"bayId" binding:"required"`
			Resolution string `json:"resolution" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.ResolveBayConflict(role(c), c.Param("id"), req.BayID, req.Resolution); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleExitBay(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.ExitBay(role(c), c.Param("id"), req.Status); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleSettle(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Method string  `json:"method" binding:"required"`
			Amount float64 `json:"amount"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.Settle(role(c), c.Param("id"), req.Method, req.Amount); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleVoid(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Rec.VoidNoRepair(role(c), c.Param("id")); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleRestore(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Rec.Restore(role(c), c.Param("id")); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleMarkRead(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Rec.MarkRead(role(c), c.Param("id")); err != nil {
			writeMutationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleDecodeVIN(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.AI == nil || !deps.AI.Enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ai backend not configured"})
			return
		}
		o, ok := deps.Rec.Order(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if o.VIN == "" || o.VIN == models.CalendarVIN {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "order has no VIN"})
			return
		}
		specs, err := deps.AI.DecodeVIN(c.Request.Context(), o.VIN)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Rec.SetDecoded(o.ID, specs); err != nil {
			writeMutationError(c, err)
			return
		}
		c.JSON(http.StatusOK, specs)
	}
}

func handleDiagnostic(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.AI == nil || !deps.AI.Enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ai backend not configured"})
			return
		}
		var req struct {
			Message string `json:"message" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		o, ok := deps.Rec.Order(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		answer, err := deps.AI.DiagnosticAdvice(c.Request.Context(), buildDiagnosticContext(o, req.Message))
		if err != nil {
			log.Printf("dashboard: diagnostic advice for %s: %v", o.ID, err)
			answer = "The AI assistant could not produce advice for this request."
		}
		if err := deps.Rec.AppendDiagnostic(role(c), o.ID, req.Message, answer); err != nil {
			writeMutationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": answer})
	}
}

func handleBays(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !capability.CanSeeActiveBays(role(c)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "role may not view the bay panel"})
			return
		}
		c.JSON(http.StatusOK, bayPanelView(deps))
	}
}

func handleBoard(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		workType := c.DefaultQuery("workType", models.WorkTypeMechanic)
		c.JSON(http.StatusOK, boardView(deps, role(c), workType))
	}
}

func handleHistory(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, historyView(deps.Rec.Orders()))
	}
}

func handleColumns(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		workType := c.DefaultQuery("workType", models.WorkTypeMechanic)
		c.JSON(http.StatusOK, gin.H{"columns": deps.Rec.Columns(role(c), workType)})
	}
}

func handleReorderColumns(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WorkType string `json:"workType"`
			Dragged  string `json:"dragged" binding:"required"`
			Target   string `json:"target" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.WorkType == "" {
			req.WorkType = models.WorkTypeMechanic
		}
		cols := deps.Rec.ReorderColumns(role(c), req.WorkType, req.Dragged, req.Target)
		c.JSON(http.StatusOK, gin.H{"columns": cols})
	}
}

func handleListEvents(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := deps.Rec.Events()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

func handleSaveEvent(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev models.CalendarEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if ev.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event id is required"})
			return
		}
		if err := deps.Rec.SaveEvent(ev); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleGetBroadcast(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": deps.Hub.Current()})
	}
}

func handleSetBroadcast(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Message string `json:"message" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.Hub.Set(role(c), req.Message); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleClearBroadcast(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Hub.Clear(role(c)); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleWS(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps.Hub.ServeWS(role(c), c.Writer, c.Request)
	}
}
