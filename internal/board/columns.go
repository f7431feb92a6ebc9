package board

import "github.com/ckshop/shopflow/internal/models"

// Default column orderings. "Done" leads every board; the foreman view
// swaps PENDING and IN_PROGRESS.
var (
	DefaultAdvisorColumns = []string{
		models.StatusDone, models.StatusTodo, models.StatusPending,
		models.StatusInProgress, models.StatusBodyWork,
	}
	DefaultForemanColumns = []string{
		models.StatusDone, models.StatusTodo, models.StatusInProgress,
		models.StatusPending, models.StatusBodyWork,
	}
	DefaultOwnerColumns = []string{
		models.StatusDone, models.StatusTodo, models.StatusPending,
		models.StatusInProgress, models.StatusBodyWork,
	}
	DefaultBodyColumns = []string{
		models.StatusDone, models.StatusTodo, models.StatusBodyWork,
		models.StatusPainting, models.StatusFinishingUp, models.StatusMechanicWork,
	}
)

// DefaultColumns returns the fallback ordering for an audience.
func DefaultColumns(audience string) []string {
	switch audience {
	case models.AudienceForeman:
		return append([]string(nil), DefaultForemanColumns...)
	case models.AudienceOwner:
		return append([]string(nil), DefaultOwnerColumns...)
	case models.AudienceBody:
		return append([]string(nil), DefaultBodyColumns...)
	default:
		return append([]string(nil), DefaultAdvisorColumns...)
	}
}

// AudienceFor maps a (role, workType) pair to its column-order audience:
// the body board is shared, the mechanic board is per role.
func AudienceFor(role, workType string) string {
	if workType == models.WorkTypeBody {
		return models.AudienceBody
	}
	switch role {
	case models.RoleForeman:
		return models.AudienceForeman
	case models.RoleOwner:
		return models.AudienceOwner
	default:
		return models.AudienceAdvisor
	}
}

// SanitizeColumns cleans a loaded column ordering: the legacy INSURANCE
// value is rewritten to BODY_WORK, anything outside the stored-status set
// is dropped, duplicates collapse to their first occurrence, and an
// ordering that sanitizes to nothing falls back to the default.
func SanitizeColumns(loaded, fallback []string) []string {
	var out []string
	seen := make(map[string]bool, len(loaded))
	for _, s := range loaded {
		if s == models.StatusInsurance {
			s = models.StatusBodyWork
		}
		if !models.IsStored(s) || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

// Reorder moves dragged immediately before target's current position.
// No-op when either status is absent or they are the same column.
func Reorder(columns []string, dragged, target string) []string {
	if dragged == target {
		return columns
	}
	di, ti := indexOf(columns, dragged), indexOf(columns, target)
	if di < 0 || ti < 0 {
		return columns
	}
	out := make([]string, 0, len(columns))
	out = append(out, columns[:di]...)
	out = append(out, columns[di+1:]...)
	ti = indexOf(out, target)
	out = append(out[:ti], append([]string{dragged}, out[ti:]...)...)
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// VisibleColumns filters an ordering down to the statuses the work type
// actually shows: the mechanic board has no body-shop-only columns and
// vice versa.
func VisibleColumns(columns []string, workType string) []string {
	allowed := DefaultColumns(models.AudienceBody)
	if workType == models.WorkTypeMechanic {
		allowed = DefaultColumns(models.AudienceAdvisor)
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = true
	}
	var out []string
	for _, s := range columns {
		if allowedSet[s] {
			out = append(out, s)
		}
	}
	return out
}
