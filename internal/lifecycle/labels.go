package lifecycle

import "github.com/ckshop/shopflow/internal/models"

// statusLabels are the role-facing column names used in log lines.
var statusLabels = map[string]string{
	models.StatusTodo:         "To-do",
	models.StatusPending:      "Pending",
	models.StatusInProgress:   "In Progress",
	models.StatusDone:         "Done",
	models.StatusBodyWork:     "Body Work",
	models.StatusPainting:     "Painting",
	models.StatusFinishingUp:  "Finishing Up",
	models.StatusMechanicWork: "Mechanic Work",
	models.StatusArchived:     "Archived",
	models.StatusInsurance:    "Insurance",
}

// bodyLabelOverrides rename two columns on the body-shop board.
var bodyLabelOverrides = map[string]string{
	models.StatusBodyWork:     "Bodywork",
	models.StatusMechanicWork: "Mechanic To-do",
}

// Label returns the display name of a status for the given work type.
func Label(workType, status string) string {
	if workType == models.WorkTypeBody {
		if l, ok := bodyLabelOverrides[status]; ok {
			return l
		}
	}
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}
