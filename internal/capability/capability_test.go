package capability

import (
	"testing"

	"github.com/ckshop/shopflow/internal/models"
)

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) bool
		// allowed per role: owner, advisor, foreman
		owner, advisor, foreman bool
	}{
		{"CanSeeActiveBays", CanSeeActiveBays, true, false, true},
		{"CanAssignBay", CanAssignBay, true, false, true},
		{"CanCreateOrder", CanCreateOrder, true, true, false},
		{"CanChangeStatus", CanChangeStatus, true, true, true},
		{"CanChangePayment", CanChangePayment, true, true, true},
		{"CanBroadcast", CanBroadcast, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(models.RoleOwner); got != tt.owner {
				t.Errorf("%s(OWNER) = %v, want %v", tt.name, got, tt.owner)
			}
			if got := tt.fn(models.RoleAdvisor); got != tt.advisor {
				t.Errorf("%s(ADVISOR) = %v, want %v", tt.name, got, tt.advisor)
			}
			if got := tt.fn(models.RoleForeman); got != tt.foreman {
				t.Errorf("%s(FOREMAN) = %v, want %v", tt.name, got, tt.foreman)
			}
			if tt.fn("") {
				t.Errorf("%s with empty role should be denied", tt.name)
			}
			if tt.fn("MECHANIC") {
				t.Errorf("%s with unknown role should be denied", tt.name)
			}
		})
	}
}
