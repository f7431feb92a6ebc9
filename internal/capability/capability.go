// Package capability holds the role permission predicates consulted before
// any order mutation. The view layer hides most denied actions already;
// these checks are the enforcement behind it.
package capability

import "github.com/ckshop/shopflow/internal/models"

// CanSeeActiveBays reports whether role may view the live bay panel.
func CanSeeActiveBays(role string) bool {
	return role == models.RoleOwner || role == models.RoleForeman
}

// CanAssignBay reports whether role may move orders into and out of bays.
func CanAssignBay(role string) bool {
	return role == models.RoleOwner || role == models.RoleForeman
}

// CanCreateOrder reports whether role may register new repair orders.
func CanCreateOrder(role string) bool {
	return role == models.RoleOwner || role == models.RoleAdvisor
}

// CanChangeStatus reports whether role may move orders between columns.
func CanChangeStatus(role string) bool {
	return role == models.RoleOwner || role == models.RoleAdvisor || role == models.RoleForeman
}

// CanChangePayment reports whether role may settle, void, or restore orders.
func CanChangePayment(role string) bool {
	return role == models.RoleOwner || role == models.RoleAdvisor || role == models.RoleForeman
}

// CanBroadcast reports whether role may send shop-wide broadcasts.
func CanBroadcast(role string) bool {
	return role == models.RoleOwner || role == models.RoleAdvisor
}
