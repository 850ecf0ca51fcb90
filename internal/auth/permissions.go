package auth

import "strings"

type StaffPermission string

const (
	PermCarts    StaffPermission = "carts"
	PermPayments StaffPermission = "payments"
	PermInvoices StaffPermission = "invoices"
	PermRecover  StaffPermission = "recover"
	PermReceipts StaffPermission = "receipts"
)

var rolePermissions = map[StaffRole]map[StaffPermission]bool{
	RoleWaiter: {
		PermCarts:    true,
		PermPayments: true,
		PermReceipts: true,
	},
	RoleShiftManager: {
		PermCarts:    true,
		PermPayments: true,
		PermInvoices: true,
		PermRecover:  true,
		PermReceipts: true,
	},
	RoleAdmin: {
		PermCarts:    true,
		PermPayments: true,
		PermInvoices: true,
		PermRecover:  true,
		PermReceipts: true,
	},
}

var apiPermissionMap = map[string]StaffPermission{
	"/api/slots":         PermCarts,
	"/api/slots/recover": PermRecover,
	"/api/payments":      PermPayments,
	"/api/invoices":      PermInvoices,
	"GET /api/invoices":  PermCarts,
	"/api/receipts":      PermReceipts,
}

// GetPermissionForAPI resolves the permission guarding a control-plane
// path, preferring the longest matching prefix and method-specific keys.
func GetPermissionForAPI(path string, method string) *StaffPermission {
	method = strings.ToUpper(strings.TrimSpace(method))

	var bestPath string
	var bestPerm *StaffPermission
	var bestMethodSpecific bool

	for key, perm := range apiPermissionMap {
		keyPath := key
		methodSpecific := false
		if strings.Contains(key, " ") {
			parts := strings.SplitN(key, " ", 2)
			keyMethod := strings.ToUpper(strings.TrimSpace(parts[0]))
			keyPath = strings.TrimSpace(parts[1])
			methodSpecific = true
			if method == "" || method != keyMethod {
				continue
			}
		}

		if !strings.HasPrefix(path, keyPath) {
			continue
		}

		if bestPerm == nil || len(keyPath) > len(bestPath) || (len(keyPath) == len(bestPath) && methodSpecific && !bestMethodSpecific) {
			bestPath = keyPath
			bestMethodSpecific = methodSpecific
			permCopy := perm
			bestPerm = &permCopy
		}
	}

	return bestPerm
}

// HasPermission reports whether a role may use the given permission.
func HasPermission(role StaffRole, perm StaffPermission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[perm]
}
