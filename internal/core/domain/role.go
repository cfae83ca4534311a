package domain

// Role distinguishes the two classes of relay connections: the single
// producing device and its watching controllers.
type Role string

const (
	RoleDevice     Role = "device"
	RoleController Role = "controller"
)
