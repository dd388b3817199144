package model

// UserRole 来自外部签发的 JWT，服务本身不管理账号
type UserRole string

const (
	RoleClinician UserRole = "clinician"
	RoleAdmin     UserRole = "admin"
)

