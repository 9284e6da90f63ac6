package shared

import "strings"

// Role 操作者角色
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleMerchant Role = "MERCHANT"
	RoleAdmin    Role = "ADMIN"
	RoleSystem   Role = "SYSTEM" // 过期扫描等系统行为
)

// ParseRole 解析角色字符串（大小写不敏感）
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleMerchant, RoleAdmin, RoleSystem:
		return r, true
	}
	return "", false
}

// Actor 操作者能力：每个业务操作显式接收，不依赖任何全局会话
type Actor struct {
	ID   string
	Role Role
}

// SystemActor 系统操作者，用于自动取消
var SystemActor = Actor{ID: "SYSTEM", Role: RoleSystem}

func (a Actor) IsCustomer() bool { return a.Role == RoleCustomer }
func (a Actor) IsMerchant() bool { return a.Role == RoleMerchant }
func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }

// Valid 操作者必须有 ID 和已知角色
func (a Actor) Valid() bool {
	_, ok := ParseRole(string(a.Role))
	return a.ID != "" && ok
}

// RequireRole 校验操作者角色，不满足时返回 PermissionError
func (a Actor) RequireRole(roles ...Role) error {
	if !a.Valid() {
		return NewUnauthorizedError("actor identity is required")
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return NewForbiddenError("actor", "role "+string(a.Role)+" is not allowed to perform this operation")
}
