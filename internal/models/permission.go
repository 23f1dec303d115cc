package models

import (
	"encoding/json"
	"fmt"
	"time"

	"conductor/pkg/errors"

	"gorm.io/datatypes"
)

// AccessLevel 访问级别
//
// 只定义 read/write 两级，权限评估使用精确匹配语义：
// write 不隐含 read，需要读写权限时必须同时校验两个键。
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// Valid 是否为已定义的访问级别
func (l AccessLevel) Valid() bool {
	return l == AccessRead || l == AccessWrite
}

// Privilege 权限项，按资源类型划分的能力标签
type Privilege string

// 组织权限项
const (
	// OrgPrivilegeOperator 创建和管理组织操作员，通常只有组织所有者持有
	OrgPrivilegeOperator Privilege = "operator"
	// OrgPrivilegeEvent 在组织下创建和管理活动
	OrgPrivilegeEvent Privilege = "event"
	// OrgPrivilegeAudit 查看组织审计记录，只能与read搭配
	OrgPrivilegeAudit Privilege = "audit"
	// OrgPrivilegeConfig 修改组织配置（名称、描述、邮箱等）
	OrgPrivilegeConfig Privilege = "config"
	// OrgPrivilegeView 查看组织基本信息
	OrgPrivilegeView Privilege = "view"
)

// 活动权限项
const (
	// EventPrivilegeOperator 管理活动操作员（检票、审批等）
	EventPrivilegeOperator Privilege = "operator"
	// EventPrivilegeConfig 修改活动配置（名称、时间、地点等）
	EventPrivilegeConfig Privilege = "config"
	// EventPrivilegeAudit 查看活动审计记录，只能与read搭配
	EventPrivilegeAudit Privilege = "audit"
	// EventPrivilegeMember 管理活动成员
	EventPrivilegeMember Privilege = "member"
	// EventPrivilegeTicket 管理活动票务
	EventPrivilegeTicket Privilege = "ticket"
	// EventPrivilegeView 查看活动基本信息
	EventPrivilegeView Privilege = "view"
)

// PrivilegeAudit 审计权限项在两种资源下同名，校验规则共用
const PrivilegeAudit Privilege = "audit"

// 各资源类型的权限项集合。不同资源类型的权限项集合互相独立，
// 校验必须先按资源类型分发，严禁跨类型比较。
var (
	organizationPrivileges = map[Privilege]bool{
		OrgPrivilegeOperator: true,
		OrgPrivilegeEvent:    true,
		OrgPrivilegeAudit:    true,
		OrgPrivilegeConfig:   true,
		OrgPrivilegeView:     true,
	}

	eventPrivileges = map[Privilege]bool{
		EventPrivilegeOperator: true,
		EventPrivilegeConfig:   true,
		EventPrivilegeAudit:    true,
		EventPrivilegeMember:   true,
		EventPrivilegeTicket:   true,
		EventPrivilegeView:     true,
	}
)

// PrivilegesFor 返回指定资源类型的权限项集合
// 当前只有组织和活动支持授权，其他资源类型返回false
func PrivilegesFor(resourceType ResourceType) (map[Privilege]bool, bool) {
	switch resourceType {
	case ResourceTypeOrganization:
		return organizationPrivileges, true
	case ResourceTypeEvent:
		return eventPrivileges, true
	}
	return nil, false
}

// PermissionMap 权限映射，权限项到访问级别的映射，键唯一
type PermissionMap map[Privilege]AccessLevel

// Merge 合并权限映射，返回键的并集
// 两边都有的键以incoming的访问级别为准（后写覆盖，不做级别叠加）
func (m PermissionMap) Merge(incoming PermissionMap) PermissionMap {
	result := make(PermissionMap, len(m)+len(incoming))
	for privilege, level := range m {
		result[privilege] = level
	}
	for privilege, level := range incoming {
		result[privilege] = level
	}
	return result
}

// Diff 从权限映射中删除toRemove包含的键
// toRemove中不存在于当前映射的键静默忽略，访问级别不参与比较
func (m PermissionMap) Diff(toRemove PermissionMap) PermissionMap {
	result := make(PermissionMap, len(m))
	for privilege, level := range m {
		if _, removed := toRemove[privilege]; !removed {
			result[privilege] = level
		}
	}
	return result
}

// Equal 两个权限映射是否完全相等
func (m PermissionMap) Equal(other PermissionMap) bool {
	if len(m) != len(other) {
		return false
	}
	for privilege, level := range m {
		if other[privilege] != level {
			return false
		}
	}
	return true
}

// ValidatePermissionMap 校验权限映射是否对指定资源类型合法
//
// 校验规则（任一失败立即返回，不做部分写入）：
//  1. 资源类型必须是当前支持授权的类型（组织、活动）
//  2. 每个权限项必须属于该资源类型的权限项集合
//  3. 每个访问级别必须是已定义的级别
//  4. audit权限项只能搭配read
func ValidatePermissionMap(resourceType ResourceType, m PermissionMap) error {
	privileges, ok := PrivilegesFor(resourceType)
	if !ok {
		return errors.NewValidation(fmt.Sprintf("资源类型 %s 不支持授权", resourceType))
	}

	for privilege, level := range m {
		if !privileges[privilege] {
			return errors.NewValidation(fmt.Sprintf("权限项 %s 不属于资源类型 %s", privilege, resourceType))
		}
		if !level.Valid() {
			return errors.NewValidation(fmt.Sprintf("未知的访问级别 %s", level))
		}
		if privilege == PrivilegeAudit && level != AccessRead {
			return errors.NewValidation("audit权限项只能授予read级别")
		}
	}

	return nil
}

// Permission 权限记录
//
// 一个用户对一个资源的权限授予。对同一 (用户, 资源类型, 资源ID) 组合
// 至多存在一条记录，授予和撤销都是修改这条记录内的权限映射，而不是
// 新增行。唯一性由复合唯一索引保证。
type Permission struct {
	BaseModel
	UserID       uint           `gorm:"not null;index;uniqueIndex:idx_perm_user_resource" json:"user_id"`
	ResourceType ResourceType   `gorm:"size:30;not null;uniqueIndex:idx_perm_user_resource" json:"resource_type"`
	ResourceID   string         `gorm:"size:64;not null;uniqueIndex:idx_perm_user_resource" json:"resource_id"` // 资源外部ID
	Privileges   datatypes.JSON `gorm:"type:jsonb" json:"privileges"`                                           // 权限映射，JSON存储
	GrantedByID  *uint          `json:"granted_by_id"`
	GrantedAt    time.Time      `gorm:"not null" json:"granted_at"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"` // 为空则永不过期

	// 关联
	User      User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	GrantedBy *User `gorm:"foreignKey:GrantedByID" json:"granted_by,omitempty"`
}

// TableName 指定表名
func (Permission) TableName() string {
	return "user_permissions"
}

// Map 解码权限映射，领域层始终使用类型化的PermissionMap
func (p *Permission) Map() (PermissionMap, error) {
	if len(p.Privileges) == 0 {
		return PermissionMap{}, nil
	}
	var m PermissionMap
	if err := json.Unmarshal(p.Privileges, &m); err != nil {
		return nil, fmt.Errorf("解析权限映射失败: %v", err)
	}
	return m, nil
}

// SetMap 编码权限映射，序列化只发生在存储边界
func (p *Permission) SetMap(m PermissionMap) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("序列化权限映射失败: %v", err)
	}
	p.Privileges = datatypes.JSON(data)
	return nil
}

// Expired 权限是否已过期
func (p *Permission) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
