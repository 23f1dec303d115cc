package services

import (
	"conductor/internal/models"
	"conductor/pkg/errors"
)

// Principal 授权主体
//
// 认证层在请求进入时构建的用户快照，评估链只依赖这份快照，
// 不接触网络、请求头或令牌格式。
type Principal struct {
	UserID      uint
	ExternalID  string
	Username    string
	Role        string
	Permissions []PrincipalPermission
}

// PrincipalPermission 主体持有的一条资源权限
type PrincipalPermission struct {
	ResourceType       models.ResourceType
	ResourceExternalID string
	Privileges         models.PermissionMap
}

// Evaluator 权限评估器，提供单项布尔检查
type Evaluator struct{}

// NewEvaluator 创建权限评估器
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// HasRole 角色检查，按相等比较
func (e *Evaluator) HasRole(principal *Principal, role string) bool {
	return principal.Role == role
}

// HasPermission 资源权限检查
//
// 在主体的权限快照中查找资源外部ID相等的记录：
//   - 找不到记录则失败
//   - 找到记录且required为空，视为"拥有任意权限即可"，成功
//   - 找到记录且required非空，要求记录的权限映射对required中的
//     每一对 (权限项, 访问级别) 均精确包含。访问级别不做层级比较
func (e *Evaluator) HasPermission(principal *Principal, targetResourceExternalID string, targetType models.ResourceType, required models.PermissionMap) bool {
	for _, p := range principal.Permissions {
		if p.ResourceExternalID != targetResourceExternalID {
			continue
		}

		if len(required) == 0 {
			return true
		}

		for privilege, level := range required {
			held, ok := p.Privileges[privilege]
			if !ok || held != level {
				return false
			}
		}
		return true
	}
	return false
}

// logicalOperator 检查之间的逻辑关系
type logicalOperator int

const (
	operatorAnd logicalOperator = iota
	operatorOr
)

// CheckFunc 单项权限检查函数
type CheckFunc func(principal *Principal) bool

type permissionCheck struct {
	check    CheckFunc
	operator logicalOperator
}

// EvaluatorChain 权限评估链
//
// 按序组合若干布尔检查，每项检查标记为AND或OR，外加可配置的
// 管理员直通开关（默认开启，可显式关闭或拒绝）。
//
// 评估顺序：
//  1. 管理员直通开启且未被显式拒绝时，ADMIN角色直接通过，不执行任何检查
//  2. 链为空时通过（空链放行是有意保留的默认行为）
//  3. 从左到右折叠：连续的OR检查归为一组做或运算，遇到AND检查
//     （或链结束）时将悬挂的OR组结果与累计值做与运算，累计值初始为true
//  4. 最终为false时返回AccessDeniedError
type EvaluatorChain struct {
	evaluator             *Evaluator
	checks                []permissionCheck
	allowAdminByDefault   bool
	adminExplicitlyDenied bool
}

// NewEvaluatorChain 创建评估链，管理员直通默认开启
func NewEvaluatorChain(evaluator *Evaluator) *EvaluatorChain {
	return &EvaluatorChain{
		evaluator:           evaluator,
		allowAdminByDefault: true,
	}
}

// Add 追加AND检查
func (c *EvaluatorChain) Add(check CheckFunc) *EvaluatorChain {
	c.checks = append(c.checks, permissionCheck{check: check, operator: operatorAnd})
	return c
}

// Or 追加OR检查
func (c *EvaluatorChain) Or(check CheckFunc) *EvaluatorChain {
	c.checks = append(c.checks, permissionCheck{check: check, operator: operatorOr})
	return c
}

// AddRole 追加AND角色检查
func (c *EvaluatorChain) AddRole(role string) *EvaluatorChain {
	return c.Add(func(p *Principal) bool {
		return c.evaluator.HasRole(p, role)
	})
}

// OrRole 追加OR角色检查
func (c *EvaluatorChain) OrRole(role string) *EvaluatorChain {
	return c.Or(func(p *Principal) bool {
		return c.evaluator.HasRole(p, role)
	})
}

// AddPermission 追加AND资源权限检查
func (c *EvaluatorChain) AddPermission(targetResourceExternalID string, targetType models.ResourceType, required models.PermissionMap) *EvaluatorChain {
	return c.Add(func(p *Principal) bool {
		return c.evaluator.HasPermission(p, targetResourceExternalID, targetType, required)
	})
}

// OrPermission 追加OR资源权限检查
func (c *EvaluatorChain) OrPermission(targetResourceExternalID string, targetType models.ResourceType, required models.PermissionMap) *EvaluatorChain {
	return c.Or(func(p *Principal) bool {
		return c.evaluator.HasPermission(p, targetResourceExternalID, targetType, required)
	})
}

// AddGroup 追加AND子链，整条子链作为一项检查
func (c *EvaluatorChain) AddGroup(sub *EvaluatorChain) *EvaluatorChain {
	return c.Add(sub.evaluateInternal)
}

// OrGroup 追加OR子链
func (c *EvaluatorChain) OrGroup(sub *EvaluatorChain) *EvaluatorChain {
	return c.Or(sub.evaluateInternal)
}

// DenyAdmin 显式拒绝管理员直通，ADMIN也必须通过检查
func (c *EvaluatorChain) DenyAdmin() *EvaluatorChain {
	c.adminExplicitlyDenied = true
	c.allowAdminByDefault = false
	return c
}

// DisableAdminBypass 关闭管理员直通
func (c *EvaluatorChain) DisableAdminBypass() *EvaluatorChain {
	c.allowAdminByDefault = false
	return c
}

// Evaluate 执行评估，失败返回AccessDeniedError
func (c *EvaluatorChain) Evaluate(principal *Principal) error {
	if c.evaluateInternal(principal) {
		return nil
	}
	return &errors.AccessDeniedError{Reason: "权限评估未通过"}
}

// evaluateInternal 内部评估，只返回布尔值不抛错误
func (c *EvaluatorChain) evaluateInternal(principal *Principal) bool {
	// 管理员直通优先，除非被显式拒绝
	if c.allowAdminByDefault && !c.adminExplicitlyDenied && c.isAdmin(principal) {
		return true
	}

	// 空链放行
	if len(c.checks) == 0 {
		return true
	}

	return c.evaluateChecks(principal)
}

// evaluateChecks 从左到右折叠检查项
func (c *EvaluatorChain) evaluateChecks(principal *Principal) bool {
	result := true // AND累计值初始为true
	hasOrGroup := false
	orGroupResult := false

	for _, check := range c.checks {
		checkResult := check.check(principal)

		if check.operator == operatorAnd {
			// 先结算悬挂的OR组
			if hasOrGroup {
				result = result && orGroupResult
				hasOrGroup = false
				orGroupResult = false
			}
			result = result && checkResult
		} else {
			if !hasOrGroup {
				hasOrGroup = true
				orGroupResult = checkResult
			} else {
				orGroupResult = orGroupResult || checkResult
			}
		}
	}

	// 链结束时结算最后一个OR组
	if hasOrGroup {
		result = result && orGroupResult
	}

	return result
}

func (c *EvaluatorChain) isAdmin(principal *Principal) bool {
	return principal != nil && principal.Role == models.RoleAdmin
}
