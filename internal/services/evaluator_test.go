package services

import (
	"testing"

	"conductor/internal/models"
	"conductor/pkg/errors"
)

func adminPrincipal() *Principal {
	return &Principal{UserID: 1, Role: models.RoleAdmin}
}

func operatorPrincipal(perms ...PrincipalPermission) *Principal {
	return &Principal{UserID: 2, Role: models.RoleOperator, Permissions: perms}
}

func orgPermission(externalID string, m models.PermissionMap) PrincipalPermission {
	return PrincipalPermission{
		ResourceType:       models.ResourceTypeOrganization,
		ResourceExternalID: externalID,
		Privileges:         m,
	}
}

func TestHasRole(t *testing.T) {
	e := NewEvaluator()

	if !e.HasRole(adminPrincipal(), models.RoleAdmin) {
		t.Fatalf("角色相等应通过")
	}
	if e.HasRole(operatorPrincipal(), models.RoleAdmin) {
		t.Fatalf("角色不等应失败")
	}
}

func TestHasPermission(t *testing.T) {
	e := NewEvaluator()
	held := models.PermissionMap{
		models.OrgPrivilegeEvent: models.AccessWrite,
		models.OrgPrivilegeAudit: models.AccessRead,
	}
	principal := operatorPrincipal(orgPermission("org-1", held))

	tests := []struct {
		name     string
		target   string
		required models.PermissionMap
		want     bool
	}{
		{
			name:     "精确匹配通过",
			target:   "org-1",
			required: models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite},
			want:     true,
		},
		{
			name:     "多项要求全部满足",
			target:   "org-1",
			required: held,
			want:     true,
		},
		{
			name:     "访问级别不同视为不满足",
			target:   "org-1",
			required: models.PermissionMap{models.OrgPrivilegeEvent: models.AccessRead},
			want:     false,
		},
		{
			name:     "write不隐含read",
			target:   "org-1",
			required: models.PermissionMap{models.OrgPrivilegeAudit: models.AccessWrite},
			want:     false,
		},
		{
			name:     "持有记录但缺少权限项",
			target:   "org-1",
			required: models.PermissionMap{models.OrgPrivilegeConfig: models.AccessWrite},
			want:     false,
		},
		{
			name:     "无对应资源记录",
			target:   "org-2",
			required: models.PermissionMap{},
			want:     false,
		},
		{
			name:     "空要求只需持有记录",
			target:   "org-1",
			required: models.PermissionMap{},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.HasPermission(principal, tt.target, models.ResourceTypeOrganization, tt.required)
			if got != tt.want {
				t.Fatalf("HasPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChainEmptyAllows(t *testing.T) {
	chain := NewEvaluatorChain(NewEvaluator())

	if err := chain.Evaluate(operatorPrincipal()); err != nil {
		t.Fatalf("空链应放行: %v", err)
	}
}

func TestChainAdminBypass(t *testing.T) {
	alwaysFalse := func(p *Principal) bool { return false }

	t.Run("默认直通", func(t *testing.T) {
		chain := NewEvaluatorChain(NewEvaluator()).Add(alwaysFalse)
		if err := chain.Evaluate(adminPrincipal()); err != nil {
			t.Fatalf("管理员应直通失败的检查: %v", err)
		}
	})

	t.Run("显式拒绝后不直通", func(t *testing.T) {
		chain := NewEvaluatorChain(NewEvaluator()).DenyAdmin().Add(alwaysFalse)
		if err := chain.Evaluate(adminPrincipal()); !errors.IsAccessDenied(err) {
			t.Fatalf("DenyAdmin后管理员应被拒绝，实际为 %v", err)
		}
	})

	t.Run("关闭直通后管理员走检查", func(t *testing.T) {
		chain := NewEvaluatorChain(NewEvaluator()).DisableAdminBypass().
			Add(func(p *Principal) bool { return true })
		if err := chain.Evaluate(adminPrincipal()); err != nil {
			t.Fatalf("检查通过时管理员不应被拒绝: %v", err)
		}
	})

	t.Run("非管理员不享受直通", func(t *testing.T) {
		chain := NewEvaluatorChain(NewEvaluator()).Add(alwaysFalse)
		if err := chain.Evaluate(operatorPrincipal()); !errors.IsAccessDenied(err) {
			t.Fatalf("非管理员应被拒绝，实际为 %v", err)
		}
	})
}

func TestChainFoldSemantics(t *testing.T) {
	pass := func(p *Principal) bool { return true }
	fail := func(p *Principal) bool { return false }

	tests := []struct {
		name  string
		build func(*EvaluatorChain) *EvaluatorChain
		want  bool
	}{
		{
			name:  "单个AND通过",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Add(pass) },
			want:  true,
		},
		{
			name:  "单个AND失败",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Add(fail) },
			want:  false,
		},
		{
			name:  "AND与AND",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Add(pass).Add(fail) },
			want:  false,
		},
		{
			name:  "OR组内一项通过即可",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Or(fail).Or(pass) },
			want:  true,
		},
		{
			name:  "OR组全败",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Or(fail).Or(fail) },
			want:  false,
		},
		{
			name:  "AND后接OR组",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Add(pass).Or(fail).Or(pass) },
			want:  true,
		},
		{
			name:  "AND失败时OR组无法挽回",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Add(fail).Or(pass).Or(pass) },
			want:  false,
		},
		{
			name:  "OR组后接AND",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Or(pass).Or(fail).Add(pass) },
			want:  true,
		},
		{
			name:  "OR组通过但随后的AND失败",
			build: func(c *EvaluatorChain) *EvaluatorChain { return c.Or(pass).Or(pass).Add(fail) },
			want:  false,
		},
		{
			name: "两个OR组各自独立",
			build: func(c *EvaluatorChain) *EvaluatorChain {
				return c.Or(fail).Or(pass).Add(pass).Or(fail).Or(fail)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := tt.build(NewEvaluatorChain(NewEvaluator()))
			err := chain.Evaluate(operatorPrincipal())
			if tt.want && err != nil {
				t.Fatalf("应通过，实际为 %v", err)
			}
			if !tt.want && !errors.IsAccessDenied(err) {
				t.Fatalf("应拒绝，实际为 %v", err)
			}
		})
	}
}

func TestChainGroups(t *testing.T) {
	pass := func(p *Principal) bool { return true }
	fail := func(p *Principal) bool { return false }

	// 子链作为整体参与外层折叠
	sub := NewEvaluatorChain(NewEvaluator()).DisableAdminBypass().Or(fail).Or(pass)
	chain := NewEvaluatorChain(NewEvaluator()).Add(pass).AddGroup(sub)

	if err := chain.Evaluate(operatorPrincipal()); err != nil {
		t.Fatalf("子链通过时外层应通过: %v", err)
	}

	failingSub := NewEvaluatorChain(NewEvaluator()).DisableAdminBypass().Add(fail)
	chain = NewEvaluatorChain(NewEvaluator()).Add(pass).AddGroup(failingSub)

	if err := chain.Evaluate(operatorPrincipal()); !errors.IsAccessDenied(err) {
		t.Fatalf("子链失败时外层应拒绝，实际为 %v", err)
	}
}

func TestChainRoleAndPermissionHelpers(t *testing.T) {
	principal := operatorPrincipal(orgPermission("org-1",
		models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite}))

	chain := NewEvaluatorChain(NewEvaluator()).
		AddRole(models.RoleOperator).
		AddPermission("org-1", models.ResourceTypeOrganization,
			models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite})

	if err := chain.Evaluate(principal); err != nil {
		t.Fatalf("角色与权限都满足时应通过: %v", err)
	}

	chain = NewEvaluatorChain(NewEvaluator()).
		AddRole(models.RoleAdmin).
		OrPermission("org-1", models.ResourceTypeOrganization,
			models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite})

	// AddRole失败后，OR组的通过无法挽回AND累计值
	if err := chain.Evaluate(principal); !errors.IsAccessDenied(err) {
		t.Fatalf("AND失败不被OR组挽回，实际为 %v", err)
	}
}
