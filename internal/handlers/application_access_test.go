package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/errors"
	"conductor/pkg/response"
)

func newPrincipalContext(t *testing.T, principal *services.Principal) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(middleware.ContextKeyPrincipal, principal)
	return c, w
}

// submitterPrincipal 提交申请时获得了对app-1的空权限记录
func submitterPrincipal() *services.Principal {
	return &services.Principal{
		UserID:   7,
		Username: "alice",
		Role:     models.RoleUser,
		Permissions: []services.PrincipalPermission{
			{
				ResourceType:       models.ResourceTypeApplication,
				ResourceExternalID: "app-1",
				Privileges:         models.PermissionMap{},
			},
		},
	}
}

func TestRequireApplicationAccess(t *testing.T) {
	tests := []struct {
		name          string
		principal     *services.Principal
		applicationID string
		want          bool
	}{
		{
			name:          "申请人本人放行",
			principal:     submitterPrincipal(),
			applicationID: "app-1",
			want:          true,
		},
		{
			name:          "申请人访问他人申请拒绝",
			principal:     submitterPrincipal(),
			applicationID: "app-2",
			want:          false,
		},
		{
			name: "无权限记录的用户拒绝",
			principal: &services.Principal{
				UserID: 8, Username: "bob", Role: models.RoleUser,
			},
			applicationID: "app-1",
			want:          false,
		},
		{
			name: "管理员无需权限记录",
			principal: &services.Principal{
				UserID: 1, Username: "admin", Role: models.RoleAdmin,
			},
			applicationID: "app-1",
			want:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newPrincipalContext(t, tt.principal)

			got := requireApplicationAccess(c, tt.applicationID)
			if got != tt.want {
				t.Fatalf("访问判定不符: got %v, want %v", got, tt.want)
			}
			if !tt.want {
				var resp response.Response
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("解析响应失败: %v", err)
				}
				if resp.Code != errors.CodeForbidden {
					t.Fatalf("拒绝时业务码应为%d，实际为 %d", errors.CodeForbidden, resp.Code)
				}
			}
		})
	}
}
