package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"conductor/internal/models"
	"conductor/pkg/errors"
)

// newMockDB 基于sqlmock构建gorm连接
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock
}

func TestGrantCreatesNewRecord(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPermissionService(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "organizations" WHERE external_id = $1`)).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_permissions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "user_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	grantedBy := uint(1)
	perm, err := svc.Grant(&grantedBy, 7,
		models.ResourceTypeOrganization, "org-1",
		models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite}, nil)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	got, err := perm.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got[models.OrgPrivilegeEvent] != models.AccessWrite {
		t.Fatalf("权限映射不符: %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGrantMergesIntoExistingRecord(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPermissionService(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "organizations" WHERE external_id = $1`)).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_permissions"`)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "resource_type", "resource_id", "privileges", "granted_at"}).
			AddRow(3, 7, "organization", "org-1", []byte(`{"view":"read"}`), time.Now()))
	mock.ExpectExec(`UPDATE "user_permissions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	grantedBy := uint(1)
	perm, err := svc.Grant(&grantedBy, 7,
		models.ResourceTypeOrganization, "org-1",
		models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite}, nil)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	got, err := perm.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := models.PermissionMap{
		models.OrgPrivilegeView:  models.AccessRead,
		models.OrgPrivilegeEvent: models.AccessWrite,
	}
	if !got.Equal(want) {
		t.Fatalf("合并结果不符: %v, want %v", got, want)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGrantValidationFailsBeforeAnyWrite(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPermissionService(db)

	grantedBy := uint(1)

	// 空映射
	_, err := svc.Grant(&grantedBy, 7,
		models.ResourceTypeOrganization, "org-1", models.PermissionMap{}, nil)
	if !errors.IsValidation(err) {
		t.Fatalf("空映射应返回校验错误，实际为 %v", err)
	}

	// audit只能与read搭配
	_, err = svc.Grant(&grantedBy, 7,
		models.ResourceTypeOrganization, "org-1",
		models.PermissionMap{models.OrgPrivilegeAudit: models.AccessWrite}, nil)
	if !errors.IsValidation(err) {
		t.Fatalf("audit+write应返回校验错误，实际为 %v", err)
	}

	// 校验失败不触碰存储
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("校验失败不应有任何数据库交互: %v", err)
	}
}

func TestGrantMissingTargetResource(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPermissionService(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "organizations" WHERE external_id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	grantedBy := uint(1)
	_, err := svc.Grant(&grantedBy, 7,
		models.ResourceTypeOrganization, "missing",
		models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite}, nil)
	if !errors.IsValidation(err) {
		t.Fatalf("目标资源缺失应返回校验错误，实际为 %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeRemovesKeys(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPermissionService(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_permissions"`)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "resource_type", "resource_id", "privileges", "granted_at"}).
			AddRow(3, 7, "organization", "org-1", []byte(`{"view":"read","event":"write"}`), time.Now()))
	mock.ExpectExec(`UPDATE "user_permissions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	perm, err := svc.Revoke(7, models.ResourceTypeOrganization, "org-1",
		models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite})
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	got, err := perm.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := models.PermissionMap{models.OrgPrivilegeView: models.AccessRead}
	if !got.Equal(want) {
		t.Fatalf("撤销结果不符: %v, want %v", got, want)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeMissingRecord(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPermissionService(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_permissions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.Revoke(7, models.ResourceTypeOrganization, "org-1",
		models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite})
	if !errors.IsNotFound(err) {
		t.Fatalf("缺失记录应返回NotFound，实际为 %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadPrincipalSkipsExpired(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPermissionService(db)

	past := time.Now().Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_permissions" WHERE user_id = $1`)).
		WithArgs(uint(7)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "resource_type", "resource_id", "privileges", "granted_at", "expires_at"}).
			AddRow(1, 7, "organization", "org-1", []byte(`{"view":"read"}`), time.Now(), nil).
			AddRow(2, 7, "event", "ev-1", []byte(`{"ticket":"write"}`), time.Now(), past))

	user := &models.User{Username: "alice", Role: models.RoleOperator}
	user.ID = 7

	principal, err := svc.LoadPrincipal(user)
	if err != nil {
		t.Fatalf("LoadPrincipal: %v", err)
	}

	if len(principal.Permissions) != 1 {
		t.Fatalf("过期记录不应进入快照: %v", principal.Permissions)
	}
	if principal.Permissions[0].ResourceExternalID != "org-1" {
		t.Fatalf("保留的记录不符: %v", principal.Permissions[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
