package services

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"conductor/internal/models"
	"conductor/pkg/errors"
)

func TestRegisterRejectsDuplicatePending(t *testing.T) {
	db, mock := newMockDB(t)
	manager := NewApplicationManager(db, models.NewDefaultExternalIDProvider())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "applications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := manager.Register(models.ResourceTypeOrganization, "org-1", 7, "{}")
	if !errors.IsConflict(err) {
		t.Fatalf("重复待处理申请应返回冲突错误，实际为 %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	db, mock := newMockDB(t)
	manager := NewApplicationManager(db, models.NewDefaultExternalIDProvider())

	// 理由校验在任何查询之前
	_, err := manager.Reject("app-1", 3, "   ")
	if !errors.IsValidation(err) {
		t.Fatalf("空白理由应返回校验错误，实际为 %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("理由校验失败不应有数据库交互: %v", err)
	}
}

func TestAddCommentRequiresContent(t *testing.T) {
	db, mock := newMockDB(t)
	manager := NewApplicationManager(db, models.NewDefaultExternalIDProvider())

	_, err := manager.AddComment("app-1", 3, "")
	if !errors.IsValidation(err) {
		t.Fatalf("空评论应返回校验错误，实际为 %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("内容校验失败不应有数据库交互: %v", err)
	}
}
