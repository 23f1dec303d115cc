package models

import (
	"testing"

	"conductor/pkg/errors"
)

func newPendingApplication() *Application {
	return NewApplication("app-1", ResourceTypeOrganization, "org-1", 7, "{}")
}

func TestApplicationApprove(t *testing.T) {
	app := newPendingApplication()

	if err := app.Approve(3); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !app.IsApproved() {
		t.Fatalf("状态应为approved，实际为 %s", app.Status)
	}
	if app.ProcessedByID == nil || *app.ProcessedByID != 3 {
		t.Fatalf("处理人未记录")
	}
	if app.ProcessedAt == nil {
		t.Fatalf("处理时间未记录")
	}
}

func TestApplicationRejectRecordsReason(t *testing.T) {
	app := newPendingApplication()

	if err := app.Reject(3, "材料不完整"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if app.Status != ApplicationStatusRejected {
		t.Fatalf("状态应为rejected，实际为 %s", app.Status)
	}
	if len(app.Comments) != 1 || app.Comments[0].Content != "材料不完整" {
		t.Fatalf("拒绝理由应记录为评论: %v", app.Comments)
	}
}

func TestApplicationCancel(t *testing.T) {
	app := newPendingApplication()

	if err := app.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if app.Status != ApplicationStatusCancelled {
		t.Fatalf("状态应为cancelled，实际为 %s", app.Status)
	}
}

func TestApplicationTerminalStates(t *testing.T) {
	terminals := []struct {
		name    string
		prepare func(*Application)
	}{
		{"approved", func(a *Application) { _ = a.Approve(3) }},
		{"rejected", func(a *Application) { _ = a.Reject(3, "不符合要求") }},
		{"cancelled", func(a *Application) { _ = a.Cancel() }},
	}

	for _, terminal := range terminals {
		t.Run(terminal.name, func(t *testing.T) {
			app := newPendingApplication()
			terminal.prepare(app)

			if !app.IsFinal() {
				t.Fatalf("%s 应为终结状态", terminal.name)
			}

			// 终结状态不接受任何后续转移
			if err := app.Approve(9); !errors.IsStateTransition(err) {
				t.Fatalf("Approve应返回状态转移错误，实际为 %v", err)
			}
			if err := app.Reject(9, "理由"); !errors.IsStateTransition(err) {
				t.Fatalf("Reject应返回状态转移错误，实际为 %v", err)
			}
			if err := app.Cancel(); !errors.IsStateTransition(err) {
				t.Fatalf("Cancel应返回状态转移错误，实际为 %v", err)
			}
		})
	}
}

func TestApplicationCommentsOnFinalState(t *testing.T) {
	app := newPendingApplication()
	if err := app.Approve(3); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// 终结状态的申请仍可追加评论
	app.PutComment(5, "后续材料已归档")
	if len(app.Comments) != 1 {
		t.Fatalf("评论未追加")
	}
}

func TestApplicationCommentOrder(t *testing.T) {
	app := newPendingApplication()
	app.PutComment(1, "第一条")
	app.PutComment(2, "第二条")

	if len(app.Comments) != 2 {
		t.Fatalf("评论数量不对: %d", len(app.Comments))
	}
	if app.Comments[0].Content != "第一条" || app.Comments[1].Content != "第二条" {
		t.Fatalf("评论应保持追加顺序")
	}
}
