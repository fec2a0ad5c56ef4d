package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTicketNumber(t *testing.T) {
	assert.Equal(t, "TKT-00001", FormatTicketNumber(1))
	assert.Equal(t, "TKT-00042", FormatTicketNumber(42))
	assert.Equal(t, "TKT-123456", FormatTicketNumber(123456))
}

func TestClassifyTransition(t *testing.T) {
	tests := []struct {
		old, new TicketStatus
		want     HistoryAction
	}{
		{TicketStatusPending, TicketStatusInProgress, HistoryActionUpdated},
		{TicketStatusInProgress, TicketStatusResolved, HistoryActionResolved},
		{TicketStatusResolved, TicketStatusClosed, HistoryActionClosed},
		{TicketStatusResolved, TicketStatusPending, HistoryActionReopened},
		{TicketStatusClosed, TicketStatusPending, HistoryActionReopened},
		{TicketStatusInProgress, TicketStatusPending, HistoryActionUpdated},
		{TicketStatusClosed, TicketStatusInProgress, HistoryActionUpdated},
	}
	for _, tt := range tests {
		t.Run(string(tt.old)+"->"+string(tt.new), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTransition(tt.old, tt.new))
		})
	}
}

func TestTags(t *testing.T) {
	assert.Equal(t, "in-progress", StatusTag(TicketStatusInProgress))
	assert.Equal(t, "resolved", StatusTag(TicketStatusResolved))

	assert.Equal(t, "low", PriorityTag("Low"))
	assert.Equal(t, "high", PriorityTag(" URGENT "))
	assert.Equal(t, "high", PriorityTag("high"))
	assert.Equal(t, "medium", PriorityTag("Medium"))
	assert.Equal(t, "medium", PriorityTag("whatever"))
	assert.Equal(t, "medium", PriorityTag(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc…", Truncate("abcdef", 3))
	assert.Equal(t, "żół…", Truncate("żółty", 3))
}

func TestNewAttachmentRequiresSingleParent(t *testing.T) {
	att, err := NewAttachment(AttachmentParentComment, 7, 3, "ticket_attachments/a.png", "image/png", 10)
	require.NoError(t, err)
	assert.Equal(t, AttachmentParentComment, att.ParentKind)
	assert.Equal(t, int64(7), att.ParentID)

	_, err = NewAttachment("invoice", 7, 3, "x", "image/png", 10)
	assert.ErrorIs(t, err, ErrInvalidAttachmentParent)

	_, err = NewAttachment(AttachmentParentTicket, 0, 3, "x", "image/png", 10)
	assert.ErrorIs(t, err, ErrInvalidAttachmentParent)
}

func TestStatusNotice(t *testing.T) {
	n := StatusNotice(5, "Printer jam", TicketStatusResolved)
	assert.Equal(t, "Ticket resolved", n.Title)
	assert.Equal(t, `Your ticket "Printer jam" has been marked as resolved.`, n.Message)
	assert.Equal(t, NotificationSuccess, n.Type)
	assert.Equal(t, "status_resolved", n.Event)
	assert.Equal(t, "/tickets/5", n.ActionURL)

	n = StatusNotice(5, "Printer jam", TicketStatusInProgress)
	assert.Equal(t, "Ticket in progress", n.Title)
	assert.Equal(t, NotificationInfo, n.Type)
}

func TestCommentNoticePreview(t *testing.T) {
	long := make([]rune, 120)
	for i := range long {
		long[i] = 'x'
	}
	n := CommentNotice(9, "VPN", string(long))
	assert.Equal(t, "New comment on your ticket", n.Title)
	assert.Equal(t, `"VPN": `+string(long[:80])+"…", n.Message)
}

func TestFeedbackEditable(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fb := &Feedback{CreatedAt: created}
	assert.True(t, fb.Editable(created.Add(23*time.Hour)))
	assert.False(t, fb.Editable(created.Add(25*time.Hour)))
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, TrendUp, TrendOf(12.5))
	assert.Equal(t, TrendDown, TrendOf(-3))
	assert.Equal(t, TrendNeutral, TrendOf(0))
}
