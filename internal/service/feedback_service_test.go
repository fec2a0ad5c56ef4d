package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestFeedbackRequiresResolvedTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.student, "Pending one")

	_, err := f.feedback.SubmitFeedback(ctx, f.student, ticket.ID, FeedbackInput{Rating: 4})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidState))
	assert.Empty(t, f.store.historyRows(ticket.ID))

	f.setStatus(t, ticket.ID, domain.TicketStatusResolved)

	_, err = f.feedback.SubmitFeedback(ctx, f.student, ticket.ID, FeedbackInput{Rating: 6})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidation))

	_, err = f.feedback.SubmitFeedback(ctx, f.staff, ticket.ID, FeedbackInput{Rating: 3})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))

	_, err = f.feedback.SubmitFeedback(ctx, f.other, ticket.ID, FeedbackInput{Rating: 3})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))

	fb, err := f.feedback.SubmitFeedback(ctx, f.student, ticket.ID, FeedbackInput{Rating: 3, Comments: "ok", Attachment: pngFile(2)})
	require.NoError(t, err)
	assert.Len(t, fb.Attachments, 1)
	assert.Equal(t, domain.TicketStatusClosed, f.store.rawTicket(ticket.ID).Status)
	assert.Len(t, f.store.historyRows(ticket.ID), 2)

	pushes := f.dispatcher.onTopic(events.TopicFeedbackUpdates)
	require.Len(t, pushes, 1)
	assert.Equal(t, events.ActionSubmitted, pushes[0].Action)
}

func TestFeedbackEditWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.student, "Windowed")
	f.setStatus(t, ticket.ID, domain.TicketStatusResolved)
	fb, err := f.feedback.SubmitFeedback(ctx, f.student, ticket.ID, FeedbackInput{Rating: 2})
	require.NoError(t, err)

	f.clock.Advance(23 * time.Hour)
	updated, err := f.feedback.UpdateFeedback(ctx, f.student, ticket.ID, fb.ID, FeedbackUpdateInput{Rating: ptr(4), Comments: ptr("better now")})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	assert.Equal(t, "better now", updated.Comments)

	_, err = f.feedback.UpdateFeedback(ctx, f.staff, ticket.ID, fb.ID, FeedbackUpdateInput{Rating: ptr(1)})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))

	f.clock.Advance(2 * time.Hour)
	_, err = f.feedback.UpdateFeedback(ctx, f.student, ticket.ID, fb.ID, FeedbackUpdateInput{Rating: ptr(5)})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidState))

	err = f.feedback.DeleteFeedback(ctx, f.student, ticket.ID, fb.ID)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidState))
}

func TestDeleteFeedbackKeepsTicketClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.student, "Delete feedback")
	f.setStatus(t, ticket.ID, domain.TicketStatusResolved)
	fb, err := f.feedback.SubmitFeedback(ctx, f.student, ticket.ID, FeedbackInput{Rating: 1})
	require.NoError(t, err)

	err = f.feedback.DeleteFeedback(ctx, f.student, ticket.ID, fb.ID+100)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))

	require.NoError(t, f.feedback.DeleteFeedback(ctx, f.student, ticket.ID, fb.ID))
	_, err = f.feedback.GetFeedback(ctx, f.student, ticket.TicketNumber)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))
	assert.Equal(t, domain.TicketStatusClosed, f.store.rawTicket(ticket.ID).Status)

	// The ticket is closed now, so a new submission is out of state.
	_, err = f.feedback.SubmitFeedback(ctx, f.student, ticket.ID, FeedbackInput{Rating: 5})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidState))
}
