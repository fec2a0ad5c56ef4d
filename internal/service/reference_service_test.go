package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestReferenceTablesAreProtectedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createTicket(t, f.student, "Uses network")

	err := f.reference.DeleteCategory(ctx, f.staff, f.network.ID)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))
	err = f.reference.DeletePriority(ctx, f.staff, f.medium.ID)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))

	require.NoError(t, f.reference.DeleteCategory(ctx, f.staff, f.printing.ID))
	require.NoError(t, f.reference.DeletePriority(ctx, f.staff, f.low.ID))

	err = f.reference.DeleteCategory(ctx, f.staff, f.printing.ID)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))

	categories, err := f.reference.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestCreateReferenceEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reference.CreateCategory(ctx, f.student, "Hardware")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))

	category, err := f.reference.CreateCategory(ctx, f.staff, " Hardware ")
	require.NoError(t, err)
	assert.Equal(t, "Hardware", category.Name)

	_, err = f.reference.CreateCategory(ctx, f.staff, "network")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))

	priority, err := f.reference.CreatePriority(ctx, f.staff, PriorityInput{Name: "Urgent", Level: 4})
	require.NoError(t, err)
	assert.Equal(t, "#6b7280", priority.ColorCode)

	_, err = f.reference.CreatePriority(ctx, f.staff, PriorityInput{Name: "Critical", Level: 5, ColorCode: "red"})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidation))

	_, err = f.reference.CreatePriority(ctx, f.staff, PriorityInput{Name: "HIGH", Level: 5})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))

	priorities, err := f.reference.ListPriorities(ctx)
	require.NoError(t, err)
	require.Len(t, priorities, 4)
	assert.Equal(t, "Urgent", priorities[3].Name)
}
