package imagestack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngireduce/internal/models"
)

func TestAppendRecordsShapeFromFirstFrame(t *testing.T) {
	s := New()
	assert.True(t, s.IsEmpty())
	assert.False(t, s.Shape().Known())

	require.NoError(t, s.Append(models.NewFrame(4, 6), "frame_1"))
	assert.False(t, s.IsEmpty())
	assert.Equal(t, models.Shape{Height: 4, Width: 6}, s.Shape())
	assert.Equal(t, 1, s.Len())
}

func TestAppendRejectsShapeMismatch(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(models.NewFrame(4, 4), "frame_1"))

	err := s.Append(models.NewFrame(4, 5), "frame_2")
	assert.ErrorIs(t, err, ErrShapeMismatch)

	err = s.Append(models.NewFrame(3, 4), "frame_3")
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// failed appends must not grow the stack
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"frame_1"}, s.SourceNames())
}

func TestSourceNamesStayParallel(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(models.NewFrame(2, 2), "a.csv"))
	require.NoError(t, s.Append(models.NewFrame(2, 2), "b.csv"))

	assert.Equal(t, []string{"a.csv", "b.csv"}, s.SourceNames())
	assert.Equal(t, s.Len(), len(s.SourceNames()))
}

func TestReplaceFrames(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(models.NewFrame(4, 4), "a"))
	require.NoError(t, s.Append(models.NewFrame(4, 4), "b"))

	// shape may change wholesale, e.g. after a crop
	require.NoError(t, s.ReplaceFrames([]*models.Frame{
		models.NewFrame(2, 2), models.NewFrame(2, 2),
	}))
	assert.Equal(t, models.Shape{Height: 2, Width: 2}, s.Shape())

	// count must be preserved
	err := s.ReplaceFrames([]*models.Frame{models.NewFrame(2, 2)})
	assert.Error(t, err)

	// replacements must agree with each other
	err = s.ReplaceFrames([]*models.Frame{
		models.NewFrame(2, 2), models.NewFrame(3, 3),
	})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// provenance survives replacement
	assert.Equal(t, []string{"a", "b"}, s.SourceNames())
}
