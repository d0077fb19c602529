package gauntlet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundsight/prospector/pkg/landregistry"
)

func TestDedupeTitles_FirstWins(t *testing.T) {
	titles := []landregistry.Title{
		{TitleNumber: "NGL123456", Tenure: "Freehold"},
		{TitleNumber: "ngl123456", Tenure: "Leasehold"}, // same title, later query
		{TitleNumber: "SY789", Tenure: "Freehold"},
	}

	got := DedupeTitles(titles)
	require.Len(t, got, 2)
	assert.Equal(t, "NGL123456", got[0].TitleNumber)
	assert.Equal(t, "Freehold", got[0].Tenure)
	assert.Equal(t, "SY789", got[1].TitleNumber)
}

func TestDedupeTitles_DropsBlankTitleNumbers(t *testing.T) {
	titles := []landregistry.Title{
		{TitleNumber: ""},
		{TitleNumber: "   "},
		{TitleNumber: "NGL1"},
	}

	got := DedupeTitles(titles)
	require.Len(t, got, 1)
	assert.Equal(t, "NGL1", got[0].TitleNumber)
}

func TestDedupeTitles_Idempotent(t *testing.T) {
	titles := []landregistry.Title{
		{TitleNumber: "NGL1"},
		{TitleNumber: "NGL1"},
		{TitleNumber: "NGL2"},
	}

	once := DedupeTitles(titles)
	twice := DedupeTitles(once)
	assert.Equal(t, once, twice)
}

func TestDedupeTitles_Empty(t *testing.T) {
	assert.Empty(t, DedupeTitles(nil))
}
