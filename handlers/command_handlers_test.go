package handlers

import (
	"errors"
	"testing"
	"time"

	"discord-automod/automod"
	"discord-automod/classifier"
	"discord-automod/models"
	"discord-automod/rules"

	"github.com/stretchr/testify/assert"
)

func testSnapshot() *automod.Snapshot {
	return &automod.Snapshot{
		Version:    3,
		LoadedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Rules:      rules.New("", rules.Bucket{Token: "1h", Terms: []string{"badword", "other"}}),
		Templates:  map[string]models.DMTemplate{"mute": {}},
		Classifier: classifier.Disabled{},
	}
}

func TestReloadContent(t *testing.T) {
	t.Parallel()

	ok := reloadContent(testSnapshot(), nil)
	assert.Contains(t, ok, "version 3")
	assert.Contains(t, ok, "2 banned terms")
	assert.Contains(t, ok, "1 templates")
	assert.Contains(t, ok, "classifier disabled")

	failed := reloadContent(nil, errors.New("bad json"))
	assert.Contains(t, failed, "previous configuration stays active")
	assert.Contains(t, failed, "bad json")
}

func TestViolationsContent(t *testing.T) {
	t.Parallel()

	empty := violationsContent("42", models.ViolationRecord{}, 30*time.Minute)
	assert.Contains(t, empty, "<@42>")
	assert.Contains(t, empty, "last 30m0s: 0")
	assert.Contains(t, empty, "Warned terms: none")

	rec := models.ViolationRecord{
		StrikeTimestamps: []int64{1, 2},
		WarnedTerms:      []string{"badword", "slur"},
	}
	full := violationsContent("42", rec, 30*time.Minute)
	assert.Contains(t, full, "last 30m0s: 2")
	assert.Contains(t, full, "Warned terms (2): badword, slur")
}

func TestStatusContent(t *testing.T) {
	t.Parallel()

	st := models.StoreStatus{Driver: "sqlite", Records: 7}
	out := statusContent(testSnapshot(), st)
	assert.Contains(t, out, "v3 loaded 2024-03-01T12:00:00Z")
	assert.Contains(t, out, "sqlite, 7 records")
	assert.NotContains(t, out, "last compaction")

	st.LastCompaction = time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	st.PrunedStrikes = 5
	out = statusContent(testSnapshot(), st)
	assert.Contains(t, out, "last compaction 2024-03-01T13:00:00Z (5 strikes pruned in total)")
}
