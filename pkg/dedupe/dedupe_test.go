package dedupe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/chatexport/internal/models"
)

func msg(role models.Role, content string, pos int) models.Message {
	return models.Message{Role: role, Content: content, Position: pos}
}

func TestFingerprint(t *testing.T) {
	short := strings.Repeat("a", 300)
	assert.Equal(t, short, Fingerprint(short))

	long := strings.Repeat("h", 200) + strings.Repeat("m", 50) + strings.Repeat("t", 100)
	assert.Equal(t, strings.Repeat("h", 200)+strings.Repeat("t", 100)+"350", Fingerprint(long))
}

func TestFingerprintCountsRunes(t *testing.T) {
	content := strings.Repeat("é", 301)
	fp := Fingerprint(content)
	assert.Equal(t, strings.Repeat("é", 300)+"301", fp)
}

func TestDedupeKeepsEarliest(t *testing.T) {
	messages := []models.Message{
		msg(models.RoleUser, "hello", 0),
		msg(models.RoleAssistant, "hi", 1),
		msg(models.RoleUser, "hello", 4),
	}

	out := Dedupe(messages)
	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Position)
	assert.Equal(t, 1, out[1].Position)
}

func TestDedupeRoleMatters(t *testing.T) {
	messages := []models.Message{
		msg(models.RoleUser, "same", 0),
		msg(models.RoleAssistant, "same", 1),
	}

	assert.Len(t, Dedupe(messages), 2)
}

func TestDedupeSampledCollision(t *testing.T) {
	head := strings.Repeat("H", 200)
	tail := strings.Repeat("T", 100)
	a := head + strings.Repeat("x", 80) + tail
	b := head + strings.Repeat("y", 80) + tail
	require.NotEqual(t, a, b)

	out := Dedupe([]models.Message{
		msg(models.RoleAssistant, a, 0),
		msg(models.RoleAssistant, b, 1),
	})
	require.Len(t, out, 1)
	assert.Equal(t, a, out[0].Content)
}

func TestDedupeLengthGuard(t *testing.T) {
	head := strings.Repeat("H", 200)
	tail := strings.Repeat("T", 100)

	out := Dedupe([]models.Message{
		msg(models.RoleAssistant, head+"middle"+tail, 0),
		msg(models.RoleAssistant, head+"longer middle"+tail, 1),
	})
	assert.Len(t, out, 2)
}

func TestDedupeIdempotent(t *testing.T) {
	messages := []models.Message{
		msg(models.RoleUser, "a", 0),
		msg(models.RoleAssistant, "b", 1),
		msg(models.RoleUser, "a", 2),
		msg(models.RoleAssistant, "c", 3),
		msg(models.RoleAssistant, "b", 4),
	}

	once := Dedupe(messages)
	assert.Equal(t, once, Dedupe(once))

	var positions []int
	for _, m := range once {
		positions = append(positions, m.Position)
	}
	assert.Equal(t, []int{0, 1, 3}, positions)
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}
