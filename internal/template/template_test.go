package template_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takeda-juku/tensaku/internal/template"
)

func writeMaster(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadAllSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "good.json", `{"meta":{"id":"2024_4_2"},"common_criteria":[{"rule":"x"}],"sub_questions":{"A":{"max":12}}}`)
	writeMaster(t, dir, "no_id.json", `{"meta":{}}`)
	writeMaster(t, dir, "broken.json", `{not json`)
	writeMaster(t, dir, "ignored.txt", `not a master`)

	masters, err := template.LoadAll(dir, nil)
	require.NoError(t, err)
	require.Len(t, masters, 1)
	assert.Equal(t, "2024_4_2", masters[0].Meta.ID)
	assert.Equal(t, []string{"2024_4_2"}, template.IDs(masters))
}

func TestLoadAllMissingDir(t *testing.T) {
	masters, err := template.LoadAll(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Empty(t, masters)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "2024_4_2", template.FirstLine("\n  2024_4_2  \nfoo"))
	assert.Equal(t, "", template.FirstLine("   \n\t\n"))
}

func TestMatchExactOnly(t *testing.T) {
	masters := []*template.Master{
		{Meta: template.Meta{ID: "2024_4_2"}},
		{Meta: template.Meta{ID: "2024_4_3"}},
	}

	m := template.Match("  2024_4_2\n55615210\n(A) answer", masters)
	require.NotNil(t, m)
	assert.Equal(t, "2024_4_2", m.Meta.ID)

	assert.Nil(t, template.Match("2024_4_9\nfoo", masters))
	assert.Nil(t, template.Match("2024_4", masters))
	assert.Nil(t, template.Match("", masters))
	assert.Nil(t, template.Match("UNKNOWN\nfoo", masters))
}

func TestRubricText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "解説_2024_4_2.txt"), []byte("模範解答"), 0o644))

	got, err := template.RubricText(dir, "2024_4_2")
	require.NoError(t, err)
	assert.Equal(t, "模範解答", got)

	got, err = template.RubricText(dir, "2024_4_3")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = template.RubricText(filepath.Join(dir, "missing"), "2024_4_2")
	require.NoError(t, err)
	assert.Empty(t, got)
}
