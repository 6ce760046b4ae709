package materials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValues() Values {
	v := BuildReplacementValues(nil)
	v[TokenChapterName] = "Rocky Mountain FPA"
	v[TokenInstructorName] = "Jane Doe"
	v[TokenWorkshopDate] = "March 14, 2025"
	v[TokenWorkshopDescription] = `Ethics & "Fiduciary" <Duty>`
	return v
}

func TestApplyReplacesEveryCanonicalToken(t *testing.T) {
	values := sampleValues()
	sub := NewSubstituter(values)
	for _, k := range values.Keys() {
		if values[k] == "" {
			continue
		}
		text := "<a:t>before {{" + k + "}} after</a:t>"
		out, changed := sub.Apply(text)
		require.True(t, changed, k)
		assert.NotContains(t, out, "{{"+k+"}}")
		assert.Contains(t, out, Escape(values[k]))
	}
}

func TestApplyVariantsMatchCanonical(t *testing.T) {
	sub := NewSubstituter(sampleValues())
	want, changed := sub.Apply("<a:t>{{chapter_name}}</a:t>")
	require.True(t, changed)
	for _, variant := range []string{
		"{{ chapter_name }}",
		"{{CHAPTER_NAME}}",
		"{{ CHAPTER_NAME }}",
		"{chapter_name}",
		"[chapter_name]",
		"%chapter_name%",
	} {
		got, changed := sub.Apply("<a:t>" + variant + "</a:t>")
		assert.True(t, changed, variant)
		assert.Equal(t, want, got, variant)
	}
}

func TestApplyNoTokens(t *testing.T) {
	sub := NewSubstituter(sampleValues())
	text := `<p:sld><a:t>Welcome {{unknown_token}} [notes]</a:t></p:sld>`
	out, changed := sub.Apply(text)
	assert.False(t, changed)
	assert.Equal(t, text, out)
}

func TestApplyEscapesOnce(t *testing.T) {
	sub := NewSubstituter(sampleValues())
	once, changed := sub.Apply("<a:t>{{workshop_description}}</a:t>")
	require.True(t, changed)
	assert.Equal(t, "<a:t>Ethics &amp; &#34;Fiduciary&#34; &lt;Duty&gt;</a:t>", once)

	twice, changed := sub.Apply(once)
	assert.False(t, changed)
	assert.Equal(t, once, twice)
	assert.NotContains(t, twice, "&amp;amp;")
}

func TestApplyEmptyValueRemovesToken(t *testing.T) {
	sub := NewSubstituter(sampleValues())
	out, changed := sub.Apply("<a:t>Cost: {{workshop_cost}}</a:t>")
	assert.True(t, changed)
	assert.Equal(t, "<a:t>Cost: </a:t>", out)
}

func TestMatchesAndFindPlaceholders(t *testing.T) {
	sub := NewSubstituter(sampleValues())
	text := "{{chapter_name}} {{ location }} {{chapter_name}} {{mystery}}"
	matches := sub.Matches(text)
	assert.Contains(t, matches, "{{chapter_name}}")
	assert.Contains(t, matches, "{{ location }}")
	assert.NotContains(t, matches, "{{mystery}}")
	assert.Equal(t, []string{"{{chapter_name}}", "{{ location }}", "{{mystery}}"}, FindPlaceholders(text))
}

func TestMatchesReportsOnlyConsumedPatterns(t *testing.T) {
	sub := NewSubstituter(sampleValues())
	assert.Equal(t, []string{"{{chapter_name}}"}, sub.Matches("<a:t>{{chapter_name}}</a:t>"))
	assert.Equal(t, []string{"{{chapter_name}}", "{chapter_name}"}, sub.Matches("<a:t>{{chapter_name}} and {chapter_name}</a:t>"))
	assert.Equal(t, []string{"[chapter_name]"}, sub.Matches("x [chapter_name] y"))
	assert.Empty(t, sub.Matches("{chapter_name"))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&#34;&#39;", Escape(`&<>"'`))
	assert.Equal(t, "plain", Escape("plain"))
	assert.False(t, strings.Contains(Escape("<"), "<"))
}
