package pages

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/careerhub/internal/brand"
	"github.com/mbd888/careerhub/internal/tenant"
)

func TestTools_AvailabilityFollowsFeatures(t *testing.T) {
	all := availableTools(brand.DefaultConfig())
	assert.Len(t, all, len(tools))

	jobsOnly := brand.Merge(brand.DefaultConfig(), tenant.Branding{Features: []string{"job_board"}})
	var slugs []string
	for _, tool := range availableTools(jobsOnly) {
		slugs = append(slugs, tool.Slug)
	}
	assert.Equal(t, []string{"ats-checker", "skills-generator"}, slugs)
}

func TestTool_Paths(t *testing.T) {
	tool := tools[0]
	assert.Equal(t, "/ats-checker", tool.Path())
	assert.Equal(t, "/ats-checker/run", tool.RunPath())
}

func TestRunATSCheck(t *testing.T) {
	res := runATSCheck(map[string]string{
		"cv":  "Senior Go developer. Kubernetes, Postgres.",
		"job": "We need Go and Kubernetes skills. Kubernetes experience essential. Terraform a plus.",
	})
	require.NotNil(t, res)
	assert.True(t, strings.HasPrefix(res.Headline, "ATS match score: "))
	require.NotEmpty(t, res.Lines)
	assert.Contains(t, res.Lines[0], "kubernetes")

	empty := runATSCheck(map[string]string{})
	assert.Equal(t, "Paste a job advert to check against.", empty.Headline)
}

func TestRunHeadline(t *testing.T) {
	res := runHeadline(map[string]string{"headline": strings.Repeat("x", 230)})
	assert.Equal(t, "230 of 220 characters used", res.Headline)
	assert.Contains(t, res.Lines, "Too long: LinkedIn will cut it off.")

	res = runHeadline(map[string]string{"headline": "Go engineer"})
	assert.Contains(t, res.Lines, "Add at least three searchable skills or job titles.")
}

func TestRunSkills_RanksRepeatedTerms(t *testing.T) {
	res := runSkills(map[string]string{"job": "python python python sql sql excel"})
	require.NotEmpty(t, res.Lines)
	assert.Equal(t, "python", res.Lines[0])
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab", truncate("ab£", 3))
	assert.Equal(t, "ab£", truncate("ab£", 4))
	assert.Equal(t, "", truncate("日本", 2))

	long := strings.Repeat("a", maxInput-1) + "é"
	got := truncate(long, maxInput)
	assert.Len(t, got, maxInput-1)
	assert.True(t, utf8.ValidString(got))
}
