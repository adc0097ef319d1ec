package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain chinese", "张三", "张三"},
		{"surrounding spaces", "  张三  ", "张三"},
		{"inner ideographic space", "张　三", "张三"},
		{"full width latin", "ＪＯＨＮ　ＳＭＩＴＨ", "johnsmith"},
		{"mixed case with tabs", "John\tSmith", "johnsmith"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"张三", " Ｗａｎｇ  Wu ", "ﾃｽﾄ", "李\n雷", "Ⅻ", "ﬁle"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("张三", " 张三 "), 1e-9)
	assert.InDelta(t, 0.0, Similarity("ab", "cd"), 1e-9)
	assert.InDelta(t, 0.5, Similarity("张三", "张四"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
}

func TestRank(t *testing.T) {
	got := Rank("王五", []string{"张三", "王五一", "李四", "王六"}, 2)
	assert.Equal(t, []Match{
		{Name: "王五一", Score: Similarity("王五", "王五一")},
		{Name: "王六", Score: 0.5},
	}, got)
	assert.Greater(t, got[0].Score, 0.6)

	all := Rank("ab", []string{"cd", "ab", "ce"}, 0)
	assert.Len(t, all, 3)
	assert.Equal(t, "ab", all[0].Name)
	assert.Equal(t, []string{"cd", "ce"}, []string{all[1].Name, all[2].Name})

	assert.Empty(t, Rank("王五", nil, 5))
}
