package detect

import "strings"

// Keyword signatures of each template family.
var (
	policyKeywords = []string{"基本工资", "底薪", "加班", "津贴", "扣款", "社保", "公积金", "个税"}
	policyCore     = []string{"模式", "mode", "基本", "底薪", "时薪"}

	rosterKeywords = []string{
		"身份证", "证件号", "社保基数", "个人比例", "公司比例", "单位比例",
		"入职", "离职", "最低基数", "最高基数",
	}
	rosterPersonalRatio = []string{"个人比例", "个人缴费", "个人缴纳"}
	rosterIDNumber      = []string{"身份证", "证件号"}
	rosterSignals       = []string{"比例", "基数", "入职", "离职", "缴费", "缴纳"}

	aggregateKeywords = []string{"工作日标准工时", "工作日加班工时", "周末", "确认工时", "当月工时"}
	personalKeywords  = []string{"日期", "标准工时", "加班工时", "总工时"}

	nameKeywords = []string{"姓名", "员工", "name"}
	rateTokens   = []string{"费率", "倍率", "比例", "%"}
)

// Header classifies one candidate header row.
func Header(cells []string) (Schema, bool) {
	tokens := tokenize(cells)
	if len(tokens) == 0 {
		return SchemaUnknown, false
	}

	if hasExact(tokens, "metric_code") {
		return SchemaFactTable, true
	}
	if hasExact(tokens, "mode") && hasExact(tokens, "employee_name_norm") {
		return SchemaPolicyTable, true
	}

	if anyContains(tokens, policyKeywords) && anyContains(tokens, policyCore) {
		return SchemaPolicySheet, true
	}
	if isRoster(tokens) {
		return SchemaRosterSheet, true
	}
	if anyContains(tokens, []string{"日期", "date"}) && anyContains(tokens, []string{"工时"}) && !anyContains(tokens, nameKeywords) {
		return SchemaTimesheetPersonal, true
	}
	if anyContains(withoutRates(tokens), aggregateKeywords) {
		return SchemaTimesheetAggregate, true
	}
	if anyContains(tokens, personalKeywords) {
		return SchemaTimesheetPersonal, true
	}
	return SchemaUnknown, false
}

// isRoster applies the layered roster rule. Roster and policy sheets share
// contribution-ratio vocabulary, so a single ratio column is not enough.
func isRoster(tokens []string) bool {
	hits := 0
	for _, kw := range rosterKeywords {
		if anyContains(tokens, []string{kw}) {
			hits++
		}
	}
	if hits >= 2 {
		return true
	}

	for i, tok := range tokens {
		others := append(append([]string(nil), tokens[:i]...), tokens[i+1:]...)
		if containsAny(tok, rosterPersonalRatio) &&
			(anyContains(others, rosterKeywords) || anyContains(others, rosterSignals)) {
			return true
		}
		if containsAny(tok, rosterIDNumber) && anyContains(others, rosterSignals) {
			return true
		}
	}
	return false
}

func tokenize(cells []string) []string {
	tokens := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			tokens = append(tokens, c)
		}
	}
	return tokens
}

func withoutRates(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !containsAny(t, rateTokens) {
			out = append(out, t)
		}
	}
	return out
}

func hasExact(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func anyContains(tokens, keywords []string) bool {
	for _, t := range tokens {
		if containsAny(t, keywords) {
			return true
		}
	}
	return false
}

func containsAny(token string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(token, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
