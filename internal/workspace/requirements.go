package workspace

// Requirement ids.
const (
	RequirementTimesheetDetail  = "timesheet_detail"
	RequirementTimesheetSummary = "timesheet_summary"
	RequirementEmployeeRoster   = "employee_roster"
	RequirementPolicyRules      = "policy_rules"
)

// Step ids, in workflow order.
const (
	StepWorkspaceSetup   = "workspace_setup"
	StepUploadTimesheets = "upload_timesheets"
	StepUploadPolicy     = "upload_policy"
	StepReviewData       = "review_data"
	StepRunPayroll       = "run_payroll"
)

// Schemas credited when the heuristic extractor, not a template, produced
// the records of an upload.
const (
	SchemaHeuristicFact   = "heuristic_fact"
	SchemaHeuristicPolicy = "heuristic_policy"
)

// RequirementDef describes an upload a workspace expects.
type RequirementDef struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Step        string   `json:"-"`
	Schemas     []string `json:"-"`
	Optional    bool     `json:"optional"`
}

// StepDef describes one stage of the payroll workflow.
type StepDef struct {
	ID          string
	Label       string
	Description string
}

// Requirements lists the expected uploads in display order.
var Requirements = []RequirementDef{
	{
		ID:          RequirementTimesheetDetail,
		Label:       "员工工时明细",
		Description: "上传个人维度的打卡或工时记录（timesheet_personal 模板）",
		Step:        StepUploadTimesheets,
		Schemas:     []string{"timesheet_personal", SchemaHeuristicFact},
	},
	{
		ID:          RequirementTimesheetSummary,
		Label:       "班组工时汇总",
		Description: "若有班组/部门汇总表（timesheet_aggregate 模板），可用于核对合计。",
		Step:        StepUploadTimesheets,
		Schemas:     []string{"timesheet_aggregate"},
		Optional:    true,
	},
	{
		ID:          RequirementEmployeeRoster,
		Label:       "员工花名册",
		Description: "上传含入离职信息及部门的花名册（roster_sheet 模板）",
		Step:        StepUploadPolicy,
		Schemas:     []string{"roster_sheet"},
	},
	{
		ID:          RequirementPolicyRules,
		Label:       "薪酬口径与参数",
		Description: "上传薪资口径、加班倍率及津贴扣款配置（policy_sheet 模板）",
		Step:        StepUploadPolicy,
		Schemas:     []string{"policy_sheet", SchemaHeuristicPolicy},
	},
}

// Steps lists the workflow stages in order.
var Steps = []StepDef{
	{ID: StepWorkspaceSetup, Label: "创建工作区", Description: "创建计薪月份工作区，所有上传与计算均围绕该月份展开。"},
	{ID: StepUploadTimesheets, Label: "上传工时与计薪基础", Description: "按照要求上传工时明细与可选的汇总表，系统会自动解析为事实数据。"},
	{ID: StepUploadPolicy, Label: "上传口径与花名册", Description: "上传薪酬口径、社保个税参数及花名册，生成口径快照。"},
	{ID: StepReviewData, Label: "审查解析质量", Description: "检查事实层低置信度记录与口径差异，确认无误后方可进入计算。"},
	{ID: StepRunPayroll, Label: "执行计薪并导出", Description: "触发工资计算，审阅结果并导出银行及税务报表。"},
}

// RequirementForSchema returns the requirement an upload of schema satisfies.
func RequirementForSchema(schema string) (string, bool) {
	for _, req := range Requirements {
		for _, s := range req.Schemas {
			if s == schema {
				return req.ID, true
			}
		}
	}
	return "", false
}
