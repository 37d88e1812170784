package types

// EducationEntry 一条识别出的学历记录
type EducationEntry struct {
	Degree      string `json:"degree"`      // 学位，仅识别B.TECH/B.E.（归一化为"B.TECH"）
	Institution string `json:"institution"` // 院校全称
	Year        string `json:"year"`        // 4位年份字符串，未识别时为空
}

// ExperienceEntry 一条识别出的经历记录
type ExperienceEntry struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration"`
	Description string `json:"description"` // 条目头之后、下一边界之前所有非空行按序拼接
}

// ParsedResume 启发式抽取的输出
// 任何未识别的字段退化为空字符串/空列表，绝不缺字段
type ParsedResume struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Education  []EducationEntry  `json:"education"`
	Experience []ExperienceEntry `json:"experience"`
	Skills     []string          `json:"skills"` // 全小写，来自固定词表
	Text       string            `json:"text"`   // 原始抽取文本
}

// ResumeAnalysis LLM归一化后的简历事实，形状与ParsedResume一致（不含原始文本）
// 每个字段都经过类型校验与强制转换，坏值退化为空值
type ResumeAnalysis struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Education  []EducationEntry  `json:"education"`
	Experience []ExperienceEntry `json:"experience"`
	Skills     []string          `json:"skills"`
}

// BarGraphMetrics 阈值评分的四个子指标，均在[0,100]内
type BarGraphMetrics struct {
	SkillMatch      float64 `json:"skillMatch"`
	ExperienceMatch float64 `json:"experienceMatch"`
	EducationMatch  float64 `json:"educationMatch"`
	OverallMatch    float64 `json:"overallMatch"`
}

// ThresholdScore 一个(简历, 岗位)对的详细契合度评分
// rejectionPercentage由服务商给出，不强制等于100-selectionPercentage
type ThresholdScore struct {
	OverallScore        float64         `json:"overallScore"`
	SelectionPercentage float64         `json:"selectionPercentage"`
	RejectionPercentage float64         `json:"rejectionPercentage"`
	BarGraphMetrics     BarGraphMetrics `json:"barGraphMetrics"`
	DetailedAnalysis    string          `json:"detailedAnalysis"`
}

// JobRecommendation 针对一份简历的一条岗位推荐
type JobRecommendation struct {
	JobTitle       string          `json:"jobTitle"`
	MatchScore     float64         `json:"matchScore"` // 已钳制到[0,100]
	Reasoning      string          `json:"reasoning"`
	RequiredSkills []string        `json:"requiredSkills"`
	MissingSkills  []string        `json:"missingSkills"`
	ThresholdScore *ThresholdScore `json:"thresholdScore,omitempty"`
}

// AnalysisResult 一次完整分析的合并结果，持久化为分析blob并镜像到会话状态
type AnalysisResult struct {
	ResumeAnalysis     *ResumeAnalysis     `json:"resumeAnalysis"`
	JobRecommendations []JobRecommendation `json:"jobRecommendations"`
	Timestamp          string              `json:"timestamp"`
}

// Job 演示用岗位目录中的一条记录
type Job struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	Description     string   `json:"description"`
	Skills          []string `json:"skills"`
	MatchPercentage int      `json:"matchPercentage"`
}
