package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleResumeText 模拟一份典型的应届生简历抽取文本
const sampleResumeText = `ALAMANDA STEFFANIE GRACE
CONTACT
Email: steffanie@example.com
Phone: 9876543210
EDUCATION
B.TECH in Computer Science CGPA 8.5 2024
St Joseph College of Engineering
INTERNSHIP EXPERIENCE
DevElet
WEB DEVELOPMENT INTERN
May 2024 - July 2024
Built responsive interfaces with React and JavaScript.
Integrated REST API endpoints for the dashboard.
CERTIFICATES
AWS Cloud Practitioner
SKILLS
Java, JavaScript, HTML, CSS, SQL, React
`

func TestExtractEmail(t *testing.T) {
	e := NewFieldExtractor()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"标准邮箱", "Contact: jane@x.com for details", "jane@x.com"},
		{"带数字和点的邮箱", "email: john.doe99@sub.example.org end", "john.doe99@sub.example.org"},
		{"没有邮箱", "no contact information here", ""},
		{"空文本", "", ""},
		{"多个邮箱取第一个", "first@a.com second@b.com", "first@a.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ExtractEmail(tt.text))
		})
	}
}

func TestExtractPhone(t *testing.T) {
	e := NewFieldExtractor()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"连字符分隔", "call 555-123-4567 now", "555-123-4567"},
		{"连续十位数字", "Phone: 9876543210", "9876543210"},
		{"带区号括号", "(555) 123-4567", "(555) 123-4567"},
		{"没有电话", "no digits here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ExtractPhone(tt.text))
		})
	}
}

func TestExtractName(t *testing.T) {
	e := NewFieldExtractor()

	t.Run("规范人名表优先", func(t *testing.T) {
		name := e.ExtractName("some header\nALAMANDA STEFFANIE GRACE\nmore text")
		assert.Equal(t, "Alamanda Steffanie Grace", name)
	})

	t.Run("全大写多词行转为首字母大写", func(t *testing.T) {
		name := e.ExtractName("JOHN ROBERT SMITH\nSoftware Engineer")
		assert.Equal(t, "John Robert Smith", name)
	})

	t.Run("章节头不会被当成名字", func(t *testing.T) {
		name := e.ExtractName("INTERNSHIP EXPERIENCE\nWORK HISTORY DETAILS\nplain text")
		// 第一行含章节关键词被跳过，第二行才是候选
		assert.Equal(t, "Work History Details", name)
	})

	t.Run("单个词不算名字", func(t *testing.T) {
		assert.Equal(t, "", e.ExtractName("RESUME\nplain text only"))
	})

	t.Run("没有匹配返回空", func(t *testing.T) {
		assert.Equal(t, "", e.ExtractName("lowercase text\nmore lowercase"))
	})
}

func TestExtractEducation(t *testing.T) {
	e := NewFieldExtractor()

	t.Run("完整学历条目", func(t *testing.T) {
		education := e.ExtractEducation(sampleResumeText)
		require.Len(t, education, 1)
		assert.Equal(t, "B.TECH", education[0].Degree)
		assert.Equal(t, "St Joseph College of Engineering", education[0].Institution)
		assert.Equal(t, "2024", education[0].Year)
	})

	t.Run("遇到其他章节头停止扫描", func(t *testing.T) {
		text := `EDUCATION
B.TECH CGPA 9.0 2023
Some University
SKILLS
Java
PROJECTS
Built a College Management System with the B.TECH curriculum in 2021
`
		education := e.ExtractEducation(text)
		// PROJECTS章节里的B.TECH/College字样不应再产生条目
		require.Len(t, education, 1)
		assert.Equal(t, "2023", education[0].Year)
	})

	t.Run("学位未落定的条目被丢弃", func(t *testing.T) {
		text := `EDUCATION
Master of Science 2022
Central University
`
		education := e.ExtractEducation(text)
		assert.Empty(t, education)
	})

	t.Run("没有教育章节", func(t *testing.T) {
		assert.Empty(t, e.ExtractEducation("just some text\nB.TECH 2024"))
	})
}

func TestExtractExperience(t *testing.T) {
	e := NewFieldExtractor()

	t.Run("完整经历条目", func(t *testing.T) {
		experience := e.ExtractExperience(sampleResumeText)
		require.Len(t, experience, 1)
		assert.Equal(t, "DevElet", experience[0].Company)
		assert.Equal(t, "WEB DEVELOPMENT INTERN", experience[0].Position)
		assert.Equal(t, "May 2024 - July 2024", experience[0].Duration)
		assert.Contains(t, experience[0].Description, "Built responsive interfaces")
	})

	t.Run("遇到其他章节头冲刷并退出", func(t *testing.T) {
		text := `INTERNSHIP
DevElet
SOFTWARE INTERN
Jan 2024 - Mar 2024
Worked on backend services.
EDUCATION
B.TECH 2024
`
		experience := e.ExtractExperience(text)
		require.Len(t, experience, 1)
		// EDUCATION之后的行不进入描述
		assert.NotContains(t, experience[0].Description, "B.TECH")
	})

	t.Run("自定义公司锚点", func(t *testing.T) {
		custom := NewFieldExtractor(
			WithKnownEmployers([]string{"Acme Corp"}),
			WithDurationYears([]string{"2023"}),
		)
		text := `INTERNSHIP
Acme Corp
BACKEND INTERN
June 2023 - Aug 2023
Implemented the billing module.
`
		experience := custom.ExtractExperience(text)
		require.Len(t, experience, 1)
		assert.Equal(t, "Acme Corp", experience[0].Company)
		assert.Equal(t, "June 2023 - Aug 2023", experience[0].Duration)
	})

	t.Run("没有实习章节", func(t *testing.T) {
		assert.Empty(t, e.ExtractExperience("DevElet\nINTERN\n2024"))
	})
}

func TestExtractSkills(t *testing.T) {
	e := NewFieldExtractor()

	t.Run("大小写不敏感", func(t *testing.T) {
		upper := e.ExtractSkills("Skills: JAVA, Python, rEaCt")
		assert.Contains(t, upper, "java")
		assert.Contains(t, upper, "python")
		assert.Contains(t, upper, "react")
	})

	t.Run("幂等且顺序稳定", func(t *testing.T) {
		text := "Java SQL html CSS docker kubernetes"
		first := e.ExtractSkills(text)
		second := e.ExtractSkills(text)
		assert.Equal(t, first, second)
	})

	t.Run("同义词折叠", func(t *testing.T) {
		skills := e.ExtractSkills("built with nodejs and nextjs")
		assert.Contains(t, skills, "node.js")
		assert.Contains(t, skills, "next.js")
	})

	t.Run("结果全小写且去重", func(t *testing.T) {
		skills := e.ExtractSkills("Java java JAVA")
		count := 0
		for _, s := range skills {
			if s == "java" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("自定义词表替换内置词表", func(t *testing.T) {
		custom := NewFieldExtractor(WithSkillVocabulary([]string{"cobol", "fortran"}))
		skills := custom.ExtractSkills("Java COBOL Fortran")
		assert.ElementsMatch(t, []string{"cobol", "fortran"}, skills)
	})
}

// TestParseResumeScenario 完整抽取流程
func TestParseResumeScenario(t *testing.T) {
	e := NewFieldExtractor()

	t.Run("联系方式与技能", func(t *testing.T) {
		parsed := e.ParseResume("Contact: jane@x.com, 555-123-4567. Skills: Java, SQL, HTML, CSS.")
		assert.Equal(t, "jane@x.com", parsed.Email)
		assert.Equal(t, "555-123-4567", parsed.Phone)
		assert.Subset(t, parsed.Skills, []string{"java", "sql", "html", "css"})
		// 没有可识别的名字时使用占位值
		assert.Equal(t, "Unknown", parsed.Name)
	})

	t.Run("完整简历", func(t *testing.T) {
		parsed := e.ParseResume(sampleResumeText)
		assert.Equal(t, "Alamanda Steffanie Grace", parsed.Name)
		assert.Equal(t, "steffanie@example.com", parsed.Email)
		assert.Equal(t, "9876543210", parsed.Phone)
		assert.Len(t, parsed.Education, 1)
		assert.Len(t, parsed.Experience, 1)
		assert.Subset(t, parsed.Skills, []string{"java", "javascript", "html", "css", "sql", "react"})
		assert.Equal(t, sampleResumeText, parsed.Text)
	})
}
