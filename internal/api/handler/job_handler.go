package handler

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"resume-insight-go/internal/logger"
	"resume-insight-go/internal/storage"
	"resume-insight-go/internal/types"
)

// jobCatalog 演示用岗位目录
// 真实系统里这来自数据库，这里保持固定目录
var jobCatalog = []types.Job{
	{
		ID:          "1",
		Title:       "Frontend Developer",
		Company:     "TechCorp",
		Location:    "Remote",
		Description: "Looking for a skilled frontend developer with experience in modern web technologies.",
		Skills:      []string{"html", "css", "javascript", "react"},
	},
	{
		ID:          "2",
		Title:       "Java Developer",
		Company:     "Enterprise Solutions",
		Location:    "New York, NY",
		Description: "Seeking a Java developer to work on enterprise applications.",
		Skills:      []string{"java", "spring", "sql"},
	},
	{
		ID:          "3",
		Title:       "Full Stack Developer",
		Company:     "StartupX",
		Location:    "San Francisco, CA",
		Description: "Join our dynamic team building innovative web applications.",
		Skills:      []string{"java", "javascript", "html", "css", "sql"},
	},
}

// stubUserSkills 演示用的候选人技能
// 真实系统里从最近的解析记录读取，这里保持与历史样例一致的固定值
var stubUserSkills = []string{"java", "html", "css", "sql"}

// JobHandler 岗位匹配处理器
type JobHandler struct {
	store *storage.Storage
}

// NewJobHandler 创建岗位匹配处理器
func NewJobHandler(store *storage.Storage) *JobHandler {
	return &JobHandler{store: store}
}

// HandleJobMatches 计算候选人与目录中每个岗位的匹配度
// matchPercentage = round(100 * 匹配技能数 / 岗位技能数)；
// 只保留至少命中一项技能的岗位，按匹配度降序排列
// 没有任何上传记录时返回空列表
func (h *JobHandler) HandleJobMatches(ctx context.Context) ([]types.Job, error) {
	if _, err := h.store.LatestParsed(ctx); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []types.Job{}, nil
		}
		logger.Error().Err(err).Msg("读取解析记录失败")
		return nil, NewAPIError(500, "Failed to fetch job matches")
	}

	userSkills := make(map[string]bool, len(stubUserSkills))
	for _, skill := range stubUserSkills {
		userSkills[strings.ToLower(skill)] = true
	}

	matched := make([]types.Job, 0, len(jobCatalog))
	for _, job := range jobCatalog {
		matching := 0
		for _, skill := range job.Skills {
			if userSkills[strings.ToLower(skill)] {
				matching++
			}
		}
		job.MatchPercentage = int(math.Round(float64(matching) / float64(len(job.Skills)) * 100))
		if job.MatchPercentage > 0 {
			matched = append(matched, job)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].MatchPercentage > matched[j].MatchPercentage
	})
	return matched, nil
}

// SkillsResponse 演示端点的技能响应
type SkillsResponse struct {
	Skills []string `json:"skills"`
}

// HandleJobs 演示端点：返回固定的技能列表
func (h *JobHandler) HandleJobs(ctx context.Context) (*SkillsResponse, error) {
	return &SkillsResponse{
		Skills: []string{"react", "javascript", "typescript", "node.js"},
	}, nil
}
