package viewmodel

import (
	"strings"

	"rdFolio/internal/portfolio"
)

// NoProjectsMessage 在筛选结果为空时展示。
const NoProjectsMessage = "No projects found with the selected filter."

// ExperienceView 是工作经历的展示形态，描述按行拆分。
type ExperienceView struct {
	portfolio.Experience
	DescriptionLines []string `json:"description_lines"`
}

// SkillView 携带进度条宽度，宽度直接取 proficiency，不做裁剪。
type SkillView struct {
	portfolio.Skill
	WidthPercent int `json:"width_percent"`
}

// SkillGroupView 是分组后的技能展示形态。
type SkillGroupView struct {
	Category string      `json:"category"`
	Skills   []SkillView `json:"skills"`
}

// ProjectView 是项目卡片的展示形态。
type ProjectView struct {
	portfolio.Project
	Tags        []string `json:"tags"`
	ShowRepoURL bool     `json:"show_repo_url"`
}

// HasRepoLink 判断项目是否有可点击的仓库链接，占位符 "#" 不算。
func HasRepoLink(project portfolio.Project) bool {
	if project.GithubURL == nil {
		return false
	}
	link := strings.TrimSpace(*project.GithubURL)
	return link != "" && link != "#"
}

// DescriptionLines 按换行拆分描述，去掉空行。
func DescriptionLines(description string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// NewExperienceViews 保持输入顺序构造经历视图。
func NewExperienceViews(experiences []portfolio.Experience) []ExperienceView {
	views := make([]ExperienceView, 0, len(experiences))
	for _, exp := range experiences {
		views = append(views, ExperienceView{
			Experience:       exp,
			DescriptionLines: DescriptionLines(exp.Description),
		})
	}
	return views
}

// NewSkillGroupViews 将分组结果转成带宽度的视图。
func NewSkillGroupViews(groups []SkillGroup) []SkillGroupView {
	views := make([]SkillGroupView, 0, len(groups))
	for _, group := range groups {
		skills := make([]SkillView, 0, len(group.Skills))
		for _, skill := range group.Skills {
			skills = append(skills, SkillView{Skill: skill, WidthPercent: skill.Proficiency})
		}
		views = append(views, SkillGroupView{Category: group.Category, Skills: skills})
	}
	return views
}

// NewProjectViews 构造项目卡片视图。
func NewProjectViews(projects []portfolio.Project) []ProjectView {
	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, ProjectView{
			Project:     project,
			Tags:        SplitTechnologies(project.Technologies),
			ShowRepoURL: HasRepoLink(project),
		})
	}
	return views
}
