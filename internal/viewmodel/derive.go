package viewmodel

import (
	"strings"

	"rdFolio/internal/portfolio"
)

// FilterAll 是"不过滤"的哨兵值。
const FilterAll = "all"

// DefaultFacetCap 是筛选按钮最多展示的技术标签数。
const DefaultFacetCap = 6

// SkillGroup 是某一分类下的技能，Skills 保持输入中的相对顺序。
type SkillGroup struct {
	Category string            `json:"category"`
	Skills   []portfolio.Skill `json:"skills"`
}

// GroupSkillsByCategory 按分类分组技能。
// 分组顺序等于分类在输入中首次出现的顺序，每个技能恰好出现一次。
func GroupSkillsByCategory(skills []portfolio.Skill) []SkillGroup {
	groups := make([]SkillGroup, 0)
	index := make(map[string]int)
	for _, skill := range skills {
		pos, ok := index[skill.Category]
		if !ok {
			pos = len(groups)
			index[skill.Category] = pos
			groups = append(groups, SkillGroup{Category: skill.Category})
		}
		groups[pos].Skills = append(groups[pos].Skills, skill)
	}
	return groups
}

// SplitTechnologies 将逗号分隔的技术串拆成去掉首尾空白的标签，空标签丢弃。
func SplitTechnologies(field string) []string {
	parts := strings.Split(field, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// ExtractTechnologyFacets 汇总所有项目的技术标签并去重（区分大小写）。
// 结果按首次出现顺序排列，截断时展示哪些标签因此是确定的。
func ExtractTechnologyFacets(projects []portfolio.Project) []string {
	facets := make([]string, 0)
	seen := make(map[string]struct{})
	for _, project := range projects {
		for _, tag := range SplitTechnologies(project.Technologies) {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			facets = append(facets, tag)
		}
	}
	return facets
}

// CapFacets 返回前 n 个标签；n <= 0 时不截断。
func CapFacets(facets []string, n int) []string {
	if n <= 0 || len(facets) <= n {
		return facets
	}
	return facets[:n]
}

// FilterProjectsByTechnology 按技术筛选项目。
// selected 为 FilterAll 时原样返回输入；否则对整个 technologies 字段做不区分大小写的子串匹配，
// 因此 "SQL" 也会命中 "PostgreSQL"。
func FilterProjectsByTechnology(projects []portfolio.Project, selected string) []portfolio.Project {
	if selected == FilterAll {
		return projects
	}
	needle := strings.ToLower(selected)
	filtered := make([]portfolio.Project, 0, len(projects))
	for _, project := range projects {
		if strings.Contains(strings.ToLower(project.Technologies), needle) {
			filtered = append(filtered, project)
		}
	}
	return filtered
}
