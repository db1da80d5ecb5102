package page

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"rdFolio/internal/apiclient"
	"rdFolio/internal/portfolio"
	"rdFolio/internal/viewmodel"
)

// HomeFetcher 是首页需要的上游接口，*apiclient.Client 满足该接口。
type HomeFetcher interface {
	FetchExperiences(ctx context.Context) ([]portfolio.Experience, error)
	FetchSkills(ctx context.Context) ([]portfolio.Skill, error)
	FetchEducation(ctx context.Context) ([]portfolio.Education, error)
}

// HomeView 是首页的只读快照。
type HomeView struct {
	State       State                      `json:"state"`
	Experiences []viewmodel.ExperienceView `json:"experiences"`
	Education   []portfolio.Education      `json:"education"`
	SkillGroups []viewmodel.SkillGroupView `json:"skill_groups"`
}

// Home 持有首页状态：经历、技能、教育三组数据以及按分类分组后的技能。
type Home struct {
	*lifecycle
	fetcher HomeFetcher

	experiences []portfolio.Experience
	skills      []portfolio.Skill
	education   []portfolio.Education
	skillGroups []viewmodel.SkillGroup
}

// NewHome 构造首页控制器，初始状态为 loading，各集合为空。
func NewHome(fetcher HomeFetcher, logger *slog.Logger) *Home {
	return &Home{
		lifecycle:   newLifecycle("home", logger),
		fetcher:     fetcher,
		experiences: []portfolio.Experience{},
		skills:      []portfolio.Skill{},
		education:   []portfolio.Education{},
		skillGroups: []viewmodel.SkillGroup{},
	}
}

// Mount 并发拉取三组数据，全部结算后进入 ready。
// 单个请求失败只会让对应区块为空，Mount 本身不返回错误。
func (h *Home) Mount(parent context.Context) {
	ctx, gen, ok := h.begin(parent)
	if !ok {
		return
	}

	var (
		experiences Result[[]portfolio.Experience]
		skills      Result[[]portfolio.Skill]
		education   Result[[]portfolio.Education]
	)

	var g errgroup.Group
	g.Go(func() error {
		experiences = settle(ctx, h.fetcher.FetchExperiences)
		return nil
	})
	g.Go(func() error {
		skills = settle(ctx, h.fetcher.FetchSkills)
		return nil
	})
	g.Go(func() error {
		education = settle(ctx, h.fetcher.FetchEducation)
		return nil
	})
	_ = g.Wait()

	committed := h.commit(gen, func() {
		if experiences.OK() {
			h.experiences = nonNil(experiences.Value)
		}
		if skills.OK() {
			h.setSkills(skills.Value)
		}
		if education.OK() {
			h.education = nonNil(education.Value)
		}
	})

	record(h.lifecycle, apiclient.ResourceExperiences, experiences, committed)
	record(h.lifecycle, apiclient.ResourceSkills, skills, committed)
	record(h.lifecycle, apiclient.ResourceEducation, education, committed)
}

// setSkills 更新技能并重新分组，调用方需持锁。
func (h *Home) setSkills(skills []portfolio.Skill) {
	h.skills = nonNil(skills)
	h.skillGroups = viewmodel.GroupSkillsByCategory(h.skills)
}

// View 返回当前快照。
func (h *Home) View() HomeView {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HomeView{
		State:       h.state,
		Experiences: viewmodel.NewExperienceViews(h.experiences),
		Education:   append([]portfolio.Education{}, h.education...),
		SkillGroups: viewmodel.NewSkillGroupViews(h.skillGroups),
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
