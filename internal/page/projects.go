package page

import (
	"context"
	"log/slog"
	"strings"

	"rdFolio/internal/apiclient"
	"rdFolio/internal/portfolio"
	"rdFolio/internal/viewmodel"
)

// ProjectFetcher 是项目页需要的上游接口。
type ProjectFetcher interface {
	FetchProjects(ctx context.Context) ([]portfolio.Project, error)
}

// ProjectsView 是项目页的只读快照。
type ProjectsView struct {
	State        State                   `json:"state"`
	Filter       string                  `json:"filter"`
	Facets       []string                `json:"facets"`
	FacetTotal   int                     `json:"facet_total"`
	Projects     []viewmodel.ProjectView `json:"projects"`
	Total        int                     `json:"total"`
	EmptyMessage string                  `json:"empty_message,omitempty"`
}

// Projects 持有项目列表与本地筛选条件。筛选只在本地重算，不会重新请求上游。
type Projects struct {
	*lifecycle
	fetcher  ProjectFetcher
	facetCap int

	projects []portfolio.Project
	filter   string
	facets   []string
	filtered []portfolio.Project
}

// NewProjects 构造项目页控制器，筛选初始为 "all"。
func NewProjects(fetcher ProjectFetcher, facetCap int, logger *slog.Logger) *Projects {
	if facetCap <= 0 {
		facetCap = viewmodel.DefaultFacetCap
	}
	p := &Projects{
		lifecycle: newLifecycle("projects", logger),
		fetcher:   fetcher,
		facetCap:  facetCap,
		projects:  []portfolio.Project{},
		filter:    viewmodel.FilterAll,
	}
	p.recompute()
	return p
}

// Mount 拉取项目列表；失败时列表保持为空，仍进入 ready。
func (p *Projects) Mount(parent context.Context) {
	ctx, gen, ok := p.begin(parent)
	if !ok {
		return
	}

	projects := settle(ctx, p.fetcher.FetchProjects)

	committed := p.commit(gen, func() {
		if projects.OK() {
			p.projects = nonNil(projects.Value)
			p.recompute()
		}
	})
	record(p.lifecycle, apiclient.ResourceProjects, projects, committed)
}

// SetFilter 同步切换筛选条件，空白值视为 "all"。
func (p *Projects) SetFilter(filter string) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = viewmodel.FilterAll
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if filter == p.filter {
		return
	}
	p.filter = filter
	p.recompute()
}

// recompute 在项目或筛选变化后重算标签与筛选结果，调用方需持锁。
func (p *Projects) recompute() {
	p.facets = viewmodel.ExtractTechnologyFacets(p.projects)
	p.filtered = viewmodel.FilterProjectsByTechnology(p.projects, p.filter)
}

// View 返回当前快照。标签按 facetCap 截断。
func (p *Projects) View() ProjectsView {
	p.mu.Lock()
	defer p.mu.Unlock()

	view := ProjectsView{
		State:      p.state,
		Filter:     p.filter,
		Facets:     append([]string{}, viewmodel.CapFacets(p.facets, p.facetCap)...),
		FacetTotal: len(p.facets),
		Projects:   viewmodel.NewProjectViews(p.filtered),
		Total:      len(p.projects),
	}
	if p.state == StateReady && len(p.filtered) == 0 {
		view.EmptyMessage = viewmodel.NoProjectsMessage
	}
	return view
}
