package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rdFolio/internal/api/middleware"
	"rdFolio/internal/page"
)

// PortfolioBackend 是页面控制器需要的全部上游能力。
type PortfolioBackend interface {
	page.HomeFetcher
	page.ProjectFetcher
}

// PageHandler 每个请求挂载一个新的页面控制器，请求结束即卸载。
type PageHandler struct {
	backend   PortfolioBackend
	facetCap  int
	resumeURL string
}

// NewPageHandler 构造页面处理器。resumeURL 是简历下载入口，首页原样返回给前端。
func NewPageHandler(backend PortfolioBackend, facetCap int, resumeURL string) *PageHandler {
	return &PageHandler{
		backend:   backend,
		facetCap:  facetCap,
		resumeURL: resumeURL,
	}
}

type homeResponse struct {
	page.HomeView
	ResumeURL string `json:"resume_url"`
}

// GetHome 返回首页视图模型。上游部分失败时对应区块为空，状态码仍是 200。
func (h *PageHandler) GetHome(c *gin.Context) {
	home := page.NewHome(h.backend, middleware.LoggerFromContext(c))
	defer home.Unmount()

	home.Mount(c.Request.Context())

	c.JSON(http.StatusOK, homeResponse{
		HomeView:  home.View(),
		ResumeURL: h.resumeURL,
	})
}

// GetProjects 返回项目页视图模型，?filter= 为技术标签，缺省为 all。
func (h *PageHandler) GetProjects(c *gin.Context) {
	projects := page.NewProjects(h.backend, h.facetCap, middleware.LoggerFromContext(c))
	defer projects.Unmount()

	projects.SetFilter(c.Query("filter"))
	projects.Mount(c.Request.Context())

	c.JSON(http.StatusOK, projects.View())
}
