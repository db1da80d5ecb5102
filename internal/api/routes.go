package api

import (
	"github.com/gin-gonic/gin"
)

// Handlers 汇总需要注册的处理器；为 nil 的处理器对应的路由不注册。
type Handlers struct {
	Pages   *PageHandler
	Contact *ContactHandler
	Ws      *WsHandler
	Resume  *ResumeHandler
}

// RegisterRoutes 注册 BFF 路由。
func RegisterRoutes(router *gin.Engine, h Handlers) {
	if h.Resume != nil {
		router.GET("/"+h.Resume.Filename(), h.Resume.Download)
	}

	v1 := router.Group("/v1")
	{
		if h.Pages != nil {
			pages := v1.Group("/pages")
			pages.GET("/home", h.Pages.GetHome)
			pages.GET("/projects", h.Pages.GetProjects)
		}

		if h.Contact != nil {
			v1.POST("/contact", h.Contact.Submit)
			v1.GET("/contact/:id", h.Contact.Status)
		}

		if h.Ws != nil {
			v1.GET("/ws", h.Ws.HandleConnection)
		}
	}
}
