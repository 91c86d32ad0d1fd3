package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/pages"
)

func adminPageData() pages.PageData {
	return pages.PageData{Title: "CRM Admin", Version: ServiceVersion}
}

func AdminLoginPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, pages.LoginTemplate, adminPageData())
}

func AdminDashboardPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, pages.DashboardTemplate, adminPageData())
}
