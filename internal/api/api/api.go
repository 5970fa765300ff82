package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"charityevents/cmd/middleware"
	"charityevents/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	events := app.Group("/events")

	events.GET("", r.Service.GetAllEvents)
	events.GET("/search/filter", r.Service.SearchEvents)
	events.GET("/categories/all", r.Service.GetCategories)
	events.GET("/:id", r.Service.GetEvent)
	events.POST("/register", r.Service.Register)
	events.POST("", r.Service.CreateEvent)
	events.PUT("/:id", r.Service.UpdateEvent)
	events.DELETE("/:id", r.Service.DeleteEvent)

	return app
}
