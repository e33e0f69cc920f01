package routes

import (
	"github.com/gin-gonic/gin"

	"shortreels-web/controllers"
)

// RegisterRoutes wires the HTTP surface.
func RegisterRoutes(r *gin.Engine, app *controllers.AppController, payments *controllers.PaymentController) {
	r.GET("/healthz", app.Health)

	api := r.Group("/api")
	{
		api.GET("/bootstrap", app.Bootstrap)
		api.GET("/session", app.Session)
		api.POST("/validate", app.Validate)
		api.POST("/generate", app.Generate)
		api.POST("/cancel", app.Cancel)
		api.POST("/media/result", app.MediaResult)
		api.GET("/download", app.Download)

		payment := api.Group("/payment")
		{
			payment.POST("/initiate", payments.Initiate)
			payment.POST("/callback", payments.Callback)
			payment.POST("/dismissed", payments.Dismissed)
			payment.POST("/failed", payments.Failed)
		}
	}
}
