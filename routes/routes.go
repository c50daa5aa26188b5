package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/sairanjith101/acme-importer/controllers"
)

// RegisterRoutes wires every endpoint to its controller.
func RegisterRoutes(
	r *gin.Engine,
	products *controllers.ProductController,
	imports *controllers.ImportController,
	deletes *controllers.BulkDeleteController,
	webhooks *controllers.WebhookController,
) {
	api := r.Group("/api")

	productRoutes := api.Group("/products")
	{
		productRoutes.GET("/", products.GetProducts)
		productRoutes.GET("/:id", products.GetProductByID)
		productRoutes.POST("/", products.CreateProduct)
		productRoutes.PUT("/:id", products.UpdateProduct)
		productRoutes.DELETE("/:id", products.DeleteProduct)
		productRoutes.POST("/bulk_delete", deletes.BulkDelete)
		productRoutes.GET("/bulk_delete/:id/progress", deletes.GetProgress)
	}

	api.POST("/upload", imports.UploadCSV)
	api.GET("/upload/:id/progress", imports.GetProgress)

	webhookRoutes := api.Group("/webhooks")
	{
		webhookRoutes.GET("/", webhooks.List)
		webhookRoutes.POST("/", webhooks.Create)
		webhookRoutes.PUT("/:id", webhooks.Update)
		webhookRoutes.DELETE("/:id", webhooks.Delete)
		webhookRoutes.POST("/:id/test", webhooks.Test)
		webhookRoutes.GET("/:id/logs", webhooks.Logs)
	}
}
