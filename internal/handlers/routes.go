package handlers

import (
	"net/http"

	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything Register mounts.
type Handlers struct {
	Auth         services.AuthService
	Login        *AuthHandler
	Driver       *DriverHandler
	Token        *TokenHandler
	Staff        *StaffHandler
	Admin        *AdminHandler
	Notification *NotificationHandler
}

// Register mounts every route on router.
func Register(router gin.IRouter, h Handlers) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Driver portal
	router.POST("/driver/login", h.Login.DriverLogin)
	router.POST("/driver/logout", h.Login.Logout)
	driver := router.Group("/driver", RequireDriver(h.Auth))
	{
		driver.GET("/", h.Driver.Home)
		driver.GET("/sheets/:id", h.Driver.ShowSheet)
		driver.POST("/sheets/:id/action", h.Driver.SheetAction)
		driver.POST("/sheets/:id/observations", h.Driver.Observations)
		driver.POST("/deliveries/:id/status", h.Driver.UpdateDeliveryStatus)
	}

	// Token endpoints, no session
	feuille := router.Group("/livraison/feuille/:token")
	{
		feuille.GET("", h.Token.ShowSheet)
		feuille.POST("", h.Token.UpdateSheet)
		feuille.GET("/qr.png", h.Token.QRCode)
		feuille.POST("/position", h.Token.Position)
		feuille.POST("/deliveries/:id/status", h.Token.DeliveryStatus)
	}
	router.GET("/livraison/track/:token", h.Token.Track)

	// Staff back office
	router.POST("/staff/login", h.Login.StaffLogin)
	router.POST("/staff/logout", h.Login.Logout)
	staff := router.Group("/staff", RequireStaff(h.Auth))
	{
		staff.GET("/dashboard", h.Staff.Dashboard)
		staff.GET("/reports/deliveries", h.Staff.DeliveryReport)
		staff.GET("/reports/route-sheets", h.Staff.SheetReport)
		staff.GET("/export/deliveries", h.Staff.ExportDeliveries)
		staff.GET("/export/route-sheets", h.Staff.ExportRouteSheets)

		staff.POST("/users", h.Admin.CreateStaffUser)

		staff.GET("/drivers", h.Admin.ListDrivers)
		staff.POST("/drivers", h.Admin.CreateDriver)
		staff.GET("/drivers/:id", h.Admin.GetDriver)
		staff.PUT("/drivers/:id", h.Admin.UpdateDriver)

		staff.GET("/vehicles", h.Admin.ListVehicles)
		staff.POST("/vehicles", h.Admin.CreateVehicle)
		staff.PUT("/vehicles/:id", h.Admin.UpdateVehicle)

		staff.GET("/clients", h.Admin.ListClients)
		staff.POST("/clients", h.Admin.CreateClient)
		staff.PUT("/clients/:id", h.Admin.UpdateClient)

		staff.GET("/products", h.Admin.ListProducts)
		staff.POST("/products", h.Admin.CreateProduct)
		staff.PUT("/products/:id", h.Admin.UpdateProduct)

		staff.GET("/bags", h.Admin.ListBags)
		staff.POST("/bags", h.Admin.CreateBag)
		staff.PUT("/bags/:id", h.Admin.UpdateBag)

		staff.GET("/route-sheets", h.Staff.SheetReport)
		staff.POST("/route-sheets", h.Admin.CreateRouteSheet)
		staff.GET("/route-sheets/:id", h.Admin.GetRouteSheet)
		staff.PUT("/route-sheets/:id", h.Admin.UpdateRouteSheet)
		staff.DELETE("/route-sheets/:id", h.Admin.DeleteRouteSheet)
		staff.POST("/route-sheets/:id/deliveries", h.Admin.CreateDelivery)

		staff.GET("/deliveries/:id", h.Admin.GetDelivery)
		staff.PUT("/deliveries/:id", h.Admin.UpdateDelivery)
		staff.DELETE("/deliveries/:id", h.Admin.DeleteDelivery)
		staff.POST("/deliveries/:id/notify", h.Notification.SendTrackingLink)
	}
}
