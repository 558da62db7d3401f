package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"civicwatch/internal/auth"
	"civicwatch/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	tokens *auth.TokenService,
	authHandler *handler.AuthHandler,
	reportHandler *handler.ReportHandler,
	notificationHandler *handler.NotificationHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/refresh-token", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes: the access token arrives as a Bearer header or the
	// accessToken cookie. Verification is delegated to the token service so
	// the middleware and the handlers agree on the claims type.
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:accessToken",
		ParseTokenFunc: func(c echo.Context, rawToken string) (interface{}, error) {
			return tokens.VerifyAccessToken(rawToken)
		},
	}))

	secured.GET("/auth/profile", authHandler.Profile)
	secured.GET("/auth/profile/:id", authHandler.ProfileByID)
	secured.POST("/auth/change-password", authHandler.ChangePassword)

	secured.POST("/reports", reportHandler.Create)
	secured.GET("/reports", reportHandler.List)
	secured.GET("/reports/admin/analytics", reportHandler.Analytics)
	secured.GET("/reports/:id", reportHandler.GetByID)
	secured.PATCH("/reports/:id", reportHandler.Update)
	secured.DELETE("/reports/:id", reportHandler.Delete)

	secured.GET("/notifications", notificationHandler.List)
	secured.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
