package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Koliesnichenko/library-service/app/echoServer/controller/auth"
	"github.com/Koliesnichenko/library-service/app/echoServer/controller/book"
	"github.com/Koliesnichenko/library-service/app/echoServer/controller/borrowing"
	"github.com/Koliesnichenko/library-service/app/echoServer/controller/payment"
)

type C struct {
	Auth      *auth.Controller
	Book      *book.Controller
	Borrowing *borrowing.Controller
	Payment   *payment.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Catalog browsing is open
	pub.GET("/books", c.Book.List)
	pub.GET("/books/:id", c.Book.Detail)

	// Gateway redirect targets carry no JWT
	pub.GET("/payments/success", c.Payment.Success)
	pub.GET("/payments/cancel", c.Payment.Cancel)

	// Auth
	authg := e.Group("/v1")
	authg.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// claims extraction: user_id + is_staff
	authg.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenObj := ctx.Get("user")
			if tokenObj == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			tok, ok := tokenObj.(*jwt.Token)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			staff, _ := claims["staff"].(bool)

			ctx.Set("user_id", int64(sub))
			ctx.Set("is_staff", staff)
			return next(ctx)
		}
	})

	authg.GET("/users/me", c.Auth.Me)

	// Staff-only catalog management (gate enforced in the controller)
	authg.POST("/books", c.Book.Create)
	authg.PUT("/books/:id", c.Book.Update)
	authg.DELETE("/books/:id", c.Book.Delete)

	// Borrowings
	authg.POST("/borrowings", c.Borrowing.Create)
	authg.GET("/borrowings", c.Borrowing.List)
	authg.GET("/borrowings/:id", c.Borrowing.Detail)
	authg.POST("/borrowings/:id/return", c.Borrowing.Return)

	// Payments
	authg.GET("/payments", c.Payment.List)
	authg.GET("/payments/:id", c.Payment.Detail)
	authg.POST("/payments", c.Payment.Create)
}
