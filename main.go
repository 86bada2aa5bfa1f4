// Package main library API.
//
// @title           Library Service API
// @version         1.0
// @description     Book catalog, borrowings, fines and payments.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/Koliesnichenko/library-service/app/echoServer"
	authctrl "github.com/Koliesnichenko/library-service/app/echoServer/controller/auth"
	bookctrl "github.com/Koliesnichenko/library-service/app/echoServer/controller/book"
	borrowctrl "github.com/Koliesnichenko/library-service/app/echoServer/controller/borrowing"
	paymentctrl "github.com/Koliesnichenko/library-service/app/echoServer/controller/payment"
	"github.com/Koliesnichenko/library-service/app/echoServer/validation"
	"github.com/Koliesnichenko/library-service/config"
	bookrepo "github.com/Koliesnichenko/library-service/repository/book"
	borrowrepo "github.com/Koliesnichenko/library-service/repository/borrowing"
	paymentrepo "github.com/Koliesnichenko/library-service/repository/payment"
	striperepo "github.com/Koliesnichenko/library-service/repository/stripe"
	telegramrepo "github.com/Koliesnichenko/library-service/repository/telegram"
	userrepo "github.com/Koliesnichenko/library-service/repository/user"
	authsvc "github.com/Koliesnichenko/library-service/service/auth"
	booksvc "github.com/Koliesnichenko/library-service/service/book"
	borrowsvc "github.com/Koliesnichenko/library-service/service/borrowing"
	paymentsvc "github.com/Koliesnichenko/library-service/service/payment"
	"github.com/Koliesnichenko/library-service/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	bwr := borrowrepo.New(db)
	pr := paymentrepo.New(db)
	gw := striperepo.NewHTTP(cfg.StripeSecretKey)
	tg := telegramrepo.NewHTTP(cfg.TelegramBotToken, cfg.TelegramChatID)

	// services
	tx := database.NewTxRunner(db)
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br)
	ps := paymentsvc.New(pr, bwr, br, gw, tg, cfg.BaseURL, log)
	bws := borrowsvc.New(tx, bwr, br, ps, tg, log)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	borrowC := &borrowctrl.Controller{Svc: bws, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, V: v, Log: log}

	// overdue reminders + fine reconciliation
	reminder := borrowsvc.NewReminder(bwr, ps, tg, log)
	reminder.Start(ctx)

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:      authC,
		Book:      bookC,
		Borrowing: borrowC,
		Payment:   paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
