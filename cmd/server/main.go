package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/database"
	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/paypal"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/router"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	hotels := repository.NewHotelRepo(db)
	hotelAdmins := repository.NewHotelAdminRepo(db)
	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)

	notifier := queue.NewPublisher(cfg.RabbitURL)
	gateway := paypal.NewClient(paypal.Config{
		BaseURL:  cfg.PayPalBaseURL,
		ClientID: cfg.PayPalClientID,
		Secret:   cfg.PayPalSecret,
	})
	access := service.NewAccessChecker(hotelAdmins)

	authSvc := service.NewAuthService(users, sessions, notifier, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		AuthTTL:    cfg.AuthTTL,
		RefreshTTL: cfg.RefreshTTL,
		MFATTL:     cfg.MFATTL,
		ResetTTL:   cfg.ResetTTL,
		BcryptCost: cfg.BcryptCost,
		Debug:      cfg.Debug,
	})
	bookingSvc := service.NewBookingService(bookings, payments, rooms, gateway, access, notifier,
		service.BookingConfig{
			Secret:          cfg.JWTSecret,
			Currency:        cfg.Currency,
			VerificationTTL: cfg.VerificationTTL,
			Debug:           cfg.Debug,
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go queue.NewConsumer(cfg.RabbitURL).Run(ctx)

	e := router.New(router.Deps{
		DB:      db,
		Redis:   rdb,
		Auth:    authSvc,
		Hotel:   handler.NewHotelHandler(hotels, rooms, hotelAdmins, users, access, bookingSvc),
		Booking: handler.NewBookingHandler(bookingSvc),
		AuthH:   handler.NewAuthHandler(authSvc, cfg.Debug),
		User:    handler.NewUserHandler(authSvc, users),
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
