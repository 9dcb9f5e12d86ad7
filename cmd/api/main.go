package main

import (
	authhandler "roost/internal/auth/handler"
	authservice "roost/internal/auth/service"
	"roost/internal/bookings/events"
	bookinghandler "roost/internal/bookings/handler"
	bookingrepository "roost/internal/bookings/repository"
	bookingservice "roost/internal/bookings/service"
	bookingvalidator "roost/internal/bookings/validator"
	hotelhandler "roost/internal/hotels/handler"
	hotelrepository "roost/internal/hotels/repository"
	hotelservice "roost/internal/hotels/service"
	hotelvalidator "roost/internal/hotels/validator"
	userhandler "roost/internal/users/handler"
	userrepository "roost/internal/users/repository"
	userservice "roost/internal/users/service"
	uservalidator "roost/internal/users/validator"
	"roost/pkg/app"
	"roost/pkg/config"
	"roost/pkg/kafka"
	kafka_config "roost/pkg/kafka/config"
	"roost/pkg/middleware"
	"roost/pkg/token"
)

const ServiceName = "api"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting API service")

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(cfg.GracefulShutdown)

	publisher := initPublisher(cfg, serverApp)

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	userRepo := userrepository.NewMongoUserRepository(cfg)
	userValidator := uservalidator.NewUserValidator(cfg.Log)
	userService := userservice.NewUserService(userRepo, userValidator, cfg)
	authService := authservice.NewAuthService(userRepo, tokens, userValidator, cfg)

	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)

	hotelRepo := hotelrepository.NewMongoHotelRepository(cfg)
	hotelValidator := hotelvalidator.NewHotelValidator(cfg.Log)
	hotelService := hotelservice.NewHotelService(hotelRepo, bookingRepo, hotelValidator, cfg)

	bookingValidator := bookingvalidator.NewBookingValidator(cfg.Log)
	bookingService := bookingservice.NewBookingService(
		bookingRepo,
		hotelService,
		userService,
		publisher,
		bookingValidator,
		cfg,
	)

	auth := middleware.NewAuthenticator(tokens, userRepo, cfg.Log)

	serverApp.SetApp(
		authhandler.NewAuthHandler(authService, cfg.Log),
		userhandler.NewUserHandler(userService, auth, cfg.Log),
		hotelhandler.NewHotelHandler(hotelService, auth, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, auth, cfg.Log),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	kafkaCfg := kafka_config.Load()
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, booking events disabled")
		return events.NopPublisher{}
	}

	producer, err := kafka.NewProducer(kafkaCfg, events.TopicBookingLifecycle, events.TopicBookingDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	cfg.Log.Info("Kafka producer initialized", "brokers", kafkaCfg.Brokers, "topic", events.TopicBookingLifecycle)
	return events.NewKafkaPublisher(producer, cfg.Log)
}
