package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"RestoApp/app/config"
	"RestoApp/app/database"
	"RestoApp/app/models"
	"RestoApp/app/services"
	"RestoApp/app/websocket"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; environment variables win over file values
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	logger := services.NewLoggerService()
	defer logger.Close()
	defer logger.RecoverPanic()

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.LogWarning("Could not load config, creating default", err.Error())
		appConfig, err = config.CreateDefaultConfig()
		if err != nil {
			logger.LogFatal("Failed to create default config", err)
		}
	}

	if appConfig.Database.LocalMode {
		err = database.InitializeLocal(appConfig.Database.LocalPath)
	} else {
		err = database.InitializeWithConfig(appConfig)
	}
	if err != nil {
		logger.LogFatal("Failed to initialize database", err)
	}
	db := database.GetDB()

	orderSvc := services.NewOrderService(db)
	shopSvc := services.NewShopService(db)
	ledgerSvc := services.NewLedgerService(db)
	staffSvc := services.NewStaffService(db)
	sheetsSvc := services.NewSheetsService(db)

	shopSvc.SetSheetsService(sheetsSvc)

	if appConfig.FirstRun {
		seedAdminAccount(staffSvc, logger)
		if err := config.MarkSetupComplete(); err != nil {
			logger.LogWarning("Could not mark setup complete", err.Error())
		}
	}

	wsServer := websocket.NewServer(appConfig.System.ServerPort)
	wsServer.SetDB(db)
	if appConfig.System.OrderURLPrefix != "" {
		wsServer.SetOrderURLPrefix(appConfig.System.OrderURLPrefix + "?table=")
	}
	wsServer.SetServices(orderSvc, shopSvc, ledgerSvc)
	orderSvc.SetWebSocketServer(wsServer)

	go func() {
		defer logger.RecoverPanic()
		if err := wsServer.Start(); err != nil {
			logger.LogFatal("WebSocket server failed", err)
		}
	}()

	logger.LogInfo("Server started", "port: "+appConfig.System.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogInfo("Shutting down")
	wsServer.Stop()
	database.Close()
}

// seedAdminAccount creates the initial admin login on first run. The
// password comes from ADMIN_PASSWORD, falling back to a default that the
// operator is expected to change.
func seedAdminAccount(staffSvc *services.StaffService, logger *services.LoggerService) {
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin1234"
	}
	pin := os.Getenv("ADMIN_PIN")
	if pin == "" {
		pin = "0000"
	}

	admin := &models.Staff{
		Name:     "Administrator",
		Username: "admin",
		Role:     "admin",
		IsActive: true,
	}
	if err := staffSvc.CreateStaffMember(admin, password, pin); err != nil {
		logger.LogWarning("Could not seed admin account", err.Error())
		return
	}
	logger.LogInfo("Seeded initial admin account", "username: admin")
}
