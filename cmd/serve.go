package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hermes-backend/config"
	"hermes-backend/controllers"
	"hermes-backend/middleware"
	"hermes-backend/routes"
	"hermes-backend/services"
	"hermes-backend/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and chat webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg)

	backend, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("gagal menginisialisasi database (%s): %w", cfg.DBDriver, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.WithError(err).Error("Gagal menutup koneksi database")
		}
	}()

	personnel, users := variants(cfg)
	if err := backend.Migrate(ctx, personnel, users); err != nil {
		return fmt.Errorf("gagal menyiapkan skema database: %w", err)
	}
	log.WithField("driver", backend.Driver()).Info("✅ Database siap digunakan")

	engine, err := buildEngine(ctx, cfg, backend, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server berjalan di %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server gagal dijalankan: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("HTTP server closed")
	return nil
}

// buildEngine wires services and controllers over an open backend.
func buildEngine(ctx context.Context, cfg *config.Config, backend store.Backend, log *logrus.Logger) (*gin.Engine, error) {
	personnel, users := variants(cfg)

	records := map[string]*services.RecordService{
		personnel.Name: services.NewRecordService(backend.Records(personnel), log),
		users.Name:     services.NewRecordService(backend.Records(users), log),
	}

	chatRecords := records[cfg.ChatVariant]
	identity := services.NewIdentityService(chatRecords.Store(), log)
	chatbot := services.NewChatbotService(identity, chatRecords, log)

	var export *services.ExportService
	if cfg.ExportEnabled() {
		awsCfg, err := config.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("gagal menginisialisasi AWS: %w", err)
		}
		export = services.NewExportService(services.NewS3Uploader(awsCfg), cfg.ExportBucket, cfg.ExportPrefix, log)
		log.WithField("bucket", cfg.ExportBucket).Info("✅ Ekspor S3 aktif")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	trustedProxies := []string{"127.0.0.1", "::1"}
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("gagal menetapkan proxy tepercaya: %w", err)
	}

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	routes.SetupRoutes(r, routes.Handlers{
		Personnel: controllers.NewRecordController(records[personnel.Name]),
		Users:     controllers.NewRecordController(records[users.Name]),
		Chatbot:   controllers.NewChatbotController(chatbot, cfg.TelegramWebhookSecret, log),
		Admin: controllers.NewAdminController(
			services.NewAdminService(records[personnel.Name], records[users.Name]),
			export,
			records,
		),
	})
	return r, nil
}
