package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/config"
	"github.com/playforge/catalog/src/api/data"
	"github.com/playforge/catalog/src/api/proposal"
	"github.com/playforge/catalog/src/api/types"
	"github.com/playforge/catalog/src/api/webserver"
)

var allModels = []interface{}{
	&types.User{}, &types.Game{},
	&types.GameProposal{}, &types.OutboxJob{},
}

func migrate(db *gorm.DB) {
	err := db.AutoMigrate(allModels...)

	if err == nil {
		return
	}

	log.Printf("auto-migrate failed (%v) - dropping & recreating schema", err)
	_ = db.Migrator().DropTable(
		"outbox_jobs", "game_proposals", "games", "users",
	)
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate after drop: %v", err)
	}
}

// ensureAdmin seeds the bootstrap reviewer account when configured.
func ensureAdmin(db *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var existing types.User
	if err := db.First(&existing, "email = ?", email).Error; err == nil {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("admin seed: %v", err)
	}
	if err := db.Create(&types.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         types.RoleAdmin,
	}).Error; err != nil {
		log.Printf("admin seed: %v", err)
	}
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)
	ensureAdmin(db)

	rdb := data.MustRedis(cfg.RedisURL)

	ctx, cancel := context.WithCancel(context.Background())
	relay := proposal.NewRelay(db, rdb,
		time.Duration(cfg.OutboxInterval)*time.Second,
		time.Duration(cfg.DispatchTimeout)*time.Second)
	go relay.Start(ctx)

	router := webserver.New(cfg, db, rdb)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			reloader, rerr := webserver.NewTLSReloader(cfg.TLSCertFile, cfg.TLSKeyFile)
			if rerr != nil {
				log.Fatalf("tls: %v", rerr)
			}
			httpSrv.TLSConfig = reloader.GetConfig()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Catalog API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
