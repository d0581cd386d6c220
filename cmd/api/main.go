package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-mall-checkout.git/internal/address"
	"github.com/ariefcatur/go-mall-checkout.git/internal/cart"
	"github.com/ariefcatur/go-mall-checkout.git/internal/catalog"
	"github.com/ariefcatur/go-mall-checkout.git/internal/config"
	"github.com/ariefcatur/go-mall-checkout.git/internal/httpx"
	"github.com/ariefcatur/go-mall-checkout.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-mall-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-mall-checkout.git/internal/orders"
	"github.com/ariefcatur/go-mall-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-mall-checkout.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for post-commit notifications
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	prod.Start(ctx)

	cartStore := &cart.Store{RDB: rdb}
	catalogRepo := &catalog.Repo{DB: db}
	addressRepo := &address.Repo{DB: db}
	ledger := &orders.Ledger{
		DB:        orders.PoolDB{Pool: db},
		Addresses: addressRepo,
		IDs:       orders.NewIDGenerator(),
		Freight:   cfg.Freight,
		Retry:     inventory.DefaultPolicy,
	}

	sessions := &httpx.RedisSessions{RDB: rdb}
	router := httpx.NewRouter(httpx.WithSession(sessions), httpx.MergeAnonCart(cartStore))

	ch := &httpx.CartHandler{Store: cartStore, Catalog: catalogRepo}
	ch.Register(router)

	oh := &httpx.OrdersHandler{
		Ledger:    ledger,
		Cart:      cartStore,
		Catalog:   catalogRepo,
		Addresses: addressRepo,
		Producer:  prod,
		Freight:   cfg.Freight,
		Service:   cfg.ServiceName,
		PerPage:   cfg.OrdersPerPage,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
