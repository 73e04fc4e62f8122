package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lyzr/storefront/common/config"
	"github.com/lyzr/storefront/common/logger"
)

const usage = `usage: shopctl <command> [args]

commands:
  tier                                 detected device tier and adaptive config
  products [-category] [-q] [-filter]  list products
  prefetch [-category]                 cache product images locally
  cache stats|sweep|clear              image cache maintenance
  cart [add <id> [qty]|remove <id>|clear]
  checkout                             place an order from the cart
  orders                               list your orders

environment: SHOP_API_URL, SHOP_USER_ID, IMAGE_CACHE_DIR, CLIENT_INDEX_STORE, DEVICE_TIER
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("shopctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so stdout stays scriptable
	log := logger.NewWithWriter(os.Stderr, cfg.Service.LogLevel, cfg.Service.LogFormat)

	a, err := newApp(ctx, cfg, log, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shopctl: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, a, os.Args[1:])
	if cerr := a.Close(); cerr != nil {
		log.Warn("failed to close index store", "error", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "shopctl: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
