package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/models"
)

// errUsage marks argument errors; main prints usage for them
var errUsage = errors.New("usage")

const prefetchPageSize = 100

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"tier":     runTier,
	"products": runProducts,
	"prefetch": runPrefetch,
	"cache":    runCache,
	"cart":     runCart,
	"checkout": runCheckout,
	"orders":   runOrders,
}

func run(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd(ctx, a, args[1:])
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func runTier(ctx context.Context, a *app, args []string) error {
	res := a.resolver.Resolve(ctx)
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runProducts(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("products", a.out)
	var q models.ProductQuery
	fs.StringVar(&q.Category, "category", "", "only this category")
	fs.StringVar(&q.Search, "q", "", "search name and description")
	fs.StringVar(&q.Filter, "filter", "", "CEL expression over product")
	fs.IntVar(&q.Limit, "limit", 20, "page size")
	fs.IntVar(&q.Offset, "offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	list, err := a.client.ListProducts(ctx, q)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSKU\tNAME\tPRICE\tSTOCK")
	for _, p := range list.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.SKU, p.Name, money(p.PriceCents, p.Currency), p.Stock)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d of %d products\n", len(list.Items), list.Total)
	return nil
}

func runPrefetch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("prefetch", a.out)
	category := fs.String("category", "", "only this category")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	images, err := a.imageCache(ctx)
	if err != nil {
		return err
	}

	var urls []string
	for offset := 0; ; offset += prefetchPageSize {
		page, err := a.client.ListProducts(ctx, models.ProductQuery{
			Category: *category,
			Limit:    prefetchPageSize,
			Offset:   offset,
		})
		if err != nil {
			return err
		}
		for _, p := range page.Items {
			urls = append(urls, p.ImageURLs()...)
		}
		if len(page.Items) < prefetchPageSize || offset+len(page.Items) >= page.Total {
			break
		}
	}

	cached := images.Preload(ctx, urls)
	fmt.Fprintf(a.out, "cached %d of %d images\n", cached, len(urls))
	return nil
}

func runCache(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cache stats|sweep|clear", errUsage)
	}

	images, err := a.imageCache(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "stats":
		s := images.Stats(ctx)
		fmt.Fprintf(a.out, "dir:     %s\n", s.Dir)
		fmt.Fprintf(a.out, "entries: %d (%d expired)\n", s.Entries, s.Expired)
		fmt.Fprintf(a.out, "size:    %d / %d bytes\n", s.TotalBytes, s.MaxBytes)
		fmt.Fprintf(a.out, "ttl:     %s\n", s.TTL)
		return nil
	case "sweep":
		n, err := images.Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "evicted %d entries\n", n)
		return nil
	case "clear":
		if err := images.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "image cache cleared")
		return nil
	default:
		return fmt.Errorf("%w: unknown cache action %q", errUsage, args[0])
	}
}

func runCart(ctx context.Context, a *app, args []string) error {
	ctx, err := a.userContext(ctx)
	if err != nil {
		return err
	}

	var cart *models.Cart
	switch {
	case len(args) == 0:
		cart, err = a.client.GetCart(ctx)

	case args[0] == "add" && (len(args) == 2 || len(args) == 3):
		id, perr := uuid.Parse(args[1])
		if perr != nil {
			return fmt.Errorf("%w: invalid product id %q", errUsage, args[1])
		}
		qty := 1
		if len(args) == 3 {
			if qty, perr = strconv.Atoi(args[2]); perr != nil {
				return fmt.Errorf("%w: invalid quantity %q", errUsage, args[2])
			}
		}
		cart, err = a.client.AddToCart(ctx, id, qty)

	case args[0] == "remove" && len(args) == 2:
		id, perr := uuid.Parse(args[1])
		if perr != nil {
			return fmt.Errorf("%w: invalid product id %q", errUsage, args[1])
		}
		cart, err = a.client.RemoveFromCart(ctx, id)

	case args[0] == "clear" && len(args) == 1:
		if err := a.client.ClearCart(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "cart cleared")
		return nil

	default:
		return fmt.Errorf("%w: cart [add <product-id> [qty]|remove <product-id>|clear]", errUsage)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tNAME\tQTY\tUNIT")
	for _, it := range cart.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", it.ProductID, it.Name, it.Quantity, money(it.UnitPriceCents, ""))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "total %s\n", money(cart.TotalCents, ""))
	return nil
}

func runCheckout(ctx context.Context, a *app, args []string) error {
	ctx, err := a.userContext(ctx)
	if err != nil {
		return err
	}

	order, err := a.client.Checkout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "order %s placed: %d items, %s\n",
		order.ID, len(order.Items), money(order.TotalCents, order.Currency))
	return nil
}

func runOrders(ctx context.Context, a *app, args []string) error {
	ctx, err := a.userContext(ctx)
	if err != nil {
		return err
	}

	orders, err := a.client.ListOrders(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tITEMS\tTOTAL\tPLACED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.Status, len(o.Items), money(o.TotalCents, o.Currency), o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func money(cents int64, currency string) string {
	s := fmt.Sprintf("%d.%02d", cents/100, abs(cents%100))
	if cents < 0 && cents > -100 {
		s = "-" + s
	}
	if currency != "" {
		s += " " + currency
	}
	return s
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
