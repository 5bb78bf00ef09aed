package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"

	"github.com/Apurer/bakery-orders/internal/client/eventbus"
	"github.com/Apurer/bakery-orders/internal/client/orderapi"
	"github.com/Apurer/bakery-orders/internal/client/orderform"
	"github.com/Apurer/bakery-orders/internal/client/syncchannel"
	"github.com/Apurer/bakery-orders/internal/client/views"
	orderhttpmapper "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/http/mapper"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/platform/observability"
)

const BoardVersion = "0.1.0"

const usage = `Bakery order board.

Credentials and server default to BOARD_USER, BOARD_PASSWORD and BOARD_SERVER,
read from the environment or a .env file.

Usage:
    board day [<date>] [options] [--watch]
    board upcoming [options] [--watch]
    board products [options] [<query>]
    board add [options]
        --client=<name> --pickup=<date> --time=<hh:mm>
        [--phone=<phone>] [--advance=<amount>] [--paid] [--inscription=<text>]
        <item>...
    board delete [options] <order_id>
    board progress [options] <order_id> <line_id> (--started | --done)
    board -h | --help
    board --version

Items are <product>:<quantity>[:<note>], where <product> is a product code or id.

Options:
    -h --help                 Show this screen.
    --version                 Show version.
    --server=<url>            API base url.
    --user=<name>             Operator username.
    --password=<password>     Operator password.
    --timezone=<tz>           Bakery time zone [default: Europe/Sofia].
    --log_level=<level>       debug, info, warn or error [default: warn].
    --watch                   Keep the view open and redraw on every order change.
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], BoardVersion)
	if err != nil {
		log.Fatal(err)
	}
	_ = godotenv.Load()

	logLevel, _ := opts.String("--log_level")
	logger := observability.NewLogger(observability.Options{
		ServiceName: "bakery-board",
		LogLevel:    logLevel,
		LogOutput:   os.Stderr,
		TextLogs:    true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBoard(ctx, opts, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer b.logout()

	switch {
	case flag(opts, "day"):
		err = b.day(ctx, opts)
	case flag(opts, "upcoming"):
		err = b.upcoming(ctx, opts)
	case flag(opts, "products"):
		err = b.products(opts)
	case flag(opts, "add"):
		err = b.add(ctx, opts)
	case flag(opts, "delete"):
		err = b.remove(ctx, opts)
	case flag(opts, "progress"):
		err = b.progress(ctx, opts)
	}
	if err != nil {
		b.logout()
		log.Fatal(err)
	}
}

type board struct {
	server   string
	client   *orderapi.Client
	catalog  *orderform.Catalog
	bus      *eventbus.Bus
	location *time.Location
	logger   *slog.Logger
}

func newBoard(ctx context.Context, opts docopt.Opts, logger *slog.Logger) (*board, error) {
	server := option(opts, "--server", "BOARD_SERVER", "http://localhost:8080")
	tz, _ := opts.String("--timezone")
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	client, err := orderapi.NewClient(server)
	if err != nil {
		return nil, err
	}
	b := &board{
		server:   server,
		client:   client,
		bus:      eventbus.New(eventbus.WithLogger(logger)),
		location: location,
		logger:   logger,
	}

	products, err := client.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	b.catalog = orderform.NewCatalog(products)
	if flag(opts, "products") {
		return b, nil
	}

	user := option(opts, "--user", "BOARD_USER", "")
	password := option(opts, "--password", "BOARD_PASSWORD", "")
	if user == "" || password == "" {
		return nil, errors.New("--user and --password (or BOARD_USER and BOARD_PASSWORD) are required")
	}
	if _, err := client.Login(ctx, user, password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return b, nil
}

func (b *board) logout() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.client.Logout(ctx); err != nil {
		b.logger.Warn("logout failed", slog.String("error", err.Error()))
	}
}

func (b *board) day(ctx context.Context, opts docopt.Opts) error {
	day := time.Now().In(b.location)
	if raw, _ := opts.String("<date>"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, b.location)
		if err != nil {
			return fmt.Errorf("date %q: %w", raw, err)
		}
		day = parsed
	}
	rendered := make(chan struct{}, 1)
	view := views.NewDayView(b.client, b.bus, day, func(day time.Time, orders []*ordersdomain.Order) {
		printDay(os.Stdout, day, orders, b.catalog, b.location)
		signalOnce(rendered)
	}, views.WithLogger(b.logger), views.WithErrorHandler(b.viewError(rendered)))
	return b.show(ctx, opts, view, rendered)
}

func (b *board) upcoming(ctx context.Context, opts docopt.Opts) error {
	rendered := make(chan struct{}, 1)
	view := views.NewBoardView(b.client, b.bus, func(columns [][]*ordersdomain.Order) {
		printBoard(os.Stdout, columns, b.catalog, b.location)
		signalOnce(rendered)
	}, views.WithLogger(b.logger), views.WithErrorHandler(b.viewError(rendered)))
	return b.show(ctx, opts, view, rendered)
}

type mountable interface {
	Mount(ctx context.Context) error
	Unmount()
}

// show renders view once, or keeps it live over the sync channel with --watch.
func (b *board) show(ctx context.Context, opts docopt.Opts, view mountable, rendered <-chan struct{}) error {
	if !flag(opts, "--watch") {
		if err := view.Mount(ctx); err != nil {
			return err
		}
		defer view.Unmount()
		select {
		case <-rendered:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	channel := b.openChannel(ctx)
	defer channel.Close()
	if err := view.Mount(ctx); err != nil {
		return err
	}
	defer view.Unmount()
	<-ctx.Done()
	return nil
}

func (b *board) openChannel(ctx context.Context) *syncchannel.Channel {
	transport := syncchannel.NewWebsocketTransport(eventsURL(b.server),
		syncchannel.WithToken(b.client.Session().Token),
		syncchannel.WithTransportLogger(b.logger))
	channel := syncchannel.New(transport, b.bus,
		syncchannel.WithLogger(b.logger),
		syncchannel.WithStateObserver(func(state syncchannel.ConnectionState) {
			b.logger.Info("sync channel", slog.String("state", state.String()))
		}))
	channel.Bind()
	_ = channel.Start(ctx)
	return channel
}

func (b *board) viewError(rendered chan<- struct{}) func(error) {
	return func(err error) {
		fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
		signalOnce(rendered)
	}
}

func (b *board) products(opts docopt.Opts) error {
	query, _ := opts.String("<query>")
	printProducts(os.Stdout, b.catalog.Search(query))
	return nil
}

func (b *board) add(ctx context.Context, opts docopt.Opts) error {
	form, err := orderform.Open(ctx, b.client.Session(), b.client, b.bus, b.catalog, 0,
		orderform.WithLocation(b.location),
		orderform.WithLogger(b.logger))
	if err != nil {
		return err
	}
	// Open starts with one blank line; items replace it.
	for _, line := range form.Lines() {
		if err := form.RemoveLine(line.Key); err != nil {
			return err
		}
	}

	fields := []struct {
		field orderform.Field
		opt   string
	}{
		{orderform.FieldClientName, "--client"},
		{orderform.FieldClientPhone, "--phone"},
		{orderform.FieldPickupDate, "--pickup"},
		{orderform.FieldPickupTime, "--time"},
		{orderform.FieldAdvancePayment, "--advance"},
	}
	for _, f := range fields {
		value, _ := opts.String(f.opt)
		if err := form.Edit(f.field, value); err != nil {
			return err
		}
	}
	if err := form.Edit(orderform.FieldPaid, strconv.FormatBool(flag(opts, "--paid"))); err != nil {
		return err
	}

	inscription, _ := opts.String("--inscription")
	items, _ := opts["<item>"].([]string)
	for _, raw := range items {
		item, err := parseItem(raw, b.catalog)
		if err != nil {
			return err
		}
		key, err := form.AddLine()
		if err != nil {
			return err
		}
		if err := form.SetLineProduct(key, item.product); err != nil {
			return err
		}
		if err := form.UpdateLine(key, orderform.LineQuantity, item.quantity); err != nil {
			return err
		}
		if err := form.UpdateLine(key, orderform.LineNote, item.note); err != nil {
			return err
		}
		if inscription != "" && item.product.IsCake() {
			if err := form.UpdateLine(key, orderform.LineInscription, inscription); err != nil {
				return err
			}
		}
	}

	status, err := form.Submit(ctx)
	switch status {
	case orderform.SubmitInvalid:
		for _, violation := range form.Validation().Violations {
			fmt.Fprintln(os.Stderr, violation)
		}
		return errors.New("order not saved")
	case orderform.SubmitSaved:
		fmt.Fprintf(os.Stdout, "order %d saved\n", form.Saved().ID)
		return nil
	}
	return err
}

func (b *board) remove(ctx context.Context, opts docopt.Opts) error {
	id, err := intArg(opts, "<order_id>")
	if err != nil {
		return err
	}
	form, err := orderform.Open(ctx, b.client.Session(), b.client, b.bus, b.catalog, id,
		orderform.WithLocation(b.location),
		orderform.WithLogger(b.logger))
	if err != nil {
		return err
	}
	if err := form.Delete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "order %d deleted\n", id)
	return nil
}

func (b *board) progress(ctx context.Context, opts docopt.Opts) error {
	orderID, err := intArg(opts, "<order_id>")
	if err != nil {
		return err
	}
	lineID, err := intArg(opts, "<line_id>")
	if err != nil {
		return err
	}
	yes := true
	progress := orderhttpmapper.LineProgress{InProgress: &yes}
	if flag(opts, "--done") {
		progress = orderhttpmapper.LineProgress{Complete: &yes}
	}
	order, err := b.client.UpdateLineProgress(ctx, orderID, lineID, progress)
	if err != nil {
		return err
	}
	printDay(os.Stdout, order.PickupDay(), []*ordersdomain.Order{order}, b.catalog, b.location)
	return nil
}

type item struct {
	product  ordersdomain.Product
	quantity string
	note     string
}

// parseItem reads <product>:<quantity>[:<note>]; product is matched by exact code first, then id.
func parseItem(raw string, catalog *orderform.Catalog) (item, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return item{}, fmt.Errorf("item %q: want <product>:<quantity>[:<note>]", raw)
	}
	ref := strings.TrimSpace(parts[0])
	it := item{quantity: parts[1]}
	if len(parts) == 3 {
		it.note = parts[2]
	}
	for _, p := range catalog.Search(ref) {
		if p.Code == ref {
			it.product = p
			return it, nil
		}
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if p, ok := catalog.Product(id); ok {
			it.product = p
			return it, nil
		}
	}
	return item{}, fmt.Errorf("item %q: %w", raw, orderform.ErrUnknownProduct)
}

// eventsURL maps the API base url to its websocket endpoint.
func eventsURL(server string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	switch {
	case strings.HasPrefix(server, "https://"):
		server = "wss://" + strings.TrimPrefix(server, "https://")
	case strings.HasPrefix(server, "http://"):
		server = "ws://" + strings.TrimPrefix(server, "http://")
	}
	return server + "/api/events"
}

func flag(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func option(opts docopt.Opts, name, env, fallback string) string {
	if v, _ := opts.String(name); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return fallback
}

func intArg(opts docopt.Opts, name string) (int64, error) {
	raw, _ := opts.String(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

func signalOnce(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
