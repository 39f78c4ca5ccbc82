package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"tradeadmin/src/client"
	"tradeadmin/src/model"
	"tradeadmin/src/session"
)

const defaultAPIURL = "http://localhost:9898"

var consoleCMD = cli.Command{
	Name:  "console",
	Usage: "interact with a running trade admin server",
	Subcommands: []cli.Command{
		{
			Name:   "login",
			Usage:  "authenticate and store the session locally",
			Action: loginAction,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "username, u", Usage: "account username"},
				cli.StringFlag{Name: "password, p", Usage: "account password (prompted when omitted)"},
			},
		},
		{
			Name:   "logout",
			Usage:  "drop the stored session",
			Action: logoutAction,
		},
		{
			Name:   "profile",
			Usage:  "show the logged-in account",
			Action: profileAction,
		},
		{
			Name:   "strategies",
			Usage:  "list spot strategies",
			Action: strategiesAction,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "page", Value: 1},
				cli.IntFlag{Name: "limit", Value: 20},
			},
		},
		{
			Name:   "preview",
			Usage:  "print the layer table an iceberg strategy would place",
			Action: previewAction,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "symbol", Usage: "trading pair, e.g. BTCUSDT"},
				cli.StringFlag{Name: "side", Value: "buy"},
				cli.Float64Flag{Name: "quantity"},
				cli.Float64Flag{Name: "trigger-price"},
				cli.IntFlag{Name: "layers", Value: 10},
				cli.Float64Flag{Name: "price-float", Value: 10},
			},
		},
		{
			Name:   "watch",
			Usage:  "poll prices for the favorite pairs until interrupted",
			Action: watchAction,
		},
		{
			Name:  "pairs",
			Usage: "manage the favorite pairs watchlist",
			Subcommands: []cli.Command{
				{Name: "list", Action: pairsListAction},
				{Name: "add", ArgsUsage: "SYMBOL", Action: pairsAddAction},
				{Name: "remove", ArgsUsage: "SYMBOL", Action: pairsRemoveAction},
			},
		},
		{
			Name:   "theme",
			Usage:  "toggle the console theme",
			Action: themeAction,
		},
	},
}

// console bundles the API client with the persisted local state.
type console struct {
	api       *client.Client
	auth      *session.Auth
	favorites *session.Favorites
	theme     *session.Theme
}

func newConsole() (*console, error) {
	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	store, err := session.NewStore(os.Getenv("TRADEADMIN_STATE_DIR"))
	if err != nil {
		return nil, err
	}

	api := client.New(baseURL)
	return &console{
		api:       api,
		auth:      session.NewAuth(store, api),
		favorites: session.NewFavorites(store),
		theme:     session.NewTheme(store),
	}, nil
}

func (c *console) requireUser(ctx context.Context) (*model.User, error) {
	user, err := c.auth.CheckAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("session invalid, run 'console login': %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("not logged in, run 'console login'")
	}
	return user, nil
}

func loginAction(cliCtx *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}

	username := cliCtx.String("username")
	if username == "" {
		username = prompt("Username: ")
	}
	password := cliCtx.String("password")
	if password == "" {
		password = prompt("Password: ")
	}

	user, err := c.auth.Login(context.Background(), username, password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func logoutAction(_ *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}
	if err := c.auth.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func profileAction(_ *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}
	user, err := c.requireUser(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Username:  %s\n", user.Username)
	fmt.Printf("Email:     %s\n", user.Email)
	fmt.Printf("Role:      %s\n", user.Role)
	fmt.Printf("Status:    %s\n", user.Status)
	fmt.Printf("API keys:  %v\n", user.HasAPIKey)
	if user.LastLoginAt != nil {
		fmt.Printf("Last login: %s\n", user.LastLoginAt.Format(time.RFC3339))
	}
	return nil
}

func strategiesAction(cliCtx *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := c.requireUser(ctx); err != nil {
		return err
	}

	strategies, total, err := c.api.Strategies.List(ctx, cliCtx.Int("page"), cliCtx.Int("limit"))
	if err != nil {
		return err
	}

	fmt.Printf("%-5s %-20s %-10s %-14s %-6s %-12s %-10s %s\n",
		"ID", "NAME", "SYMBOL", "TYPE", "SIDE", "TRIGGER", "QTY", "STATE")
	for _, s := range strategies {
		state := "inactive"
		if s.IsCompleted {
			state = "completed"
		} else if s.IsActive {
			state = "active"
		}
		fmt.Printf("%-5d %-20s %-10s %-14s %-6s %-12g %-10g %s\n",
			s.ID, s.Name, s.Symbol, s.Type, s.Side, s.TriggerPrice, s.Quantity, state)
	}
	fmt.Printf("%d of %d strategies\n", len(strategies), total)
	return nil
}

func previewAction(cliCtx *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}

	req := client.StrategyRequest{
		Symbol:       cliCtx.String("symbol"),
		Type:         string(model.StrategyIceberg),
		Side:         cliCtx.String("side"),
		Quantity:     cliCtx.Float64("quantity"),
		TriggerPrice: cliCtx.Float64("trigger-price"),
		Config: model.JSONMap{
			"layers":      cliCtx.Int("layers"),
			"price_float": cliCtx.Float64("price-float"),
		},
	}

	layers, err := c.api.Strategies.Preview(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-14s %-14s %-10s %s\n", "LAYER", "PRICE", "QUANTITY", "FLOAT(BP)", "VALUE")
	for _, layer := range layers {
		fmt.Printf("%-6d %-14.8g %-14.8g %-10g %.8g\n",
			layer.Index, layer.Price, layer.Quantity, layer.FloatBP, layer.Value)
	}
	return nil
}

func watchAction(_ *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := c.requireUser(ctx); err != nil {
		return err
	}

	pairs := c.favorites.List()
	if len(pairs) == 0 {
		return fmt.Errorf("no favorite pairs, add one with 'console pairs add SYMBOL'")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	printQuotes(ctx, c, pairs)
	for {
		select {
		case <-quit:
			return nil
		case <-ticker.C:
			printQuotes(ctx, c, pairs)
		}
	}
}

func printQuotes(ctx context.Context, c *console, pairs []string) {
	line := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		quote, err := c.api.General.Price(ctx, pair)
		if err != nil {
			line = append(line, fmt.Sprintf("%s: n/a", pair))
			continue
		}
		line = append(line, fmt.Sprintf("%s: %.8g", quote.Symbol, quote.Price))
	}
	fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), strings.Join(line, "  "))
}

func pairsListAction(_ *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}
	for _, pair := range c.favorites.List() {
		fmt.Println(pair)
	}
	return nil
}

func pairsAddAction(cliCtx *cli.Context) error {
	symbol := strings.ToUpper(cliCtx.Args().First())
	if symbol == "" {
		return fmt.Errorf("usage: console pairs add SYMBOL")
	}
	c, err := newConsole()
	if err != nil {
		return err
	}
	return c.favorites.Add(symbol)
}

func pairsRemoveAction(cliCtx *cli.Context) error {
	symbol := strings.ToUpper(cliCtx.Args().First())
	if symbol == "" {
		return fmt.Errorf("usage: console pairs remove SYMBOL")
	}
	c, err := newConsole()
	if err != nil {
		return err
	}
	return c.favorites.Remove(symbol)
}

func themeAction(_ *cli.Context) error {
	c, err := newConsole()
	if err != nil {
		return err
	}
	next, err := c.theme.Toggle()
	if err != nil {
		return err
	}
	fmt.Printf("Theme set to %s\n", next)
	return nil
}

func prompt(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	text, _ := reader.ReadString('\n')
	return strings.TrimSpace(text)
}
